package ingest

import (
	"errors"
	"fmt"
	"math"
	"time"

	"pricebackfill/internal/paginate"
)

// ErrRetriesExhausted is wrapped by ChunkError once a chunk keeps failing.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryPolicy is exponential backoff for transient failures on one page.
// MaxAttempts 0 retries forever.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// Backoff is the wait after the given number of consecutive failures (from 1).
// It never exceeds MaxDelay, or the largest Duration when MaxDelay is unset.
func (p RetryPolicy) Backoff(failures int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	ceiling := p.MaxDelay
	if ceiling <= 0 {
		ceiling = time.Duration(math.MaxInt64)
	}

	d := p.InitialDelay
	for i := 1; i < failures && d < ceiling; i++ {
		next := float64(d) * mult
		if next >= float64(ceiling) {
			d = ceiling
			break
		}
		d = time.Duration(next)
	}
	if d > ceiling {
		d = ceiling
	}
	if d <= 0 {
		d = p.MaxDelay
	}
	return d
}

func (p RetryPolicy) Exhausted(failures int) bool {
	return p.MaxAttempts > 0 && failures >= p.MaxAttempts
}

// ChunkError reports a block range that could not be fetched.
type ChunkError struct {
	Chunk    paginate.Chunk
	Attempts int
	Err      error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("blocks %d-%d: %s after %d attempts: %v",
		e.Chunk.From, e.Chunk.To, ErrRetriesExhausted, e.Attempts, e.Err)
}

func (e *ChunkError) Unwrap() []error {
	return []error{ErrRetriesExhausted, e.Err}
}
