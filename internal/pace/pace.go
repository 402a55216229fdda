package pace

import (
	"context"
	"sync"
	"time"
)

// Sleeper pauses between external calls. It returns early with ctx.Err() when
// the context is cancelled.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Recorder is a Sleeper that returns immediately and remembers every delay.
type Recorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *Recorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *Recorder) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.delays))
	copy(out, r.delays)
	return out
}

// Total is the time a wall-clock run would have spent sleeping.
func (r *Recorder) Total() time.Duration {
	var total time.Duration
	for _, d := range r.Delays() {
		total += d
	}
	return total
}
