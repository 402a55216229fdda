package blockresolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pricebackfill/internal/metrics"
	"pricebackfill/internal/pace"
	"pricebackfill/pkg/etherscan"

	"go.uber.org/zap"
)

// ErrUnresolved is returned once every lookup attempt has failed.
var ErrUnresolved = errors.New("block number unresolved")

// BlockLookup is the provider call the resolver retries.
type BlockLookup interface {
	GetBlockNumberByTime(ctx context.Context, ts int64, closest etherscan.Closest) (uint64, error)
}

type Resolver struct {
	lookup   BlockLookup
	attempts int
	delay    time.Duration
	sleep    pace.Sleeper
	logger   *zap.Logger
}

func New(lookup BlockLookup, attempts int, delay time.Duration, sleep pace.Sleeper, logger *zap.Logger) *Resolver {
	if attempts < 1 {
		attempts = 1
	}
	if sleep == nil {
		sleep = pace.Sleep
	}
	return &Resolver{lookup: lookup, attempts: attempts, delay: delay, sleep: sleep, logger: logger}
}

// Resolve maps ts to the closest block on the given side. Transport errors and
// provider-reported errors each use up one attempt.
func (r *Resolver) Resolve(ctx context.Context, ts time.Time, closest etherscan.Closest) (uint64, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		block, err := r.lookup.GetBlockNumberByTime(ctx, ts.Unix(), closest)
		if err == nil {
			metrics.RequestsTotal.WithLabelValues(metrics.SourceEtherscan, "ok").Inc()
			r.logger.Info("resolved block",
				zap.Time("timestamp", ts),
				zap.String("closest", string(closest)),
				zap.Uint64("block", block),
			)
			return block, nil
		}
		lastErr = err

		var apiErr *etherscan.APIError
		if errors.As(err, &apiErr) {
			metrics.RequestsTotal.WithLabelValues(metrics.SourceEtherscan, "api_error").Inc()
			r.logger.Warn("block lookup rejected by provider",
				zap.Int("attempt", attempt),
				zap.String("message", apiErr.Message),
				zap.String("result", apiErr.Result),
			)
		} else {
			metrics.RequestsTotal.WithLabelValues(metrics.SourceEtherscan, "transport_error").Inc()
			r.logger.Warn("block lookup failed", zap.Int("attempt", attempt), zap.Error(err))
		}

		if attempt == r.attempts {
			break
		}
		metrics.RetriesTotal.WithLabelValues(metrics.FlowSwaps, "block_lookup").Inc()
		if err := r.sleep(ctx, r.delay); err != nil {
			return 0, err
		}
	}

	return 0, fmt.Errorf("%w: %s %s after %d attempts: %v",
		ErrUnresolved, closest, ts.UTC().Format(time.RFC3339), r.attempts, lastErr)
}
