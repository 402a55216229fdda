package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pricebackfill/internal/metrics"
	"pricebackfill/internal/model"
	"pricebackfill/internal/pace"
	"pricebackfill/internal/paginate"
	"pricebackfill/internal/persist"
	"pricebackfill/pkg/etherscan"
	"pricebackfill/pkg/uniswap"

	"go.uber.org/zap"
)

// ErrUnresolvedBounds means the window could not be mapped to block numbers.
var ErrUnresolvedBounds = errors.New("window bounds unresolved")

type LogSource interface {
	GetLogs(ctx context.Context, q etherscan.LogQuery) ([]etherscan.Log, error)
}

type BlockResolver interface {
	Resolve(ctx context.Context, ts time.Time, closest etherscan.Closest) (uint64, error)
}

type SwapConfig struct {
	PoolAddress    string
	Topic0         string
	ChunkSize      uint64
	ChunkDelay     time.Duration
	SkipDelay      time.Duration
	RateLimitDelay time.Duration
	Retry          RetryPolicy
}

// ChunkFunc receives the logs of one non-empty block range.
type ChunkFunc func(ctx context.Context, chunk paginate.Chunk, logs []etherscan.Log) error

// SwapFlow backfills pool swap events over a block range.
type SwapFlow struct {
	source    LogSource
	resolver  BlockResolver
	decoder   uniswap.Decoder
	persister *persist.Persister
	cfg       SwapConfig
	sleep     pace.Sleeper
	logger    *zap.Logger
}

func NewSwapFlow(
	source LogSource,
	resolver BlockResolver,
	decoder uniswap.Decoder,
	persister *persist.Persister,
	cfg SwapConfig,
	sleep pace.Sleeper,
	logger *zap.Logger,
) *SwapFlow {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 5000
	}
	if cfg.Topic0 == "" {
		cfg.Topic0 = uniswap.SwapTopic.Hex()
	}
	if sleep == nil {
		sleep = pace.Sleep
	}
	return &SwapFlow{
		source:    source,
		resolver:  resolver,
		decoder:   decoder,
		persister: persister,
		cfg:       cfg,
		sleep:     sleep,
		logger:    logger,
	}
}

// Paginate walks [from, to] in chunks. Rate-limited chunks are retried after
// RateLimitDelay, other provider errors skip the chunk, and transport errors
// call onTransportError then retry with backoff. Consecutive failures on one
// chunk are bounded by the retry policy.
func (f *SwapFlow) Paginate(ctx context.Context, from, to uint64, onChunk ChunkFunc, onTransportError func(error)) (PageStats, error) {
	var stats PageStats
	cursor := paginate.NewBlockCursor(from, to, f.cfg.ChunkSize)
	failures := 0

	for !cursor.Done() {
		chunk := cursor.Chunk()
		logs, err := f.source.GetLogs(ctx, etherscan.LogQuery{
			Address:   f.cfg.PoolAddress,
			FromBlock: chunk.From,
			ToBlock:   chunk.To,
			Topic0:    f.cfg.Topic0,
		})

		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}

			wait := f.cfg.SkipDelay
			var apiErr *etherscan.APIError
			switch {
			case errors.As(err, &apiErr) && apiErr.IsRateLimited():
				metrics.RequestsTotal.WithLabelValues(metrics.SourceEtherscan, "rate_limited").Inc()
				failures++
				if f.cfg.Retry.Exhausted(failures) {
					return stats, &ChunkError{Chunk: chunk, Attempts: failures, Err: err}
				}
				stats.Retries++
				metrics.RetriesTotal.WithLabelValues(metrics.FlowSwaps, "rate_limit").Inc()
				f.logger.Warn("rate limited, retrying chunk",
					zap.Uint64("from", chunk.From),
					zap.Uint64("to", chunk.To),
					zap.Duration("wait", f.cfg.RateLimitDelay),
				)
				wait = f.cfg.RateLimitDelay

			case apiErr != nil:
				metrics.RequestsTotal.WithLabelValues(metrics.SourceEtherscan, "api_error").Inc()
				f.logger.Warn("provider rejected chunk, skipping",
					zap.Uint64("from", chunk.From),
					zap.Uint64("to", chunk.To),
					zap.String("message", apiErr.Message),
					zap.String("result", apiErr.Result),
				)
				stats.Skipped++
				failures = 0
				cursor.Advance()

			default:
				metrics.RequestsTotal.WithLabelValues(metrics.SourceEtherscan, "transport_error").Inc()
				failures++
				if onTransportError != nil {
					onTransportError(err)
				}
				if f.cfg.Retry.Exhausted(failures) {
					return stats, &ChunkError{Chunk: chunk, Attempts: failures, Err: err}
				}
				stats.Retries++
				metrics.RetriesTotal.WithLabelValues(metrics.FlowSwaps, "transport").Inc()
				wait = f.cfg.Retry.Backoff(failures)
				f.logger.Warn("log request failed, retrying chunk",
					zap.Uint64("from", chunk.From),
					zap.Uint64("to", chunk.To),
					zap.Int("attempt", failures),
					zap.Duration("wait", wait),
					zap.Error(err),
				)
			}

			if err := f.sleep(ctx, wait); err != nil {
				return stats, err
			}
			continue
		}

		metrics.RequestsTotal.WithLabelValues(metrics.SourceEtherscan, "ok").Inc()
		failures = 0

		if len(logs) == 0 {
			stats.Empty++
			f.logger.Debug("no swaps in chunk", zap.Uint64("from", chunk.From), zap.Uint64("to", chunk.To))
		} else {
			stats.Pages++
			if err := onChunk(ctx, chunk, logs); err != nil {
				return stats, err
			}
		}
		cursor.Advance()

		if cursor.Done() {
			break
		}
		if err := f.sleep(ctx, f.cfg.ChunkDelay); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// Run resolves the window to blocks and stores every decodable swap in it,
// committing after each chunk.
func (f *SwapFlow) Run(ctx context.Context, window model.Window) (Summary, error) {
	summary := Summary{Flow: metrics.FlowSwaps}

	from, err := f.resolver.Resolve(ctx, window.Start, etherscan.After)
	if err != nil {
		return summary, fmt.Errorf("%w: start: %w", ErrUnresolvedBounds, err)
	}
	to, err := f.resolver.Resolve(ctx, window.End, etherscan.Before)
	if err != nil {
		return summary, fmt.Errorf("%w: end: %w", ErrUnresolvedBounds, err)
	}
	f.logger.Info("swap range resolved", zap.Uint64("from_block", from), zap.Uint64("to_block", to))
	if from > to {
		f.logger.Warn("window holds no blocks", zap.Uint64("from_block", from), zap.Uint64("to_block", to))
		return summary, nil
	}

	onChunk := func(ctx context.Context, chunk paginate.Chunk, logs []etherscan.Log) error {
		summary.Fetched += len(logs)
		for _, l := range logs {
			ev, err := f.decoder.Decode(l, window)
			if err != nil {
				summary.Invalid++
				metrics.RowsTotal.WithLabelValues(metrics.FlowSwaps, "skipped").Inc()
				f.logger.Warn("skipping swap log",
					zap.String("tx", l.TransactionHash),
					zap.String("log_index", l.LogIndex),
					zap.Error(err),
				)
				continue
			}

			inserted, err := f.persister.PersistSwap(ctx, ev)
			if err != nil {
				return err
			}
			summary.count(inserted)
		}

		if err := f.persister.Commit(metrics.FlowSwaps); err != nil {
			return err
		}
		metrics.Cursor.WithLabelValues(metrics.FlowSwaps).Set(float64(chunk.To))
		f.logger.Info("swap chunk committed",
			zap.Uint64("from", chunk.From),
			zap.Uint64("to", chunk.To),
			zap.Int("logs", len(logs)),
		)
		return nil
	}

	onTransportError := func(error) {
		if err := f.persister.Rollback(); err != nil {
			f.logger.Warn("rollback after transport error failed", zap.Error(err))
		}
	}

	stats, err := f.Paginate(ctx, from, to, onChunk, onTransportError)
	summary.PageStats = stats
	if err != nil {
		return summary, err
	}

	f.logger.Info("swap flow finished", summary.Fields()...)
	return summary, nil
}
