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
	"pricebackfill/pkg/binance"

	"go.uber.org/zap"
)

type KlineSource interface {
	GetKlines(ctx context.Context, q binance.KlineQuery) ([]binance.KlineRow, error)
}

type CandleConfig struct {
	Symbol    string
	Interval  string
	Limit     int
	PageDelay time.Duration
}

// PageFunc receives one non-empty page of klines.
type PageFunc func(ctx context.Context, rows []binance.KlineRow) error

// CandleFlow backfills exchange candles over a time window.
type CandleFlow struct {
	source    KlineSource
	persister *persist.Persister
	cfg       CandleConfig
	sleep     pace.Sleeper
	logger    *zap.Logger
}

func NewCandleFlow(source KlineSource, persister *persist.Persister, cfg CandleConfig, sleep pace.Sleeper, logger *zap.Logger) *CandleFlow {
	if cfg.Limit <= 0 || cfg.Limit > binance.MaxKlineLimit {
		cfg.Limit = binance.MaxKlineLimit
	}
	if sleep == nil {
		sleep = pace.Sleep
	}
	return &CandleFlow{source: source, persister: persister, cfg: cfg, sleep: sleep, logger: logger}
}

// Paginate walks the window by open time. It stops on an empty page or once
// the cursor reaches the window end. A failed request ends pagination.
func (f *CandleFlow) Paginate(ctx context.Context, window model.Window, onPage PageFunc) (PageStats, error) {
	var stats PageStats
	cursor := paginate.NewTimeCursor(window.Start.UnixMilli(), window.End.UnixMilli())

	for !cursor.Done() {
		rows, err := f.source.GetKlines(ctx, binance.KlineQuery{
			Symbol:    f.cfg.Symbol,
			Interval:  f.cfg.Interval,
			StartTime: cursor.Next,
			EndTime:   cursor.End,
			Limit:     f.cfg.Limit,
		})
		if err != nil {
			metrics.RequestsTotal.WithLabelValues(metrics.SourceBinance, "transport_error").Inc()
			f.logger.Error("kline request failed, stopping pagination",
				zap.Time("cursor", time.UnixMilli(cursor.Next).UTC()),
				zap.Error(err),
			)
			return stats, fmt.Errorf("fetch klines from %d: %w", cursor.Next, err)
		}
		metrics.RequestsTotal.WithLabelValues(metrics.SourceBinance, "ok").Inc()

		if len(rows) == 0 {
			stats.Empty++
			break
		}
		stats.Pages++

		if err := onPage(ctx, rows); err != nil {
			return stats, err
		}

		last, err := lastOpenTime(rows)
		if err != nil {
			return stats, fmt.Errorf("advance cursor: %w", err)
		}
		if err := cursor.Advance(last); err != nil {
			return stats, err
		}
		metrics.Cursor.WithLabelValues(metrics.FlowCandles).Set(float64(cursor.Next))

		if cursor.Done() {
			break
		}
		if err := f.sleep(ctx, f.cfg.PageDelay); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// lastOpenTime is the open time of the last row that has a usable one, so a
// malformed trailing row does not stall pagination.
func lastOpenTime(rows []binance.KlineRow) (int64, error) {
	var err error
	for i := len(rows) - 1; i >= 0; i-- {
		var ms int64
		if ms, err = binance.OpenTime(rows[i]); err == nil {
			return ms, nil
		}
	}
	return 0, fmt.Errorf("no row with a usable open time: %w", err)
}

// Run stores every decodable candle in the window and commits once at the
// end. Rows collected before a failed request are still committed.
func (f *CandleFlow) Run(ctx context.Context, window model.Window) (Summary, error) {
	summary := Summary{Flow: metrics.FlowCandles}
	var storeErr error

	stats, fetchErr := f.Paginate(ctx, window, func(ctx context.Context, rows []binance.KlineRow) error {
		summary.Fetched += len(rows)
		for i, row := range rows {
			trade, err := binance.ParseKline(row)
			if err != nil {
				summary.Invalid++
				metrics.RowsTotal.WithLabelValues(metrics.FlowCandles, "skipped").Inc()
				f.logger.Warn("skipping kline", zap.Int("row", i), zap.Error(err))
				continue
			}

			inserted, err := f.persister.PersistCandle(ctx, trade)
			if err != nil {
				storeErr = err
				return err
			}
			summary.count(inserted)
		}
		return nil
	})
	summary.PageStats = stats

	if storeErr != nil {
		return summary, storeErr
	}
	if errors.Is(fetchErr, context.Canceled) || errors.Is(fetchErr, context.DeadlineExceeded) {
		return summary, fetchErr
	}

	if err := f.persister.Commit(metrics.FlowCandles); err != nil {
		return summary, errors.Join(fetchErr, err)
	}
	f.logger.Info("candle flow committed", summary.Fields()...)

	return summary, fetchErr
}
