package persist

import (
	"context"
	"fmt"

	"pricebackfill/internal/metrics"
	"pricebackfill/internal/model"
)

// Persister appends rows that are not already stored under their natural key.
// It never updates existing rows. Commit cadence is left to the caller.
type Persister struct {
	session Session
}

func NewPersister(session Session) *Persister {
	return &Persister{session: session}
}

func (p *Persister) Session() Session {
	return p.session
}

// PersistCandle inserts row unless (timestamp, price) already exists.
func (p *Persister) PersistCandle(ctx context.Context, row model.CandleTrade) (bool, error) {
	exists, err := p.session.CandleTradeExists(ctx, row.Timestamp, row.Price)
	if err != nil {
		return false, fmt.Errorf("lookup candle trade %s: %w", row.Timestamp, err)
	}
	if exists {
		metrics.RowsTotal.WithLabelValues(metrics.FlowCandles, "duplicate").Inc()
		return false, nil
	}

	inserted, err := p.session.CreateCandleTrade(ctx, &row)
	if err != nil {
		return false, fmt.Errorf("insert candle trade %s: %w", row.Timestamp, err)
	}
	outcome := "inserted"
	if !inserted {
		outcome = "duplicate"
	}
	metrics.RowsTotal.WithLabelValues(metrics.FlowCandles, outcome).Inc()
	return inserted, nil
}

// PersistSwap inserts row unless (transaction_hash, log_index) already exists.
func (p *Persister) PersistSwap(ctx context.Context, row model.SwapEvent) (bool, error) {
	exists, err := p.session.SwapEventExists(ctx, row.TransactionHash, row.LogIndex)
	if err != nil {
		return false, fmt.Errorf("lookup swap %s#%d: %w", row.TransactionHash, row.LogIndex, err)
	}
	if exists {
		metrics.RowsTotal.WithLabelValues(metrics.FlowSwaps, "duplicate").Inc()
		return false, nil
	}

	inserted, err := p.session.CreateSwapEvent(ctx, &row)
	if err != nil {
		return false, fmt.Errorf("insert swap %s#%d: %w", row.TransactionHash, row.LogIndex, err)
	}
	outcome := "inserted"
	if !inserted {
		outcome = "duplicate"
	}
	metrics.RowsTotal.WithLabelValues(metrics.FlowSwaps, outcome).Inc()
	return inserted, nil
}

// Commit makes every row persisted since the previous commit durable.
func (p *Persister) Commit(flow string) error {
	if err := p.session.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", flow, err)
	}
	metrics.CommitsTotal.WithLabelValues(flow).Inc()
	return nil
}

func (p *Persister) Rollback() error {
	return p.session.Rollback()
}
