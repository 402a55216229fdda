package persist

import (
	"context"
	"time"

	"pricebackfill/internal/model"

	"github.com/shopspring/decimal"
)

// Session is a unit of work over both tables. Writes become durable only on
// Commit; Rollback discards everything since the last Commit. Exists checks
// see the session's own uncommitted writes.
type Session interface {
	CandleTradeExists(ctx context.Context, ts time.Time, price decimal.Decimal) (bool, error)
	// CreateCandleTrade reports false when the natural key was already taken.
	CreateCandleTrade(ctx context.Context, row *model.CandleTrade) (bool, error)
	CountCandleTrades(ctx context.Context) (int64, error)

	SwapEventExists(ctx context.Context, txHash string, logIndex uint) (bool, error)
	CreateSwapEvent(ctx context.Context, row *model.SwapEvent) (bool, error)
	CountSwapEvents(ctx context.Context) (int64, error)

	Commit() error
	Rollback() error
	Close() error
}
