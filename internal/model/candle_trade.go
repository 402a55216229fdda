package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CandleTrade is one exchange price sample: the close and volume of a candle.
// (Timestamp, Price) is the natural key.
type CandleTrade struct {
	ID uint `gorm:"primaryKey"`

	Timestamp time.Time       `gorm:"not null;index:idx_binance_trades_timestamp_price,unique"`
	Price     decimal.Decimal `gorm:"type:numeric;not null;index:idx_binance_trades_timestamp_price,unique"`
	Quantity  decimal.Decimal `gorm:"type:numeric;not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (CandleTrade) TableName() string {
	return "binance_trades"
}
