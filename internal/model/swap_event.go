package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SwapEvent is one decoded Uniswap Swap log. (TransactionHash, LogIndex) is the
// natural key.
type SwapEvent struct {
	ID uint `gorm:"primaryKey"`

	TransactionHash string `gorm:"type:varchar(66);not null;index:idx_uniswap_swaps_tx_log,unique"`
	LogIndex        uint   `gorm:"not null;index:idx_uniswap_swaps_tx_log,unique"`

	BlockNumber uint64    `gorm:"not null;index:idx_uniswap_swaps_block"`
	Timestamp   time.Time `gorm:"not null;index:idx_uniswap_swaps_timestamp"`

	Amount0 decimal.Decimal `gorm:"type:numeric;not null"` // token0 delta, signed
	Amount1 decimal.Decimal `gorm:"type:numeric;not null"` // token1 delta, signed
	Price   decimal.Decimal `gorm:"type:numeric;not null"` // |amount0 / amount1|

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (SwapEvent) TableName() string {
	return "uniswap_swaps"
}
