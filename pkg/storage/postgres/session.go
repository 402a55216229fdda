package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pricebackfill/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrSessionClosed = errors.New("postgres session closed")

// Session wraps one transaction at a time. A transaction begins lazily on the
// first read or write and ends on Commit or Rollback.
type Session struct {
	db     *gorm.DB
	tx     *gorm.DB
	closed bool
}

func (s *Session) begin(ctx context.Context) (*gorm.DB, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.tx == nil {
		tx := s.db.Begin()
		if tx.Error != nil {
			return nil, fmt.Errorf("begin transaction: %w", tx.Error)
		}
		s.tx = tx
	}
	return s.tx.WithContext(ctx), nil
}

func (s *Session) CandleTradeExists(ctx context.Context, ts time.Time, price decimal.Decimal) (bool, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return false, err
	}
	var n int64
	err = tx.Model(&model.CandleTrade{}).
		Where("timestamp = ? AND price = ?", ts, price).
		Count(&n).Error
	return n > 0, err
}

func (s *Session) CreateCandleTrade(ctx context.Context, row *model.CandleTrade) (bool, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return false, err
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "timestamp"}, {Name: "price"}},
		DoNothing: true,
	}).Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Session) CountCandleTrades(ctx context.Context) (int64, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	err = tx.Model(&model.CandleTrade{}).Count(&n).Error
	return n, err
}

func (s *Session) SwapEventExists(ctx context.Context, txHash string, logIndex uint) (bool, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return false, err
	}
	var n int64
	err = tx.Model(&model.SwapEvent{}).
		Where("transaction_hash = ? AND log_index = ?", txHash, logIndex).
		Count(&n).Error
	return n > 0, err
}

func (s *Session) CreateSwapEvent(ctx context.Context, row *model.SwapEvent) (bool, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return false, err
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_hash"}, {Name: "log_index"}},
		DoNothing: true,
	}).Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Session) CountSwapEvents(ctx context.Context) (int64, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	err = tx.Model(&model.SwapEvent{}).Count(&n).Error
	return n, err
}

// Commit is a no-op when nothing has been read or written since the last one.
func (s *Session) Commit() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit().Error
	s.tx = nil
	return err
}

func (s *Session) Rollback() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback().Error
	s.tx = nil
	return err
}

// Close rolls back anything uncommitted.
func (s *Session) Close() error {
	err := s.Rollback()
	s.closed = true
	return err
}
