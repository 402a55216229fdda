package binance

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pricebackfill/internal/model"

	"github.com/shopspring/decimal"
)

// ErrMalformedKline marks a row that cannot become a CandleTrade.
var ErrMalformedKline = errors.New("malformed kline")

const (
	fieldOpenTime = 0
	fieldClose    = 4
	fieldVolume   = 5
	minFields     = 6
)

// ParseKline converts one kline row into a CandleTrade: open time becomes the
// timestamp, close the price and volume the quantity.
func ParseKline(row KlineRow) (model.CandleTrade, error) {
	openTime, err := OpenTime(row)
	if err != nil {
		return model.CandleTrade{}, err
	}

	price, err := decimalField(row, fieldClose, "close")
	if err != nil {
		return model.CandleTrade{}, err
	}
	quantity, err := decimalField(row, fieldVolume, "volume")
	if err != nil {
		return model.CandleTrade{}, err
	}

	return model.CandleTrade{
		Timestamp: time.UnixMilli(openTime).UTC(),
		Price:     price,
		Quantity:  quantity,
	}, nil
}

// OpenTime returns the raw millisecond open time, which drives the cursor.
func OpenTime(row KlineRow) (int64, error) {
	if len(row) < minFields {
		return 0, fmt.Errorf("%w: %d fields, need %d", ErrMalformedKline, len(row), minFields)
	}
	s, err := scalar(row[fieldOpenTime])
	if err != nil {
		return 0, fmt.Errorf("%w: open time: %v", ErrMalformedKline, err)
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: open time %q: %v", ErrMalformedKline, s, err)
	}
	return ms, nil
}

func decimalField(row KlineRow, idx int, name string) (decimal.Decimal, error) {
	s, err := scalar(row[idx])
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrMalformedKline, name, err)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q: %v", ErrMalformedKline, name, s, err)
	}
	return d, nil
}

// scalar unwraps a JSON number or a JSON string holding a number.
func scalar(raw json.RawMessage) (string, error) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		s = strings.TrimSpace(s)
	}
	if s == "" || s == "null" {
		return "", errors.New("empty value")
	}
	return s, nil
}
