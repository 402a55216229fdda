package binance

import "encoding/json"

// KlineRow is one kline as served by /api/v3/klines: a positional array
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, trades, ...].
// Numbers arrive either bare or as strings, so fields stay raw until parsed.
type KlineRow []json.RawMessage

// KlineQuery carries the request parameters for one page.
type KlineQuery struct {
	Symbol    string
	Interval  string
	StartTime int64 // ms, inclusive
	EndTime   int64 // ms, inclusive
	Limit     int
}
