package ingest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"pricebackfill/internal/model"
	"pricebackfill/pkg/binance"
	"pricebackfill/pkg/etherscan"
	"pricebackfill/pkg/uniswap"
)

var errTransport = errors.New("connection reset by peer")

var testWindow = model.Window{
	Start: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2025, 9, 1, 0, 4, 59, 0, time.UTC),
}

// fakeKlines serves one candle per minute between StartTime and EndTime.
type fakeKlines struct {
	calls  []binance.KlineQuery
	failAt int // 1-based call number that fails, 0 = never
	bad    map[int64]bool
}

func (f *fakeKlines) GetKlines(ctx context.Context, q binance.KlineQuery) ([]binance.KlineRow, error) {
	f.calls = append(f.calls, q)
	if f.failAt == len(f.calls) {
		return nil, errTransport
	}

	var rows []binance.KlineRow
	first := (q.StartTime + 59_999) / 60_000 * 60_000
	for open := first; open <= q.EndTime && len(rows) < q.Limit; open += 60_000 {
		if f.bad[open] {
			rows = append(rows, binance.KlineRow{[]byte(fmt.Sprint(open)), []byte(`"x"`)})
			continue
		}
		price := fmt.Sprintf(`"%d.50"`, 4000+open/60_000%100)
		rows = append(rows, binance.KlineRow{
			[]byte(fmt.Sprint(open)), []byte(`"1"`), []byte(`"1"`), []byte(`"1"`),
			[]byte(price), []byte(`"2.5"`), []byte(fmt.Sprint(open + 59_999)),
		})
	}
	return rows, nil
}

// fakeLogs returns queued errors for a chunk first, then its fixed logs.
type fakeLogs struct {
	calls []etherscan.LogQuery
	logs  map[uint64][]etherscan.Log
	errs  map[uint64][]error
}

func (f *fakeLogs) GetLogs(ctx context.Context, q etherscan.LogQuery) ([]etherscan.Log, error) {
	f.calls = append(f.calls, q)
	if queue := f.errs[q.FromBlock]; len(queue) > 0 {
		f.errs[q.FromBlock] = queue[1:]
		return nil, queue[0]
	}
	return f.logs[q.FromBlock], nil
}

func (f *fakeLogs) callsFrom(block uint64) int {
	n := 0
	for _, c := range f.calls {
		if c.FromBlock == block {
			n++
		}
	}
	return n
}

type fakeResolver struct {
	from, to uint64
	err      error
}

func (r fakeResolver) Resolve(ctx context.Context, ts time.Time, closest etherscan.Closest) (uint64, error) {
	if r.err != nil {
		return 0, r.err
	}
	if closest == etherscan.After {
		return r.from, nil
	}
	return r.to, nil
}

func word(v int64) string {
	u, err := uniswap.ToUnsigned256(big.NewInt(v))
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%064x", u)
}

// swap sells 1 WETH for 3000 USDC.
func swap(tx string, logIndex int) etherscan.Log {
	return etherscan.Log{
		Data:            "0x" + word(3_000_000_000) + word(-1_000_000_000_000_000_000) + strings.Repeat("0", 192),
		TransactionHash: tx,
		LogIndex:        fmt.Sprintf("0x%x", logIndex),
		BlockNumber:     "0x64",
		TimeStamp:       "0x68b5e100", // 2025-09-01T18:08:00Z
	}
}
