package uniswap

import (
	"errors"
	"math/big"
	"math/rand"
	"strings"
	"testing"
	"time"

	"pricebackfill/internal/model"
	"pricebackfill/pkg/etherscan"

	"github.com/shopspring/decimal"
)

var septemberWindow = model.Window{
	Start: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2025, 9, 30, 23, 59, 59, 0, time.UTC),
}

func swapLog(data string) etherscan.Log {
	return etherscan.Log{
		Data:            data,
		TransactionHash: "0x5e1f",
		LogIndex:        "0x1a",
		BlockNumber:     "0x162f9c0",
		TimeStamp:       "0x68b5e100", // 2025-09-01T18:08:00Z
	}
}

// go test -v --run TestSwapTopic
func TestSwapTopic(t *testing.T) {
	const want = "0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67"
	if got := SwapTopic.Hex(); got != want {
		t.Errorf("SwapTopic = %s, want %s", got, want)
	}
}

// go test -v --run TestDecodeNegativeAmount
func TestDecodeNegativeAmount(t *testing.T) {
	data := "0x" + strings.Repeat("0", 63) + "1" + strings.Repeat("f", 64)

	ev, err := NewDecoder(6, 18).Decode(swapLog(data), septemberWindow)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if !ev.Amount0.Equal(decimal.New(1, -6)) {
		t.Errorf("amount0 = %s, want 1e-6", ev.Amount0)
	}
	if !ev.Amount1.Equal(decimal.New(-1, -18)) {
		t.Errorf("amount1 = %s, want -1e-18", ev.Amount1)
	}
	if !ev.Price.Equal(decimal.New(1, 12)) {
		t.Errorf("price = %s, want 1e12", ev.Price)
	}
	if ev.LogIndex != 26 || ev.BlockNumber != 0x162f9c0 || ev.TransactionHash != "0x5e1f" {
		t.Errorf("unexpected identity fields: %+v", ev)
	}
	if !ev.Timestamp.Equal(time.Unix(0x68b5e100, 0)) || ev.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp = %s", ev.Timestamp)
	}
}

// go test -v --run TestDecodeFullSwapPayload
func TestDecodeFullSwapPayload(t *testing.T) {
	// amount0 = +2500 USDC, amount1 = -1 WETH, followed by sqrtPrice, liquidity and tick words
	amount0, _ := new(big.Int).SetString("2500000000", 10)
	amount1, _ := new(big.Int).SetString("-1000000000000000000", 10)
	data := "0x" + word(t, amount0) + word(t, amount1) + strings.Repeat("0", 64*3)

	ev, err := NewDecoder(6, 18).Decode(swapLog(data), septemberWindow)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !ev.Amount0.Equal(decimal.NewFromInt(2500)) || !ev.Amount1.Equal(decimal.NewFromInt(-1)) {
		t.Errorf("amounts = %s, %s", ev.Amount0, ev.Amount1)
	}
	if !ev.Price.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("price = %s", ev.Price)
	}
}

func word(t *testing.T, v *big.Int) string {
	t.Helper()
	u, err := ToUnsigned256(v)
	if err != nil {
		t.Fatalf("ToUnsigned256(%s): %v", v, err)
	}
	s := u.Text(16)
	return strings.Repeat("0", 64-len(s)) + s
}

// go test -v --run TestDecodeRejects
func TestDecodeRejects(t *testing.T) {
	valid := "0x" + strings.Repeat("0", 63) + "1" + strings.Repeat("0", 63) + "2"

	tests := []struct {
		name   string
		mutate func(*etherscan.Log)
		want   error
	}{
		{"short payload", func(l *etherscan.Log) { l.Data = "0x" + strings.Repeat("0", 127) }, ErrShortPayload},
		{"empty payload", func(l *etherscan.Log) { l.Data = "0x" }, ErrShortPayload},
		{"non hex payload", func(l *etherscan.Log) { l.Data = "0x" + strings.Repeat("g", 128) }, ErrMalformedPayload},
		{"before window", func(l *etherscan.Log) { l.TimeStamp = "0x68b4e1ff" }, ErrOutsideWindow},
		{"after window", func(l *etherscan.Log) { l.TimeStamp = "0x68dc6f00" }, ErrOutsideWindow},
		{"bad timestamp", func(l *etherscan.Log) { l.TimeStamp = "0xzz" }, ErrMalformedField},
		{"bad log index", func(l *etherscan.Log) { l.LogIndex = "0xq" }, ErrMalformedField},
		{"missing hash", func(l *etherscan.Log) { l.TransactionHash = "" }, ErrMalformedField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := swapLog(valid)
			tt.mutate(&l)
			_, err := NewDecoder(6, 18).Decode(l, septemberWindow)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

// go test -v --run TestDecodeWindowBoundsInclusive
func TestDecodeWindowBoundsInclusive(t *testing.T) {
	valid := "0x" + strings.Repeat("0", 63) + "1" + strings.Repeat("0", 63) + "2"
	for _, ts := range []string{"0x68b4e200", "0x68dc6eff"} { // 2025-09-01T00:00:00Z, 2025-09-30T23:59:59Z
		l := swapLog(valid)
		l.TimeStamp = ts
		if _, err := NewDecoder(6, 18).Decode(l, septemberWindow); err != nil {
			t.Errorf("timestamp %s: %v", ts, err)
		}
	}
}

// go test -v --run TestDecodeZeroLogIndex
func TestDecodeZeroLogIndex(t *testing.T) {
	l := swapLog("0x" + strings.Repeat("0", 128))
	l.LogIndex = "0x"
	ev, err := NewDecoder(6, 18).Decode(l, septemberWindow)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.LogIndex != 0 {
		t.Errorf("log index = %d", ev.LogIndex)
	}
	if !ev.Price.IsZero() {
		t.Errorf("price with zero amount1 = %s", ev.Price)
	}
}

// go test -v --run TestPriceSign
func TestPriceSign(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		a0 := decimal.New(rng.Int63n(2_000_000)-1_000_000, -int32(rng.Intn(7)))
		a1 := decimal.New(rng.Int63n(2_000_000)-1_000_000, -int32(rng.Intn(19)))
		p := Price(a0, a1)
		if p.IsNegative() {
			t.Fatalf("Price(%s, %s) = %s is negative", a0, a1, p)
		}
		if a1.IsZero() != p.IsZero() && !a0.IsZero() {
			t.Fatalf("Price(%s, %s) = %s: zero iff amount1 is zero", a0, a1, p)
		}
	}
	if !Price(decimal.NewFromInt(5), decimal.Zero).IsZero() {
		t.Error("price must be zero when amount1 is zero")
	}
}
