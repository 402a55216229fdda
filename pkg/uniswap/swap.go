package uniswap

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"pricebackfill/internal/model"
	"pricebackfill/pkg/etherscan"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

var (
	ErrShortPayload     = errors.New("swap payload shorter than two words")
	ErrMalformedPayload = errors.New("swap payload is not valid hex")
	ErrMalformedField   = errors.New("malformed log field")
	ErrOutsideWindow    = errors.New("swap outside requested window")
)

// amountsHexLen is two 32-byte words in hex.
const amountsHexLen = 128

// Decoder turns raw Swap logs into SwapEvents. Token decimals scale the raw
// integer deltas (6 for USDC as token0, 18 for WETH as token1 by default).
type Decoder struct {
	Token0Decimals int32
	Token1Decimals int32
}

func NewDecoder(token0Decimals, token1Decimals int32) Decoder {
	return Decoder{Token0Decimals: token0Decimals, Token1Decimals: token1Decimals}
}

// Decode is pure: it either returns a row or an error naming why the log was
// rejected. Logs whose block time falls outside window are rejected because
// the provider filters by block, not by time.
func (d Decoder) Decode(log etherscan.Log, window model.Window) (model.SwapEvent, error) {
	amount0, amount1, err := d.Amounts(log.Data)
	if err != nil {
		return model.SwapEvent{}, err
	}

	ts, err := parseHexUint(log.TimeStamp)
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("%w: timeStamp %q: %v", ErrMalformedField, log.TimeStamp, err)
	}
	if !window.ContainsUnix(int64(ts)) {
		return model.SwapEvent{}, fmt.Errorf("%w: %s", ErrOutsideWindow, time.Unix(int64(ts), 0).UTC().Format(time.RFC3339))
	}

	logIndex, err := parseHexUint(log.LogIndex)
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("%w: logIndex %q: %v", ErrMalformedField, log.LogIndex, err)
	}
	block, err := parseHexUint(log.BlockNumber)
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("%w: blockNumber %q: %v", ErrMalformedField, log.BlockNumber, err)
	}
	if log.TransactionHash == "" {
		return model.SwapEvent{}, fmt.Errorf("%w: empty transactionHash", ErrMalformedField)
	}

	return model.SwapEvent{
		TransactionHash: log.TransactionHash,
		LogIndex:        uint(logIndex),
		BlockNumber:     block,
		Timestamp:       time.Unix(int64(ts), 0).UTC(),
		Amount0:         amount0,
		Amount1:         amount1,
		Price:           Price(amount0, amount1),
	}, nil
}

// Amounts decodes the signed, decimal-scaled token deltas from a hex payload.
func (d Decoder) Amounts(data string) (decimal.Decimal, decimal.Decimal, error) {
	payload := strings.TrimPrefix(data, "0x")
	if len(payload) < amountsHexLen {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %d hex chars", ErrShortPayload, len(payload))
	}

	words, err := hexutil.Decode("0x" + payload[:amountsHexLen])
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	values, err := amountArgs.Unpack(words)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	raw0, ok0 := values[0].(*big.Int)
	raw1, ok1 := values[1].(*big.Int)
	if !ok0 || !ok1 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: unexpected word types %T, %T", ErrMalformedPayload, values[0], values[1])
	}

	return decimal.NewFromBigInt(raw0, -d.Token0Decimals),
		decimal.NewFromBigInt(raw1, -d.Token1Decimals),
		nil
}

// Price is |amount0 / amount1|, or zero when amount1 is zero.
func Price(amount0, amount1 decimal.Decimal) decimal.Decimal {
	if amount1.IsZero() {
		return decimal.Zero
	}
	return amount0.Div(amount1).Abs()
}

// parseHexUint accepts the provider's quantity encoding, including "0x" for
// zero and leading zeros, which hexutil rejects.
func parseHexUint(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 16, 64)
}
