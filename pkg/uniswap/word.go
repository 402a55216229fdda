package uniswap

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	int256Word  = wordArgs("int256")
	uint256Word = wordArgs("uint256")

	// amountArgs is the leading (amount0, amount1) pair of the Swap payload.
	amountArgs = abi.Arguments{
		{Name: "amount0", Type: int256Word[0].Type},
		{Name: "amount1", Type: int256Word[0].Type},
	}
)

func wordArgs(typ string) abi.Arguments {
	t, err := abi.NewType(typ, "", nil)
	if err != nil {
		panic(fmt.Sprintf("abi type %s: %v", typ, err))
	}
	return abi.Arguments{{Type: t}}
}

var errWordRange = errors.New("value does not fit in 256 bits")

// ToSigned256 reinterprets an unsigned 256-bit word as two's complement:
// values at or above 2^255 become u - 2^256.
func ToSigned256(u *big.Int) (*big.Int, error) {
	if u.Sign() < 0 || u.BitLen() > 256 {
		return nil, errWordRange
	}
	word, err := uint256Word.Pack(u)
	if err != nil {
		return nil, err
	}
	return unpackWord(int256Word, word)
}

// ToUnsigned256 is the inverse of ToSigned256.
func ToUnsigned256(s *big.Int) (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 255)
	if s.Cmp(limit) >= 0 || s.Cmp(new(big.Int).Neg(limit)) < 0 {
		return nil, errWordRange
	}
	word, err := int256Word.Pack(s)
	if err != nil {
		return nil, err
	}
	return unpackWord(uint256Word, word)
}

func unpackWord(args abi.Arguments, word []byte) (*big.Int, error) {
	out, err := args.Unpack(word)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected word type %T", out[0])
	}
	return v, nil
}
