package uniswap

import "github.com/ethereum/go-ethereum/crypto"

// SwapSignature is the Uniswap V3 pool Swap event.
const SwapSignature = "Swap(address,address,int256,int256,uint160,uint128,int24)"

// SwapTopic is topic0 of every V3 Swap log.
var SwapTopic = crypto.Keccak256Hash([]byte(SwapSignature))
