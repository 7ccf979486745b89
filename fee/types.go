package fee

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DecimalsWei is the number of decimals between the native unit and wei.
const DecimalsWei = 18

// FeeQuote is the fee market at a given block together with the caller's
// declared willingness to pay. All amounts are wei.
type FeeQuote struct {
	BaseFeePerGas        *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// MarketQuote is the provider's fee suggestion. GasPrice is the legacy
// single-price quote; the other two form the EIP-1559 cap/tip pair.
type MarketQuote struct {
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

type Block struct {
	Number        *big.Int
	BaseFeePerGas *big.Int
}

// Request is a pending value transfer before fee fields are attached.
// A nil To is a contract creation.
type Request struct {
	From  common.Address
	To    *common.Address
	Value *big.Int
	Data  []byte
}
