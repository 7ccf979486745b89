package fee

import (
	"math/big"
)

// Settlement is the fee outcome of an included transaction.
type Settlement struct {
	BlockNumber       *big.Int
	BaseFeePerGas     *big.Int
	EffectiveGasPrice *big.Int
	GasUsed           uint64

	// FeeReserved is GasLimit * EffectiveGasPrice, the upper bound the sender
	// committed to at the inclusion block's base fee.
	FeeReserved *big.Int
	// FeeCharged is GasUsed * EffectiveGasPrice.
	FeeCharged *big.Int
	// FeeBurnt is GasUsed * BaseFeePerGas.
	FeeBurnt *big.Int
}

// Settle prices env against the block it was included in. Legacy envelopes
// pay their gas price; dynamic ones pay the EIP-1559 effective gas price at
// the block's base fee.
func Settle(env *Envelope, block *Block, gasUsed uint64) (*Settlement, error) {
	if block == nil || block.BaseFeePerGas == nil {
		return nil, ErrMissingBaseFee
	}
	var price *big.Int
	if env.IsLegacy() {
		price = new(big.Int).Set(env.GasPrice)
	} else {
		var err error
		price, err = EffectiveGasPriceChecked(FeeQuote{
			BaseFeePerGas:        block.BaseFeePerGas,
			MaxFeePerGas:         env.MaxFeePerGas,
			MaxPriorityFeePerGas: env.MaxPriorityFeePerGas,
		})
		if err != nil {
			return nil, err
		}
	}
	used := new(big.Int).SetUint64(gasUsed)
	return &Settlement{
		BlockNumber:       new(big.Int).Set(orZero(block.Number)),
		BaseFeePerGas:     new(big.Int).Set(block.BaseFeePerGas),
		EffectiveGasPrice: price,
		GasUsed:           gasUsed,
		FeeReserved:       new(big.Int).Mul(price, new(big.Int).SetUint64(env.GasLimit)),
		FeeCharged:        new(big.Int).Mul(price, used),
		FeeBurnt:          new(big.Int).Mul(block.BaseFeePerGas, used),
	}, nil
}
