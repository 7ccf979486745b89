package fee

import (
	"math/big"

	"github.com/JokingLove/eip1559-fee-strategy/common/bigint"
)

// EffectiveGasPrice returns the price per gas actually paid under EIP-1559:
//
//	priority = min(maxPriorityFeePerGas, maxFeePerGas - baseFeePerGas)
//	price    = baseFeePerGas + priority
//
// The subtraction is signed and unguarded. When the fee cap is below the base
// fee the priority part is negative and the result drops below the base fee;
// callers needing a floor must clamp themselves. Nil fields count as zero.
// Inputs are never modified.
func EffectiveGasPrice(q FeeQuote) *big.Int {
	priority := PriorityFeePerGas(q)
	return priority.Add(priority, orZero(q.BaseFeePerGas))
}

// PriorityFeePerGas returns the tip part of EffectiveGasPrice.
func PriorityFeePerGas(q FeeQuote) *big.Int {
	headroom := new(big.Int).Sub(orZero(q.MaxFeePerGas), orZero(q.BaseFeePerGas))
	tip := orZero(q.MaxPriorityFeePerGas)
	if tip.Cmp(headroom) <= 0 {
		return new(big.Int).Set(tip)
	}
	return headroom
}

// EffectiveGasPriceChecked is EffectiveGasPrice with the 256-bit bound of the
// chain's integer type enforced on every input and on the result. Values
// outside that range fail with ErrArithmeticOverflow rather than being wrapped.
func EffectiveGasPriceChecked(q FeeQuote) (*big.Int, error) {
	for _, v := range []*big.Int{q.BaseFeePerGas, q.MaxFeePerGas, q.MaxPriorityFeePerGas} {
		if !bigint.Fits256(v) {
			return nil, ErrArithmeticOverflow
		}
	}
	price := EffectiveGasPrice(q)
	if !bigint.Fits256(price) {
		return nil, ErrArithmeticOverflow
	}
	return price, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
