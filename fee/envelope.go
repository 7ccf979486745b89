package fee

import (
	"math/big"
)

// Envelope is the gas limit plus exactly one of the two fee field shapes:
// a legacy GasPrice, or the MaxFeePerGas/MaxPriorityFeePerGas pair.
// A strategy returns a fresh envelope per call; it is not mutated afterwards.
type Envelope struct {
	Strategy Strategy
	GasLimit uint64

	GasPrice *big.Int

	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

func newLegacyEnvelope(strategy Strategy, gasLimit uint64, price *big.Int) *Envelope {
	return &Envelope{
		Strategy: strategy,
		GasLimit: gasLimit,
		GasPrice: new(big.Int).Set(price),
	}
}

// newDynamicEnvelope sets both cap and tip to the same price, each field with its own copy.
func newDynamicEnvelope(strategy Strategy, gasLimit uint64, price *big.Int) *Envelope {
	return &Envelope{
		Strategy:             strategy,
		GasLimit:             gasLimit,
		MaxFeePerGas:         new(big.Int).Set(price),
		MaxPriorityFeePerGas: new(big.Int).Set(price),
	}
}

func (e *Envelope) IsLegacy() bool {
	return e.GasPrice != nil
}

// PricePerGas is the price the strategy computed: GasPrice for legacy
// envelopes, MaxFeePerGas otherwise.
func (e *Envelope) PricePerGas() *big.Int {
	if e.IsLegacy() {
		return new(big.Int).Set(e.GasPrice)
	}
	return new(big.Int).Set(orZero(e.MaxFeePerGas))
}

// ExpectedFee is PricePerGas * GasLimit, the fee preview reported before submission.
func (e *Envelope) ExpectedFee() *big.Int {
	price := e.PricePerGas()
	return price.Mul(price, new(big.Int).SetUint64(e.GasLimit))
}
