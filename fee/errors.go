package fee

import (
	"github.com/pkg/errors"

	"github.com/JokingLove/eip1559-fee-strategy/common/bigint"
)

var (
	// ErrProviderUnavailable marks a chain-state query that could not be
	// completed (transport failure, timeout, missing data). Retrying is up to the caller.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrSimulationReverted marks a gas estimation showing the transaction would fail on-chain.
	ErrSimulationReverted = errors.New("simulation reverted")

	ErrArithmeticOverflow = bigint.ErrOverflow

	ErrBudgetBelowRequiredFee = errors.New("fee budget below required fee")
	ErrMissingBudget          = errors.New("strict fee strategy requires a budget")
	ErrZeroGasLimit           = errors.New("estimated gas limit is zero")
	ErrMissingBaseFee         = errors.New("block has no base fee")
	ErrUnknownStrategy        = errors.New("unknown fee strategy")
)
