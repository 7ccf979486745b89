package fee

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

//go:generate mockgen -destination=mocks/mock_provider.go -package=mocks . Provider

// FeeQuoter returns the market fee suggestion.
type FeeQuoter interface {
	FeeQuote(ctx context.Context) (*MarketQuote, error)
}

type BlockReader interface {
	LatestBlock(ctx context.Context) (*Block, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*Block, error)
}

// GasEstimator simulates req against current chain state. A simulation that
// reverts must fail with an error wrapping ErrSimulationReverted.
type GasEstimator interface {
	EstimateGas(ctx context.Context, req Request) (uint64, error)
}

type BalanceReader interface {
	Balance(ctx context.Context, address common.Address) (*big.Int, error)
}

// Provider is the chain-state surface the strategies read from.
type Provider interface {
	FeeQuoter
	BlockReader
	GasEstimator
}
