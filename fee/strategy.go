package fee

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/JokingLove/eip1559-fee-strategy/common/bigint"
)

type Strategy uint8

const (
	StrategyUnknown Strategy = iota
	// StrategyMinimum pays the bare base fee as cap and tip. No priority
	// incentive, so the network may delay or reject the transaction.
	StrategyMinimum
	// StrategyLegacyNormal uses the quoted gas price as a legacy single price.
	StrategyLegacyNormal
	// StrategyNormal pays the EIP-1559 effective gas price of the market quote.
	StrategyNormal
	// StrategyHigh pays twice the effective gas price.
	StrategyHigh
	// StrategyStrict spreads a fixed total budget over the estimated gas limit.
	StrategyStrict
)

var strategyNames = map[Strategy]string{
	StrategyMinimum:      "minimum",
	StrategyLegacyNormal: "legacy",
	StrategyNormal:       "normal",
	StrategyHigh:         "high",
	StrategyStrict:       "strict",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

func ParseStrategy(s string) (Strategy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for strategy, n := range strategyNames {
		if n == name {
			return strategy, nil
		}
	}
	return StrategyUnknown, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Options carries per-call inputs that only some strategies use.
type Options struct {
	// Budget is the total fee in wei for StrategyStrict.
	Budget *big.Int
}

// Estimator turns a pending request into a fee envelope. Every call reads a
// fresh snapshot from the provider and keeps no state between calls.
type Estimator struct {
	provider Provider
	reporter Reporter
}

func NewEstimator(provider Provider, reporter Reporter) *Estimator {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Estimator{provider: provider, reporter: reporter}
}

func (e *Estimator) Estimate(ctx context.Context, strategy Strategy, req Request, opts Options) (*Envelope, error) {
	switch strategy {
	case StrategyMinimum:
		return e.MinimumFee(ctx, req)
	case StrategyLegacyNormal:
		return e.LegacyNormalFee(ctx, req)
	case StrategyNormal:
		return e.NormalFee(ctx, req)
	case StrategyHigh:
		return e.HighFee(ctx, req)
	case StrategyStrict:
		return e.StrictFee(ctx, req, opts.Budget)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, strategy)
	}
}

func (e *Estimator) MinimumFee(ctx context.Context, req Request) (*Envelope, error) {
	snap, err := e.snapshot(ctx, req, true, false)
	if err != nil {
		return nil, err
	}
	return e.finish(newDynamicEnvelope(StrategyMinimum, snap.gasLimit, snap.block.BaseFeePerGas)), nil
}

func (e *Estimator) LegacyNormalFee(ctx context.Context, req Request) (*Envelope, error) {
	snap, err := e.snapshot(ctx, req, false, true)
	if err != nil {
		return nil, err
	}
	if snap.quote.GasPrice == nil {
		return nil, errors.Wrap(ErrProviderUnavailable, "fee quote without gas price")
	}
	return e.finish(newLegacyEnvelope(StrategyLegacyNormal, snap.gasLimit, snap.quote.GasPrice)), nil
}

func (e *Estimator) NormalFee(ctx context.Context, req Request) (*Envelope, error) {
	snap, err := e.snapshot(ctx, req, true, true)
	if err != nil {
		return nil, err
	}
	price, err := snap.effectiveGasPrice()
	if err != nil {
		return nil, err
	}
	return e.finish(newDynamicEnvelope(StrategyNormal, snap.gasLimit, price)), nil
}

// HighFee doubles the computed effective price, not the raw quote.
func (e *Estimator) HighFee(ctx context.Context, req Request) (*Envelope, error) {
	snap, err := e.snapshot(ctx, req, true, true)
	if err != nil {
		return nil, err
	}
	price, err := snap.effectiveGasPrice()
	if err != nil {
		return nil, err
	}
	doubled := new(big.Int).Lsh(price, 1)
	if !bigint.Fits256(doubled) {
		return nil, ErrArithmeticOverflow
	}
	return e.finish(newDynamicEnvelope(StrategyHigh, snap.gasLimit, doubled)), nil
}

// StrictFee reserves the currently required fee (quoted gas price * gas
// limit), spreads the rest of budget evenly over the gas limit and adds it back
// to the quoted price. The result equals budget / gasLimit. Division truncates,
// so up to gasLimit-1 wei of the budget stay unused and the fee never exceeds it.
func (e *Estimator) StrictFee(ctx context.Context, req Request, budget *big.Int) (*Envelope, error) {
	if budget == nil {
		return nil, ErrMissingBudget
	}
	snap, err := e.snapshot(ctx, req, false, true)
	if err != nil {
		return nil, err
	}
	if snap.quote.GasPrice == nil {
		return nil, errors.Wrap(ErrProviderUnavailable, "fee quote without gas price")
	}
	price, err := StrictPricePerGas(budget, snap.quote.GasPrice, snap.gasLimit)
	if err != nil {
		return nil, err
	}
	return e.finish(newDynamicEnvelope(StrategyStrict, snap.gasLimit, price)), nil
}

// StrictPricePerGas is the arithmetic of StrictFee. A budget smaller than the
// required fee fails with ErrBudgetBelowRequiredFee instead of yielding a
// negative price.
func StrictPricePerGas(budget, gasPrice *big.Int, gasLimit uint64) (*big.Int, error) {
	if gasLimit == 0 {
		return nil, ErrZeroGasLimit
	}
	if !bigint.Fits256(budget) {
		return nil, ErrArithmeticOverflow
	}
	gasPrice = orZero(gasPrice)
	limit := new(big.Int).SetUint64(gasLimit)
	required, err := bigint.CheckedMul(gasPrice, limit)
	if err != nil {
		return nil, err
	}
	remaining := new(big.Int).Sub(budget, required)
	if remaining.Sign() < 0 {
		return nil, errors.Wrapf(ErrBudgetBelowRequiredFee, "budget %s, required %s", budget, required)
	}
	adjustment := new(big.Int).Quo(remaining, limit)
	return adjustment.Add(adjustment, gasPrice), nil
}

func (e *Estimator) finish(env *Envelope) *Envelope {
	e.reporter.ReportExpectedFee(env)
	return env
}

type snapshot struct {
	gasLimit uint64
	block    *Block
	quote    *MarketQuote
}

// snapshot issues the gas simulation and, when asked, the latest block and fee
// quote lookups concurrently. The first failure cancels the rest and is
// returned unchanged.
func (e *Estimator) snapshot(ctx context.Context, req Request, withBlock, withQuote bool) (*snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		gasLimit, err := e.provider.EstimateGas(gctx, req)
		if err != nil {
			return err
		}
		snap.gasLimit = gasLimit
		return nil
	})
	if withBlock {
		g.Go(func() error {
			block, err := e.provider.LatestBlock(gctx)
			if err != nil {
				return err
			}
			if block == nil || block.BaseFeePerGas == nil {
				return ErrMissingBaseFee
			}
			snap.block = block
			return nil
		})
	}
	if withQuote {
		g.Go(func() error {
			quote, err := e.provider.FeeQuote(gctx)
			if err != nil {
				return err
			}
			if quote == nil {
				return errors.Wrap(ErrProviderUnavailable, "empty fee quote")
			}
			snap.quote = quote
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *snapshot) effectiveGasPrice() (*big.Int, error) {
	if s.quote.MaxFeePerGas == nil || s.quote.MaxPriorityFeePerGas == nil {
		return nil, errors.Wrap(ErrProviderUnavailable, "fee quote without EIP-1559 fields")
	}
	return EffectiveGasPriceChecked(FeeQuote{
		BaseFeePerGas:        s.block.BaseFeePerGas,
		MaxFeePerGas:         s.quote.MaxFeePerGas,
		MaxPriorityFeePerGas: s.quote.MaxPriorityFeePerGas,
	})
}

// Package-level entry points with a silent reporter, one per strategy.

func EstimateMinimumFee(ctx context.Context, provider Provider, req Request) (*Envelope, error) {
	return NewEstimator(provider, nil).MinimumFee(ctx, req)
}

func EstimateLegacyNormalFee(ctx context.Context, provider Provider, req Request) (*Envelope, error) {
	return NewEstimator(provider, nil).LegacyNormalFee(ctx, req)
}

func EstimateNormalFee(ctx context.Context, provider Provider, req Request) (*Envelope, error) {
	return NewEstimator(provider, nil).NormalFee(ctx, req)
}

func EstimateHighFee(ctx context.Context, provider Provider, req Request) (*Envelope, error) {
	return NewEstimator(provider, nil).HighFee(ctx, req)
}

func EstimateStrictFee(ctx context.Context, provider Provider, req Request, budget *big.Int) (*Envelope, error) {
	return NewEstimator(provider, nil).StrictFee(ctx, req, budget)
}
