package worker

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/JokingLove/eip1559-fee-strategy/common/bigint"
	"github.com/JokingLove/eip1559-fee-strategy/common/tasks"
	"github.com/JokingLove/eip1559-fee-strategy/config"
	"github.com/JokingLove/eip1559-fee-strategy/database"
	"github.com/JokingLove/eip1559-fee-strategy/fee"
)

const storeAttempts = 10

type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*fee.Block, error)
}

// Reconciler settles broadcast ledger rows against the block that included
// them.
type Reconciler struct {
	client         ReceiptReader
	ledger         database.FeeTransactionsDB
	batch          int
	symbol         string
	resourceCtx    context.Context
	resourceCancel context.CancelFunc
	tasks          tasks.Group
	ticker         *time.Ticker
	retryStrategy  func() backoff.BackOff
}

func NewReconciler(cfg *config.Config,
	ledger database.FeeTransactionsDB,
	client ReceiptReader,
	shutdown context.CancelCauseFunc) (*Reconciler, error) {
	resCtx, resCancel := context.WithCancel(context.Background())
	return &Reconciler{
		client:         client,
		ledger:         ledger,
		batch:          cfg.ReconcileBatch,
		symbol:         cfg.Network.Symbol,
		resourceCtx:    resCtx,
		resourceCancel: resCancel,
		tasks: tasks.Group{HandleCrit: func(err error) {
			shutdown(fmt.Errorf("critical error in reconciler : %w", err))
		}},
		ticker: time.NewTicker(cfg.ReconcileInterval),
		retryStrategy: func() backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(time.Second),
				backoff.WithMaxInterval(20*time.Second),
			)
		},
	}, nil
}

func (r *Reconciler) Start() error {
	log.Info("starting reconciler...")
	r.tasks.Go(func() error {
		for {
			select {
			case <-r.ticker.C:
				if _, err := r.ReconcileOnce(r.resourceCtx); err != nil {
					log.Error("reconcile fee transactions fail", "err", err)
				}
			case <-r.resourceCtx.Done():
				log.Info("stop reconciler in worker")
				return nil
			}
		}
	})
	return nil
}

func (r *Reconciler) Close() error {
	var result error
	r.resourceCancel()
	r.ticker.Stop()
	log.Info("stop reconciler......")
	if err := r.tasks.Wait(); err != nil {
		result = errors.Join(result, fmt.Errorf("failed to await reconciler : %w", err))
		return result
	}
	log.Info("stop reconciler success")
	return nil
}

// ReconcileOnce settles every broadcast row whose receipt is available and
// returns how many were settled. Rows still pending stay broadcasted.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (int, error) {
	pending, err := r.ledger.UnreconciledList(r.batch)
	if err != nil {
		log.Error("query unreconciled fee transactions fail", "err", err)
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	settled := 0
	for _, tx := range pending {
		settlement, err := r.settle(ctx, tx)
		if err != nil {
			log.Error("settle fee transaction fail", "hash", tx.Hash, "err", err)
			continue
		}
		if settlement == nil {
			continue
		}

		strategy := backoff.WithContext(backoff.WithMaxRetries(r.retryStrategy(), storeAttempts), ctx)
		if err := backoff.Retry(func() error {
			return r.ledger.MarkReconciled(tx.Hash, settlement)
		}, strategy); err != nil {
			log.Error("update fee transaction status fail", "hash", tx.Hash, "err", err)
			return settled, err
		}
		settled++

		log.Info("fee transaction reconciled",
			"hash", tx.Hash,
			"block", settlement.BlockNumber,
			"effectiveGasPrice", settlement.EffectiveGasPrice,
			"feeCharged", bigint.FormatUnits(settlement.FeeCharged, fee.DecimalsWei),
			"feeBurnt", bigint.FormatUnits(settlement.FeeBurnt, fee.DecimalsWei),
			"symbol", r.symbol)
	}
	return settled, nil
}

func (r *Reconciler) settle(ctx context.Context, tx *database.FeeTransactions) (*fee.Settlement, error) {
	receipt, err := r.client.TransactionReceipt(ctx, tx.Hash)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, nil
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		log.Warn("fee transaction reverted on chain", "hash", tx.Hash, "block", receipt.BlockNumber)
	}

	block, err := r.client.BlockByNumber(ctx, receipt.BlockNumber)
	if err != nil {
		return nil, err
	}
	settlement, err := fee.Settle(tx.Envelope(), block, receipt.GasUsed)
	if err != nil {
		return nil, err
	}
	if receipt.EffectiveGasPrice != nil && receipt.EffectiveGasPrice.Cmp(settlement.EffectiveGasPrice) != 0 {
		log.Warn("effective gas price differs from receipt",
			"hash", tx.Hash,
			"computed", settlement.EffectiveGasPrice,
			"receipt", receipt.EffectiveGasPrice)
	}
	return settlement, nil
}
