package feestrategy

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"

	"github.com/JokingLove/eip1559-fee-strategy/config"
	"github.com/JokingLove/eip1559-fee-strategy/database"
	"github.com/JokingLove/eip1559-fee-strategy/notifier"
	"github.com/JokingLove/eip1559-fee-strategy/rpcclient"
	"github.com/JokingLove/eip1559-fee-strategy/worker"
)

// FeeReconcile runs the reconciler and, when a notify URL is configured,
// the fee report notifier.
type FeeReconcile struct {
	db     *database.DB
	client *rpcclient.ChainClient

	reconciler *worker.Reconciler
	notifier   *notifier.Notifier

	shutdown context.CancelCauseFunc
	stopped  atomic.Bool
}

func NewFeeReconcile(ctx context.Context, cfg *config.Config, shutdown context.CancelCauseFunc) (*FeeReconcile, error) {
	db, err := database.NewDB(ctx, cfg.MasterDB)
	if err != nil {
		log.Error("init database fail", "err", err)
		return nil, err
	}

	client, err := rpcclient.Dial(ctx, cfg.Network.RpcUrl, cfg.RpcTimeout)
	if err != nil {
		log.Error("dial chain rpc fail", "err", err)
		_ = db.Close()
		return nil, err
	}

	reconciler, err := worker.NewReconciler(cfg, db.FeeTransactions, client, shutdown)
	if err != nil {
		log.Error("new reconciler fail", "err", err)
		return nil, err
	}

	var nf *notifier.Notifier
	if cfg.NotifyUrl != "" {
		nf, err = notifier.NewNotifier(cfg, db.FeeTransactions, shutdown)
		if err != nil {
			log.Error("new notifier fail", "err", err)
			return nil, err
		}
	} else {
		log.Info("notify url not set, fee reports disabled")
	}

	return &FeeReconcile{
		db:         db,
		client:     client,
		reconciler: reconciler,
		notifier:   nf,
		shutdown:   shutdown,
	}, nil
}

func (fr *FeeReconcile) Start(ctx context.Context) error {
	if err := fr.reconciler.Start(); err != nil {
		return fmt.Errorf("failed to start reconciler: %w", err)
	}
	if fr.notifier != nil {
		if err := fr.notifier.Start(ctx); err != nil {
			return fmt.Errorf("failed to start notifier: %w", err)
		}
	}
	return nil
}

func (fr *FeeReconcile) Stop(ctx context.Context) error {
	var result error
	if err := fr.reconciler.Close(); err != nil {
		result = errors.Join(result, fmt.Errorf("failed to close reconciler: %w", err))
	}
	if fr.notifier != nil {
		if err := fr.notifier.Stop(ctx); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to close notifier: %w", err))
		}
	}
	fr.client.Close()
	if err := fr.db.Close(); err != nil {
		result = errors.Join(result, fmt.Errorf("failed to close database: %w", err))
	}
	fr.stopped.Store(true)
	log.Info("fee reconcile stopped")
	return result
}

func (fr *FeeReconcile) Stopped() bool {
	return fr.stopped.Load()
}
