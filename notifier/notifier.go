package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/JokingLove/eip1559-fee-strategy/common/tasks"
	"github.com/JokingLove/eip1559-fee-strategy/config"
	"github.com/JokingLove/eip1559-fee-strategy/database"
)

// Notifier delivers fee reports of reconciled ledger rows to the webhook.
type Notifier struct {
	ledger         database.FeeTransactionsDB
	notifyClient   *NotifyClient
	network        config.Network
	batch          int
	resourceCtx    context.Context
	resourceCancel context.CancelFunc
	tasks          tasks.Group
	ticker         *time.Ticker

	stopped atomic.Bool
}

func NewNotifier(cfg *config.Config, ledger database.FeeTransactionsDB, shutdown context.CancelCauseFunc) (*Notifier, error) {
	client, err := NewNotifyClient(cfg.NotifyUrl)
	if err != nil {
		log.Error("new notify client failed", "url", cfg.NotifyUrl, "err", err)
		return nil, err
	}

	resCtx, resCancel := context.WithCancel(context.Background())
	return &Notifier{
		ledger:         ledger,
		notifyClient:   client,
		network:        cfg.Network,
		batch:          cfg.ReconcileBatch,
		resourceCtx:    resCtx,
		resourceCancel: resCancel,
		tasks: tasks.Group{
			HandleCrit: func(err error) {
				shutdown(fmt.Errorf("critical error in notifier: %w", err))
			},
		},
		ticker: time.NewTicker(cfg.ReconcileInterval),
	}, nil
}

func (nf *Notifier) Start(ctx context.Context) error {
	log.Info("start notifier......")
	nf.tasks.Go(func() error {
		for {
			select {
			case <-nf.ticker.C:
				if err := nf.NotifyOnce(nf.resourceCtx); err != nil {
					log.Error("notify fee reports failed", "err", err)
				}
			case <-nf.resourceCtx.Done():
				log.Info("stop notifier in worker")
				return nil
			}
		}
	})
	return nil
}

// NotifyOnce posts every pending report in one request and marks the rows
// notified once the receiver accepted them.
func (nf *Notifier) NotifyOnce(ctx context.Context) error {
	pending, err := nf.ledger.UnnotifiedList(nf.batch)
	if err != nil {
		log.Error("query unnotified fee transactions failed", "err", err)
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	request := &NotifyRequest{Network: nf.network.Name}
	hashes := make([]common.Hash, 0, len(pending))
	for _, tx := range pending {
		request.Reports = append(request.Reports, NewFeeReport(tx, nf.network.ExplorerTxURL(tx.Hash)))
		hashes = append(hashes, tx.Hash)
	}

	success, err := nf.notifyClient.NotifyFee(ctx, request)
	if err != nil {
		log.Error("notify fee reports failed", "reports", len(hashes), "err", err)
		return err
	}
	if !success {
		log.Warn("notify receiver rejected fee reports", "reports", len(hashes))
		return nil
	}

	if err := nf.ledger.MarkNotified(hashes); err != nil {
		log.Error("mark fee transactions notified failed", "err", err)
		return err
	}
	log.Info("fee reports notified", "reports", len(hashes))
	return nil
}

func (nf *Notifier) Stop(ctx context.Context) error {
	var result error
	nf.resourceCancel()
	nf.ticker.Stop()
	if err := nf.tasks.Wait(); err != nil {
		result = errors.Join(result, fmt.Errorf("failed to await notify %w", err))
		return result
	}
	nf.stopped.Store(true)
	log.Info("stop notifier stopped")
	return nil
}

func (nf *Notifier) Stopped() bool {
	return nf.stopped.Load()
}
