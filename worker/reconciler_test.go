package worker

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/JokingLove/eip1559-fee-strategy/config"
	"github.com/JokingLove/eip1559-fee-strategy/database"
	"github.com/JokingLove/eip1559-fee-strategy/fee"
)

type fakeChain struct {
	receipts map[common.Hash]*types.Receipt
	blocks   map[uint64]*fee.Block
	err      error
}

func (c *fakeChain) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.receipts[hash], nil
}

func (c *fakeChain) BlockByNumber(ctx context.Context, number *big.Int) (*fee.Block, error) {
	return c.blocks[number.Uint64()], nil
}

type fakeLedger struct {
	rows       []*database.FeeTransactions
	reconciled map[common.Hash]*fee.Settlement
	failures   int
}

func (l *fakeLedger) QueryByHash(hash common.Hash) (*database.FeeTransactions, error) {
	return nil, nil
}

func (l *fakeLedger) UnreconciledList(limit int) ([]*database.FeeTransactions, error) {
	var out []*database.FeeTransactions
	for _, row := range l.rows {
		if row.Status == database.TxStatusBroadcasted && len(out) < limit {
			out = append(out, row)
		}
	}
	return out, nil
}

func (l *fakeLedger) UnnotifiedList(limit int) ([]*database.FeeTransactions, error) {
	return nil, nil
}

func (l *fakeLedger) StoreFeeTransaction(tx *database.FeeTransactions) error {
	return nil
}

func (l *fakeLedger) MarkReconciled(hash common.Hash, settlement *fee.Settlement) error {
	if l.failures > 0 {
		l.failures--
		return errors.New("connection reset")
	}
	if l.reconciled == nil {
		l.reconciled = make(map[common.Hash]*fee.Settlement)
	}
	l.reconciled[hash] = settlement
	for _, row := range l.rows {
		if row.Hash == hash {
			row.Status = database.TxStatusReconciled
		}
	}
	return nil
}

func (l *fakeLedger) MarkNotified(hashes []common.Hash) error {
	return nil
}

func newTestReconciler(t *testing.T, ledger database.FeeTransactionsDB, chain ReceiptReader) *Reconciler {
	t.Helper()
	cfg := &config.Config{Network: config.TestEdge2, ReconcileBatch: 10, ReconcileInterval: 1}
	r, err := NewReconciler(cfg, ledger, chain, func(error) {})
	require.NoError(t, err)
	r.retryStrategy = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	t.Cleanup(r.ticker.Stop)
	return r
}

func dynamicRow(hash common.Hash) *database.FeeTransactions {
	return database.NewFeeTransaction(hash, fee.Request{}, &fee.Envelope{
		Strategy:             fee.StrategyNormal,
		GasLimit:             21000,
		MaxFeePerGas:         big.NewInt(110),
		MaxPriorityFeePerGas: big.NewInt(110),
	})
}

func TestReconcileOnce(t *testing.T) {
	included := dynamicRow(common.HexToHash("0x01"))
	pending := dynamicRow(common.HexToHash("0x02"))
	legacy := database.NewFeeTransaction(common.HexToHash("0x03"), fee.Request{}, &fee.Envelope{
		Strategy: fee.StrategyLegacyNormal,
		GasLimit: 30000,
		GasPrice: big.NewInt(120),
	})
	ledger := &fakeLedger{rows: []*database.FeeTransactions{included, pending, legacy}}

	chain := &fakeChain{
		receipts: map[common.Hash]*types.Receipt{
			included.Hash: {Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(7), GasUsed: 21000, EffectiveGasPrice: big.NewInt(110)},
			legacy.Hash:   {Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(8), GasUsed: 25000},
		},
		blocks: map[uint64]*fee.Block{
			7: {Number: big.NewInt(7), BaseFeePerGas: big.NewInt(100)},
			8: {Number: big.NewInt(8), BaseFeePerGas: big.NewInt(90)},
		},
	}

	settled, err := newTestReconciler(t, ledger, chain).ReconcileOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, settled)

	s := ledger.reconciled[included.Hash]
	require.NotNil(t, s)
	require.Equal(t, int64(110), s.EffectiveGasPrice.Int64())
	require.Equal(t, int64(2310000), s.FeeReserved.Int64())
	require.Equal(t, int64(2310000), s.FeeCharged.Int64())
	require.Equal(t, int64(2100000), s.FeeBurnt.Int64())
	require.Equal(t, int64(7), s.BlockNumber.Int64())

	s = ledger.reconciled[legacy.Hash]
	require.NotNil(t, s)
	require.Equal(t, int64(120), s.EffectiveGasPrice.Int64())
	require.Equal(t, int64(3600000), s.FeeReserved.Int64())
	require.Equal(t, int64(3000000), s.FeeCharged.Int64())
	require.Equal(t, int64(2250000), s.FeeBurnt.Int64())

	require.Equal(t, database.TxStatusBroadcasted, pending.Status)
	require.NotContains(t, ledger.reconciled, pending.Hash)
}

func TestReconcileOnceRetriesLedgerWrites(t *testing.T) {
	row := dynamicRow(common.HexToHash("0x01"))
	ledger := &fakeLedger{rows: []*database.FeeTransactions{row}, failures: 2}
	chain := &fakeChain{
		receipts: map[common.Hash]*types.Receipt{
			row.Hash: {Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(7), GasUsed: 21000},
		},
		blocks: map[uint64]*fee.Block{7: {Number: big.NewInt(7), BaseFeePerGas: big.NewInt(100)}},
	}

	settled, err := newTestReconciler(t, ledger, chain).ReconcileOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, settled)
	require.Equal(t, database.TxStatusReconciled, row.Status)
}

func TestReconcileOnceSkipsProviderFailures(t *testing.T) {
	row := dynamicRow(common.HexToHash("0x01"))
	ledger := &fakeLedger{rows: []*database.FeeTransactions{row}}
	chain := &fakeChain{err: fee.ErrProviderUnavailable}

	settled, err := newTestReconciler(t, ledger, chain).ReconcileOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, settled)
	require.Equal(t, database.TxStatusBroadcasted, row.Status)
}

func TestReconcilerStartClose(t *testing.T) {
	r := newTestReconciler(t, &fakeLedger{}, &fakeChain{})
	require.NoError(t, r.Start())
	require.NoError(t, r.Close())
}
