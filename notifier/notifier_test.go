package notifier

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/JokingLove/eip1559-fee-strategy/config"
	"github.com/JokingLove/eip1559-fee-strategy/database"
	"github.com/JokingLove/eip1559-fee-strategy/fee"
)

type fakeLedger struct {
	mu       sync.Mutex
	rows     []*database.FeeTransactions
	notified []common.Hash
}

func (l *fakeLedger) QueryByHash(hash common.Hash) (*database.FeeTransactions, error) {
	for _, row := range l.rows {
		if row.Hash == hash {
			return row, nil
		}
	}
	return nil, nil
}

func (l *fakeLedger) UnreconciledList(limit int) ([]*database.FeeTransactions, error) {
	return nil, nil
}

func (l *fakeLedger) UnnotifiedList(limit int) ([]*database.FeeTransactions, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*database.FeeTransactions
	for _, row := range l.rows {
		if row.Status == database.TxStatusReconciled && len(out) < limit {
			out = append(out, row)
		}
	}
	return out, nil
}

func (l *fakeLedger) StoreFeeTransaction(tx *database.FeeTransactions) error {
	l.rows = append(l.rows, tx)
	return nil
}

func (l *fakeLedger) MarkReconciled(hash common.Hash, settlement *fee.Settlement) error {
	return nil
}

func (l *fakeLedger) MarkNotified(hashes []common.Hash) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notified = append(l.notified, hashes...)
	for _, row := range l.rows {
		for _, hash := range hashes {
			if row.Hash == hash {
				row.Status = database.TxStatusNotified
			}
		}
	}
	return nil
}

func reconciledRow(t *testing.T, hash common.Hash) *database.FeeTransactions {
	t.Helper()
	env := &fee.Envelope{
		Strategy:             fee.StrategyNormal,
		GasLimit:             21000,
		MaxFeePerGas:         big.NewInt(110),
		MaxPriorityFeePerGas: big.NewInt(110),
	}
	row := database.NewFeeTransaction(hash, fee.Request{
		From:  common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Value: big.NewInt(1000),
	}, env)
	settlement, err := fee.Settle(env, &fee.Block{Number: big.NewInt(9), BaseFeePerGas: big.NewInt(100)}, 21000)
	require.NoError(t, err)
	row.Status = database.TxStatusReconciled
	row.BlockNumber = settlement.BlockNumber
	row.BaseFeePerGas = settlement.BaseFeePerGas
	row.EffectiveGasPrice = settlement.EffectiveGasPrice
	row.GasUsed = settlement.GasUsed
	row.FeeReserved = settlement.FeeReserved
	row.FeeCharged = settlement.FeeCharged
	row.FeeBurnt = settlement.FeeBurnt
	return row
}

func newTestClient(t *testing.T, url string) *NotifyClient {
	t.Helper()
	client, err := NewNotifyClient(url)
	require.NoError(t, err)
	client.backoff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return client
}

func respond(w http.ResponseWriter, success bool) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(NotifyResponse{Success: success})
}

func TestNotifyClientRequiresURL(t *testing.T) {
	_, err := NewNotifyClient("")
	require.Error(t, err)
}

func TestNotifyFeeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, notifyPath, r.URL.Path)
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		respond(w, true)
	}))
	defer server.Close()

	success, err := newTestClient(t, server.URL).NotifyFee(context.Background(), &NotifyRequest{Network: "testedge2"})
	require.NoError(t, err)
	require.True(t, success)
	require.Equal(t, int32(3), calls.Load())
}

func TestNotifyFeeDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).NotifyFee(context.Background(), &NotifyRequest{})
	require.ErrorIs(t, err, errNotifyHTTPError)
	require.Equal(t, int32(1), calls.Load())
}

func TestNotifyOnce(t *testing.T) {
	var received NotifyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		respond(w, true)
	}))
	defer server.Close()

	first := reconciledRow(t, common.HexToHash("0x01"))
	second := reconciledRow(t, common.HexToHash("0x02"))
	broadcasted := database.NewFeeTransaction(common.HexToHash("0x03"), fee.Request{}, &fee.Envelope{GasLimit: 21000, GasPrice: big.NewInt(1)})
	ledger := &fakeLedger{rows: []*database.FeeTransactions{first, second, broadcasted}}

	cfg := &config.Config{Network: config.TestEdge2, NotifyUrl: server.URL, ReconcileBatch: 10, ReconcileInterval: 1}
	nf, err := NewNotifier(cfg, ledger, func(error) {})
	require.NoError(t, err)
	nf.notifyClient.backoff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	defer nf.ticker.Stop()

	require.NoError(t, nf.NotifyOnce(context.Background()))
	require.Equal(t, "testedge2", received.Network)
	require.Len(t, received.Reports, 2)
	report := received.Reports[0]
	require.Equal(t, first.Hash.Hex(), report.Hash)
	require.Equal(t, "2310000", report.FeeCharged)
	require.Equal(t, "2100000", report.FeeBurnt)
	require.Equal(t, "110", report.EffectiveGasPrice)
	require.Equal(t, config.TestEdge2.ExplorerTxURL(first.Hash), report.ExplorerUrl)
	require.Empty(t, report.ToAddress)

	require.ElementsMatch(t, []common.Hash{first.Hash, second.Hash}, ledger.notified)
	require.Equal(t, database.TxStatusBroadcasted, broadcasted.Status)

	// nothing left to deliver
	received = NotifyRequest{}
	require.NoError(t, nf.NotifyOnce(context.Background()))
	require.Empty(t, received.Reports)
}

func TestNotifyOnceRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, false)
	}))
	defer server.Close()

	row := reconciledRow(t, common.HexToHash("0x01"))
	ledger := &fakeLedger{rows: []*database.FeeTransactions{row}}
	cfg := &config.Config{Network: config.TestEdge2, NotifyUrl: server.URL, ReconcileBatch: 10, ReconcileInterval: 1}
	nf, err := NewNotifier(cfg, ledger, func(error) {})
	require.NoError(t, err)
	defer nf.ticker.Stop()

	require.NoError(t, nf.NotifyOnce(context.Background()))
	require.Empty(t, ledger.notified)
	require.Equal(t, database.TxStatusReconciled, row.Status)
}
