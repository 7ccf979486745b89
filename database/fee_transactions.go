package database

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/JokingLove/eip1559-fee-strategy/fee"
)

const TableFeeTransactions = "fee_transactions"

type TxStatus string

const (
	TxStatusBroadcasted TxStatus = "broadcasted"
	TxStatusReconciled  TxStatus = "reconciled"
	TxStatusNotified    TxStatus = "notified"
)

type FeeTransactions struct {
	GUID                 uuid.UUID       `gorm:"primaryKey;type:uuid" json:"guid"`
	Hash                 common.Hash     `gorm:"serializer:bytes" json:"hash"`
	FromAddress          common.Address  `gorm:"serializer:bytes" json:"from_address"`
	ToAddress            *common.Address `gorm:"serializer:bytes" json:"to_address"`
	Value                *big.Int        `gorm:"serializer:u256" json:"value"`
	Strategy             string          `json:"strategy"`
	GasLimit             uint64          `json:"gas_limit"`
	GasPrice             *big.Int        `gorm:"serializer:u256" json:"gas_price"`
	MaxFeePerGas         *big.Int        `gorm:"serializer:u256" json:"max_fee_per_gas"`
	MaxPriorityFeePerGas *big.Int        `gorm:"serializer:u256" json:"max_priority_fee_per_gas"`
	ExpectedFee          *big.Int        `gorm:"serializer:u256" json:"expected_fee"`
	Status               TxStatus        `json:"status"`

	BlockNumber       *big.Int `gorm:"serializer:u256" json:"block_number"`
	BaseFeePerGas     *big.Int `gorm:"serializer:u256" json:"base_fee_per_gas"`
	EffectiveGasPrice *big.Int `gorm:"serializer:u256" json:"effective_gas_price"`
	GasUsed           uint64   `json:"gas_used"`
	FeeReserved       *big.Int `gorm:"serializer:u256" json:"fee_reserved"`
	FeeCharged        *big.Int `gorm:"serializer:u256" json:"fee_charged"`
	FeeBurnt          *big.Int `gorm:"serializer:u256" json:"fee_burnt"`

	Timestamp uint64 `json:"timestamp"`
}

func (FeeTransactions) TableName() string {
	return TableFeeTransactions
}

// NewFeeTransaction records a broadcast transaction together with the
// envelope it was priced with.
func NewFeeTransaction(hash common.Hash, req fee.Request, env *fee.Envelope) *FeeTransactions {
	row := &FeeTransactions{
		GUID:        uuid.New(),
		Hash:        hash,
		FromAddress: req.From,
		ToAddress:   req.To,
		Value:       copyOrZero(req.Value),
		Strategy:    env.Strategy.String(),
		GasLimit:    env.GasLimit,
		ExpectedFee: env.ExpectedFee(),
		Status:      TxStatusBroadcasted,
		Timestamp:   uint64(time.Now().Unix()),
	}
	if env.IsLegacy() {
		row.GasPrice = new(big.Int).Set(env.GasPrice)
	} else {
		row.MaxFeePerGas = copyOrZero(env.MaxFeePerGas)
		row.MaxPriorityFeePerGas = copyOrZero(env.MaxPriorityFeePerGas)
	}
	return row
}

// Envelope rebuilds the fee envelope the row was priced with.
func (t *FeeTransactions) Envelope() *fee.Envelope {
	strategy, _ := fee.ParseStrategy(t.Strategy)
	env := &fee.Envelope{Strategy: strategy, GasLimit: t.GasLimit}
	if t.GasPrice != nil {
		env.GasPrice = new(big.Int).Set(t.GasPrice)
		return env
	}
	env.MaxFeePerGas = copyOrZero(t.MaxFeePerGas)
	env.MaxPriorityFeePerGas = copyOrZero(t.MaxPriorityFeePerGas)
	return env
}

type FeeTransactionsView interface {
	QueryByHash(hash common.Hash) (*FeeTransactions, error)
	UnreconciledList(limit int) ([]*FeeTransactions, error)
	UnnotifiedList(limit int) ([]*FeeTransactions, error)
}

type FeeTransactionsDB interface {
	FeeTransactionsView

	StoreFeeTransaction(tx *FeeTransactions) error
	MarkReconciled(hash common.Hash, settlement *fee.Settlement) error
	MarkNotified(hashes []common.Hash) error
}

type feeTransactionsDB struct {
	gorm *gorm.DB
}

func NewFeeTransactionsDB(db *gorm.DB) FeeTransactionsDB {
	return &feeTransactionsDB{gorm: db}
}

func (db *feeTransactionsDB) QueryByHash(hash common.Hash) (*FeeTransactions, error) {
	var tx FeeTransactions
	result := db.gorm.Table(TableFeeTransactions).
		Where("hash = ?", hash.Bytes()).
		Take(&tx)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &tx, nil
}

func (db *feeTransactionsDB) UnreconciledList(limit int) ([]*FeeTransactions, error) {
	return db.listByStatus(TxStatusBroadcasted, limit)
}

// UnnotifiedList returns reconciled rows whose fee report was not delivered yet.
func (db *feeTransactionsDB) UnnotifiedList(limit int) ([]*FeeTransactions, error) {
	return db.listByStatus(TxStatusReconciled, limit)
}

func (db *feeTransactionsDB) listByStatus(status TxStatus, limit int) ([]*FeeTransactions, error) {
	var txs []*FeeTransactions
	result := db.gorm.Table(TableFeeTransactions).
		Where("status = ?", status).
		Order("timestamp asc").
		Limit(limit).
		Find(&txs)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return txs, nil
}

func (db *feeTransactionsDB) StoreFeeTransaction(tx *FeeTransactions) error {
	return db.gorm.Table(TableFeeTransactions).Create(tx).Error
}

func (db *feeTransactionsDB) MarkReconciled(hash common.Hash, settlement *fee.Settlement) error {
	var tx FeeTransactions
	result := db.gorm.Table(TableFeeTransactions).
		Where("hash = ? and status = ?", hash.Bytes(), TxStatusBroadcasted).
		Take(&tx)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil
		}
		return result.Error
	}

	tx.Status = TxStatusReconciled
	tx.BlockNumber = settlement.BlockNumber
	tx.BaseFeePerGas = settlement.BaseFeePerGas
	tx.EffectiveGasPrice = settlement.EffectiveGasPrice
	tx.GasUsed = settlement.GasUsed
	tx.FeeReserved = settlement.FeeReserved
	tx.FeeCharged = settlement.FeeCharged
	tx.FeeBurnt = settlement.FeeBurnt
	return db.gorm.Table(TableFeeTransactions).Save(&tx).Error
}

func (db *feeTransactionsDB) MarkNotified(hashes []common.Hash) error {
	if len(hashes) == 0 {
		return nil
	}
	raw := make([][]byte, 0, len(hashes))
	for _, hash := range hashes {
		raw = append(raw, hash.Bytes())
	}
	return db.gorm.Table(TableFeeTransactions).
		Where("hash IN ? and status = ?", raw, TxStatusReconciled).
		Update("status", TxStatusNotified).Error
}

// Settlement returns the stored fee outcome, nil until the row is reconciled.
func (t *FeeTransactions) Settlement() *fee.Settlement {
	if t.Status == TxStatusBroadcasted {
		return nil
	}
	return &fee.Settlement{
		BlockNumber:       t.BlockNumber,
		BaseFeePerGas:     t.BaseFeePerGas,
		EffectiveGasPrice: t.EffectiveGasPrice,
		GasUsed:           t.GasUsed,
		FeeReserved:       t.FeeReserved,
		FeeCharged:        t.FeeCharged,
		FeeBurnt:          t.FeeBurnt,
	}
}

func copyOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
