package notifier

import (
	"github.com/JokingLove/eip1559-fee-strategy/database"
)

type NotifyRequest struct {
	Network string       `json:"network"`
	Reports []*FeeReport `json:"reports"`
}

type NotifyResponse struct {
	Success bool `json:"success"`
}

// FeeReport is the fee outcome of one reconciled transaction. Amounts are
// decimal wei strings.
type FeeReport struct {
	Hash              string `json:"hash"`
	ExplorerUrl       string `json:"explorer_url,omitempty"`
	FromAddress       string `json:"from_address"`
	ToAddress         string `json:"to_address,omitempty"`
	Value             string `json:"value"`
	Strategy          string `json:"strategy"`
	BlockNumber       string `json:"block_number"`
	GasLimit          uint64 `json:"gas_limit"`
	GasUsed           uint64 `json:"gas_used"`
	ExpectedFee       string `json:"expected_fee"`
	BaseFeePerGas     string `json:"base_fee_per_gas"`
	EffectiveGasPrice string `json:"effective_gas_price"`
	FeeReserved       string `json:"fee_reserved"`
	FeeCharged        string `json:"fee_charged"`
	FeeBurnt          string `json:"fee_burnt"`
}

func NewFeeReport(tx *database.FeeTransactions, explorerUrl string) *FeeReport {
	report := &FeeReport{
		Hash:              tx.Hash.Hex(),
		ExplorerUrl:       explorerUrl,
		FromAddress:       tx.FromAddress.Hex(),
		Value:             tx.Value.String(),
		Strategy:          tx.Strategy,
		BlockNumber:       tx.BlockNumber.String(),
		GasLimit:          tx.GasLimit,
		GasUsed:           tx.GasUsed,
		ExpectedFee:       tx.ExpectedFee.String(),
		BaseFeePerGas:     tx.BaseFeePerGas.String(),
		EffectiveGasPrice: tx.EffectiveGasPrice.String(),
		FeeReserved:       tx.FeeReserved.String(),
		FeeCharged:        tx.FeeCharged.String(),
		FeeBurnt:          tx.FeeBurnt.String(),
	}
	if tx.ToAddress != nil {
		report.ToAddress = tx.ToAddress.Hex()
	}
	return report
}
