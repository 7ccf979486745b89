package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/JokingLove/eip1559-fee-strategy/fee"
)

type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
	signer  types.Signer
}

func NewSigner(hexKey string, chainID *big.Int) (*Signer, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain id: %v", chainID)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: new(big.Int).Set(chainID),
		signer:  types.LatestSignerForChainID(chainID),
	}, nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

func (s *Signer) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// BuildTx merges req and env into an unsigned transaction: a legacy
// transaction for a GasPrice envelope, a dynamic fee transaction otherwise.
func BuildTx(chainID *big.Int, nonce uint64, req fee.Request, env *fee.Envelope) (*types.Transaction, error) {
	if env == nil {
		return nil, fmt.Errorf("missing fee envelope")
	}
	value := new(big.Int)
	if req.Value != nil {
		value.Set(req.Value)
	}
	data := common.CopyBytes(req.Data)

	if env.IsLegacy() {
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: new(big.Int).Set(env.GasPrice),
			Gas:      env.GasLimit,
			To:       req.To,
			Value:    value,
			Data:     data,
		}), nil
	}
	if env.MaxFeePerGas == nil || env.MaxPriorityFeePerGas == nil {
		return nil, fmt.Errorf("fee envelope has no price fields")
	}
	if env.MaxFeePerGas.Sign() < 0 || env.MaxPriorityFeePerGas.Sign() < 0 {
		return nil, fmt.Errorf("negative fee: maxFee=%s maxPriorityFee=%s", env.MaxFeePerGas, env.MaxPriorityFeePerGas)
	}
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).Set(chainID),
		Nonce:     nonce,
		GasTipCap: new(big.Int).Set(env.MaxPriorityFeePerGas),
		GasFeeCap: new(big.Int).Set(env.MaxFeePerGas),
		Gas:       env.GasLimit,
		To:        req.To,
		Value:     value,
		Data:      data,
	}), nil
}

func (s *Signer) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, s.signer, s.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}

// EnvelopeFromTx recovers the fee fields of a built transaction.
func EnvelopeFromTx(strategy fee.Strategy, tx *types.Transaction) *fee.Envelope {
	env := &fee.Envelope{Strategy: strategy, GasLimit: tx.Gas()}
	if tx.Type() == types.LegacyTxType {
		env.GasPrice = tx.GasPrice()
		return env
	}
	env.MaxFeePerGas = tx.GasFeeCap()
	env.MaxPriorityFeePerGas = tx.GasTipCap()
	return env
}
