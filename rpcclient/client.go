package rpcclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/JokingLove/eip1559-fee-strategy/fee"
)

// DefaultPriorityFee is the tip suggested when the node does not serve
// eth_maxPriorityFeePerGas.
var DefaultPriorityFee = big.NewInt(1_000_000_000)

const revertErrorCode = 3

// EthBackend is the subset of *ethclient.Client the chain client uses.
type EthBackend interface {
	bind.DeployBackend

	ChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	Close()
}

// ChainClient adapts an EVM JSON-RPC node to the fee provider interfaces.
// Every failed query is classified as fee.ErrSimulationReverted or
// fee.ErrProviderUnavailable; a query exceeding the timeout is the latter.
type ChainClient struct {
	backend EthBackend
	timeout time.Duration
}

func Dial(ctx context.Context, rpcUrl string, timeout time.Duration) (*ChainClient, error) {
	log.Info("dial chain rpc", "url", rpcUrl)
	client, err := ethclient.DialContext(ctx, rpcUrl)
	if err != nil {
		log.Error("dial chain rpc failed", "url", rpcUrl, "err", err)
		return nil, unavailable("dial", err)
	}
	return NewChainClient(client, timeout), nil
}

func NewChainClient(backend EthBackend, timeout time.Duration) *ChainClient {
	return &ChainClient{backend: backend, timeout: timeout}
}

func (c *ChainClient) Close() {
	c.backend.Close()
}

func (c *ChainClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *ChainClient) ChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		log.Error("get chain id failed", "err", err)
		return nil, unavailable("chain id", err)
	}
	return chainID, nil
}

func (c *ChainClient) LatestBlock(ctx context.Context) (*fee.Block, error) {
	return c.BlockByNumber(ctx, nil)
}

// BlockByNumber returns the header fields the fee math needs. A nil number is the latest block.
func (c *ChainClient) BlockByNumber(ctx context.Context, number *big.Int) (*fee.Block, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	header, err := c.backend.HeaderByNumber(ctx, number)
	if err != nil {
		log.Error("get block header failed", "number", number, "err", err)
		return nil, unavailable("block header", err)
	}
	return &fee.Block{Number: header.Number, BaseFeePerGas: header.BaseFee}, nil
}

// FeeQuote suggests a legacy gas price and an EIP-1559 pair shaped as
// maxFeePerGas = 2 * latest base fee + maxPriorityFeePerGas. On pre-London
// chains the pair is left nil.
func (c *ChainClient) FeeQuote(ctx context.Context) (*fee.MarketQuote, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		log.Error("suggest gas price failed", "err", err)
		return nil, unavailable("gas price", err)
	}
	header, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		log.Error("get latest header failed", "err", err)
		return nil, unavailable("latest header", err)
	}

	quote := &fee.MarketQuote{GasPrice: gasPrice}
	if header.BaseFee == nil {
		return quote, nil
	}

	tip, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		var rpcErr rpc.Error
		if !errors.As(err, &rpcErr) {
			log.Error("suggest gas tip cap failed", "err", err)
			return nil, unavailable("gas tip cap", err)
		}
		log.Warn("node does not suggest a tip, using default", "default", DefaultPriorityFee, "err", err)
		tip = new(big.Int).Set(DefaultPriorityFee)
	}

	maxFee := new(big.Int).Lsh(header.BaseFee, 1)
	quote.MaxFeePerGas = maxFee.Add(maxFee, tip)
	quote.MaxPriorityFeePerGas = tip
	return quote, nil
}

func (c *ChainClient) EstimateGas(ctx context.Context, req fee.Request) (uint64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	msg := ethereum.CallMsg{
		From:  req.From,
		To:    req.To,
		Value: req.Value,
		Data:  req.Data,
	}
	gas, err := c.backend.EstimateGas(ctx, msg)
	if err != nil {
		log.Error("estimate gas failed", "from", req.From, "to", req.To, "err", err)
		return 0, classify("estimate gas", err)
	}
	return gas, nil
}

func (c *ChainClient) Balance(ctx context.Context, address common.Address) (*big.Int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	balance, err := c.backend.BalanceAt(ctx, address, nil)
	if err != nil {
		log.Error("get balance failed", "address", address, "err", err)
		return nil, unavailable("balance", err)
	}
	return balance, nil
}

func (c *ChainClient) PendingNonce(ctx context.Context, address common.Address) (uint64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	nonce, err := c.backend.PendingNonceAt(ctx, address)
	if err != nil {
		log.Error("get pending nonce failed", "address", address, "err", err)
		return 0, unavailable("pending nonce", err)
	}
	return nonce, nil
}

func (c *ChainClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log.Info("send tx", "hash", tx.Hash(), "type", tx.Type(), "gas", tx.Gas())
	if err := c.backend.SendTransaction(ctx, tx); err != nil {
		log.Error("send tx failed", "hash", tx.Hash(), "err", err)
		return fmt.Errorf("send transaction %s: %w", tx.Hash(), err)
	}
	return nil
}

// TransactionReceipt returns nil without error while the transaction is pending.
func (c *ChainClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	receipt, err := c.backend.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		log.Error("get receipt failed", "hash", hash, "err", err)
		return nil, unavailable("receipt", err)
	}
	return receipt, nil
}

// WaitMined blocks until tx is included or ctx ends. It is not bounded by the
// per-query timeout.
func (c *ChainClient) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, unavailable("wait mined", err)
	}
	return receipt, nil
}

func classify(op string, err error) error {
	if isRevert(err) {
		return fmt.Errorf("%s: %w: %w", op, fee.ErrSimulationReverted, err)
	}
	return unavailable(op, err)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, fee.ErrProviderUnavailable, err)
}

// isRevert recognises a simulation that would fail on-chain: a JSON-RPC
// revert (code 3) or one of the node's execution failure messages.
func isRevert(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"execution reverted", "insufficient funds", "gas required exceeds allowance", "invalid opcode"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
