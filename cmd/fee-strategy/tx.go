package main

import (
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	common2 "github.com/JokingLove/eip1559-fee-strategy/common"
	"github.com/JokingLove/eip1559-fee-strategy/common/bigint"
	"github.com/JokingLove/eip1559-fee-strategy/common/opio"
	"github.com/JokingLove/eip1559-fee-strategy/config"
	"github.com/JokingLove/eip1559-fee-strategy/database"
	"github.com/JokingLove/eip1559-fee-strategy/fee"
	"github.com/JokingLove/eip1559-fee-strategy/flags"
	"github.com/JokingLove/eip1559-fee-strategy/rpcclient"
	"github.com/JokingLove/eip1559-fee-strategy/wallet"
)

type txInput struct {
	strategy fee.Strategy
	request  fee.Request
	options  fee.Options
}

func parseTxInput(ctx *cli.Context, from common.Address) (*txInput, error) {
	strategy, err := fee.ParseStrategy(ctx.String(flags.StrategyFlag.Name))
	if err != nil {
		return nil, err
	}

	to := from
	if raw := ctx.String(flags.ToFlag.Name); raw != "" {
		if to, err = common2.ParseAddress(raw); err != nil {
			return nil, err
		}
	}

	value, err := bigint.ParseUnits(ctx.String(flags.ValueFlag.Name), fee.DecimalsWei)
	if err != nil {
		return nil, fmt.Errorf("invalid value: %w", err)
	}

	var data []byte
	if raw := ctx.String(flags.DataFlag.Name); raw != "" {
		if data, err = hexutil.Decode(raw); err != nil {
			return nil, fmt.Errorf("invalid data: %w", err)
		}
	}

	var options fee.Options
	if raw := ctx.String(flags.BudgetFlag.Name); raw != "" {
		if options.Budget, err = bigint.ParseUnits(raw, fee.DecimalsWei); err != nil {
			return nil, fmt.Errorf("invalid budget: %w", err)
		}
	}

	return &txInput{
		strategy: strategy,
		request:  fee.Request{From: from, To: &to, Value: value, Data: data},
		options:  options,
	}, nil
}

func newSigner(cfg *config.Config) (*wallet.Signer, error) {
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private key is not set, use --%s or PRIVATE_KEY", flags.PrivateKeyFlag.Name)
	}
	return wallet.NewSigner(cfg.PrivateKey, new(big.Int).SetUint64(cfg.Network.ChainID))
}

// accountAddress prefers an explicit address flag and falls back to the
// private key's address.
func accountAddress(ctx *cli.Context, cfg *config.Config, flagName string) (common.Address, error) {
	if raw := ctx.String(flagName); raw != "" {
		return common2.ParseAddress(raw)
	}
	signer, err := newSigner(cfg)
	if err != nil {
		return common.Address{}, err
	}
	return signer.Address(), nil
}

func runEstimate(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Error("failed to load config", "err", err)
		return err
	}
	runCtx, cancel := opio.CancelOnInterrupt(ctx.Context)
	defer cancel()

	from, err := accountAddress(ctx, &cfg, flags.FromFlag.Name)
	if err != nil {
		return err
	}
	input, err := parseTxInput(ctx, from)
	if err != nil {
		return err
	}

	client, err := rpcclient.Dial(runCtx, cfg.Network.RpcUrl, cfg.RpcTimeout)
	if err != nil {
		return err
	}
	defer client.Close()

	estimator := fee.NewEstimator(client, fee.LogReporter{Symbol: cfg.Network.Symbol})
	env, err := estimator.Estimate(runCtx, input.strategy, input.request, input.options)
	if err != nil {
		return err
	}
	printEnvelope(ctx.App.Writer, env, cfg.Network.Symbol)
	return nil
}

func runSend(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Error("failed to load config", "err", err)
		return err
	}
	runCtx, cancel := opio.CancelOnInterrupt(ctx.Context)
	defer cancel()

	signer, err := newSigner(&cfg)
	if err != nil {
		return err
	}
	input, err := parseTxInput(ctx, signer.Address())
	if err != nil {
		return err
	}

	client, err := rpcclient.Dial(runCtx, cfg.Network.RpcUrl, cfg.RpcTimeout)
	if err != nil {
		return err
	}
	defer client.Close()

	chainID, err := client.ChainID(runCtx)
	if err != nil {
		return err
	}
	if chainID.Cmp(signer.ChainID()) != 0 {
		return fmt.Errorf("rpc serves chain %s, network %s expects %s", chainID, cfg.Network.Name, signer.ChainID())
	}

	var db *database.DB
	if ctx.Bool(flags.RecordFlag.Name) {
		if db, err = database.NewDB(runCtx, cfg.MasterDB); err != nil {
			log.Error("failed to connect to database", "err", err)
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("fail to close database", "err", err)
			}
		}()
	}

	estimator := fee.NewEstimator(client, fee.LogReporter{Symbol: cfg.Network.Symbol})
	env, err := estimator.Estimate(runCtx, input.strategy, input.request, input.options)
	if err != nil {
		return err
	}
	printEnvelope(ctx.App.Writer, env, cfg.Network.Symbol)

	nonce, err := client.PendingNonce(runCtx, signer.Address())
	if err != nil {
		return err
	}
	tx, err := wallet.BuildTx(signer.ChainID(), nonce, input.request, env)
	if err != nil {
		return err
	}
	signed, err := signer.SignTx(tx)
	if err != nil {
		return err
	}
	if err := client.SendTransaction(runCtx, signed); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Transaction sent: %s\n", cfg.Network.ExplorerTxURL(signed.Hash()))

	if db != nil {
		if err := db.FeeTransactions.StoreFeeTransaction(database.NewFeeTransaction(signed.Hash(), input.request, env)); err != nil {
			log.Error("store fee transaction failed", "hash", signed.Hash(), "err", err)
			return err
		}
	}

	if !ctx.Bool(flags.WaitFlag.Name) {
		return nil
	}
	receipt, err := client.WaitMined(runCtx, signed)
	if err != nil {
		return err
	}
	block, err := client.BlockByNumber(runCtx, receipt.BlockNumber)
	if err != nil {
		return err
	}
	settlement, err := fee.Settle(env, block, receipt.GasUsed)
	if err != nil {
		return err
	}
	printSettlement(ctx.App.Writer, settlement, cfg.Network.Symbol)

	if db != nil {
		if err := db.FeeTransactions.MarkReconciled(signed.Hash(), settlement); err != nil {
			log.Error("update fee transaction failed", "hash", signed.Hash(), "err", err)
			return err
		}
	}
	return nil
}

func runBalance(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Error("failed to load config", "err", err)
		return err
	}
	runCtx, cancel := opio.CancelOnInterrupt(ctx.Context)
	defer cancel()

	address, err := accountAddress(ctx, &cfg, flags.AddressFlag.Name)
	if err != nil {
		return err
	}
	client, err := rpcclient.Dial(runCtx, cfg.Network.RpcUrl, cfg.RpcTimeout)
	if err != nil {
		return err
	}
	defer client.Close()

	balance, err := client.Balance(runCtx, address)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Balance of %s: %s %s\n", address, bigint.FormatUnits(balance, fee.DecimalsWei), cfg.Network.Symbol)
	fmt.Fprintf(ctx.App.Writer, "Explorer: %s\n", cfg.Network.ExplorerAddressURL(address))
	return nil
}

func printEnvelope(w io.Writer, env *fee.Envelope, symbol string) {
	fmt.Fprintf(w, "Strategy:                 %s\n", env.Strategy)
	fmt.Fprintf(w, "Gas limit:                %d\n", env.GasLimit)
	if env.IsLegacy() {
		fmt.Fprintf(w, "Gas price:                %s wei\n", env.GasPrice)
	} else {
		fmt.Fprintf(w, "Max fee per gas:          %s wei\n", env.MaxFeePerGas)
		fmt.Fprintf(w, "Max priority fee per gas: %s wei\n", env.MaxPriorityFeePerGas)
	}
	fmt.Fprintf(w, "Expected fee:             %s %s\n", bigint.FormatUnits(env.ExpectedFee(), fee.DecimalsWei), symbol)
}

func printSettlement(w io.Writer, s *fee.Settlement, symbol string) {
	fmt.Fprintf(w, "Included in block:        %s\n", s.BlockNumber)
	fmt.Fprintf(w, "Base fee per gas:         %s wei\n", s.BaseFeePerGas)
	fmt.Fprintf(w, "Effective gas price:      %s wei\n", s.EffectiveGasPrice)
	fmt.Fprintf(w, "Gas used:                 %d\n", s.GasUsed)
	fmt.Fprintf(w, "Fee reserved:             %s %s\n", bigint.FormatUnits(s.FeeReserved, fee.DecimalsWei), symbol)
	fmt.Fprintf(w, "Fee charged:              %s %s\n", bigint.FormatUnits(s.FeeCharged, fee.DecimalsWei), symbol)
	fmt.Fprintf(w, "Fee burnt:                %s %s\n", bigint.FormatUnits(s.FeeBurnt, fee.DecimalsWei), symbol)
}
