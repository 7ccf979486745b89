package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/JokingLove/eip1559-fee-strategy/flags"
)

const (
	defaultRpcTimeout        = 30 * time.Second
	defaultReconcileInterval = 5 * time.Second
	defaultReconcileBatch    = 50
)

type Network struct {
	Name        string
	ChainID     uint64
	RpcUrl      string
	ExplorerUrl string
	Symbol      string
}

var (
	TestEdge2 = Network{
		Name:        "testedge2",
		ChainID:     54211,
		RpcUrl:      "https://rpc.eth.testedge2.haqq.network",
		ExplorerUrl: "https://explorer.testedge2.haqq.network/",
		Symbol:      "ISLM",
	}
	Mainnet = Network{
		Name:        "mainnet",
		ChainID:     11235,
		RpcUrl:      "https://rpc.eth.haqq.network",
		ExplorerUrl: "https://explorer.haqq.network/",
		Symbol:      "ISLM",
	}

	Networks = map[string]Network{
		TestEdge2.Name: TestEdge2,
		Mainnet.Name:   Mainnet,
	}
)

func (n Network) ExplorerTxURL(hash common.Hash) string {
	return n.explorerURL("tx", hash.Hex())
}

func (n Network) ExplorerAddressURL(address common.Address) string {
	return n.explorerURL("address", address.Hex())
}

func (n Network) explorerURL(kind, id string) string {
	return strings.TrimSuffix(n.ExplorerUrl, "/") + "/" + kind + "/" + id
}

type DBConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
}

type Config struct {
	Network           Network
	PrivateKey        string
	RpcTimeout        time.Duration
	MasterDB          DBConfig
	NotifyUrl         string
	ReconcileInterval time.Duration
	ReconcileBatch    int
	Migrations        string
}

func LoadConfig(cliCtx *cli.Context) (Config, error) {
	var cfg Config

	network, ok := Networks[cliCtx.String(flags.NetworkFlag.Name)]
	if !ok {
		return cfg, fmt.Errorf("unknown network %q", cliCtx.String(flags.NetworkFlag.Name))
	}
	if url := cliCtx.String(flags.RpcUrlFlag.Name); url != "" {
		network.RpcUrl = url
	}
	if url := cliCtx.String(flags.ExplorerUrlFlag.Name); url != "" {
		network.ExplorerUrl = url
	}
	cfg.Network = network

	cfg.PrivateKey = cliCtx.String(flags.PrivateKeyFlag.Name)
	cfg.RpcTimeout = cliCtx.Duration(flags.RpcTimeoutFlag.Name)
	if cfg.RpcTimeout <= 0 {
		cfg.RpcTimeout = defaultRpcTimeout
	}

	cfg.MasterDB = DBConfig{
		Host:     cliCtx.String(flags.MasterDbHostFlag.Name),
		Port:     cliCtx.Int(flags.MasterDbPortFlag.Name),
		Name:     cliCtx.String(flags.MasterDbNameFlag.Name),
		User:     cliCtx.String(flags.MasterDbUserFlag.Name),
		Password: cliCtx.String(flags.MasterDbPasswordFlag.Name),
	}

	cfg.NotifyUrl = cliCtx.String(flags.NotifyUrlFlag.Name)
	cfg.ReconcileInterval = cliCtx.Duration(flags.ReconcileIntervalFlag.Name)
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}
	cfg.ReconcileBatch = cliCtx.Int(flags.ReconcileBatchFlag.Name)
	if cfg.ReconcileBatch <= 0 {
		cfg.ReconcileBatch = defaultReconcileBatch
	}
	cfg.Migrations = cliCtx.String(flags.MigrationsFlag.Name)

	return cfg, nil
}
