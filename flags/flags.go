package flags

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/JokingLove/eip1559-fee-strategy/common"
)

const EnvVarPrefix = "FEE_STRATEGY"

func prefixEnvVars(name string) []string {
	return common.PrefixEnvVar(EnvVarPrefix, name)
}

var (
	NetworkFlag = &cli.StringFlag{
		Name:    "network",
		Usage:   "Network preset: testedge2 or mainnet",
		EnvVars: prefixEnvVars("NETWORK"),
		Value:   "testedge2",
	}
	RpcUrlFlag = &cli.StringFlag{
		Name:    "rpc-url",
		Usage:   "Override the network's JSON-RPC endpoint",
		EnvVars: prefixEnvVars("RPC_URL"),
	}
	ExplorerUrlFlag = &cli.StringFlag{
		Name:    "explorer-url",
		Usage:   "Override the network's block explorer",
		EnvVars: prefixEnvVars("EXPLORER_URL"),
	}
	RpcTimeoutFlag = &cli.DurationFlag{
		Name:    "rpc-timeout",
		Usage:   "Timeout of a single chain query",
		EnvVars: prefixEnvVars("RPC_TIMEOUT"),
		Value:   30 * time.Second,
	}
	PrivateKeyFlag = &cli.StringFlag{
		Name:    "private-key",
		Usage:   "Hex private key of the sender",
		EnvVars: append(prefixEnvVars("PRIVATE_KEY"), "PRIVATE_KEY"),
	}

	// MasterDb Flags
	MasterDbHostFlag = &cli.StringFlag{
		Name:    "master-db-host",
		Usage:   "The host of the master database",
		EnvVars: prefixEnvVars("MASTER_DB_HOST"),
		Value:   "127.0.0.1",
	}
	MasterDbPortFlag = &cli.IntFlag{
		Name:    "master-db-port",
		Usage:   "The port of the master database",
		EnvVars: prefixEnvVars("MASTER_DB_PORT"),
		Value:   5432,
	}
	MasterDbUserFlag = &cli.StringFlag{
		Name:    "master-db-user",
		Usage:   "The user of the master database",
		EnvVars: prefixEnvVars("MASTER_DB_USER"),
	}
	MasterDbPasswordFlag = &cli.StringFlag{
		Name:    "master-db-password",
		Usage:   "The password of the master database",
		EnvVars: prefixEnvVars("MASTER_DB_PASSWORD"),
	}
	MasterDbNameFlag = &cli.StringFlag{
		Name:    "master-db-name",
		Usage:   "The db name of the master database",
		EnvVars: prefixEnvVars("MASTER_DB_NAME"),
		Value:   "fee_strategy",
	}
	MigrationsFlag = &cli.StringFlag{
		Name:    "migrations-dir",
		Usage:   "Path to the sql migrations",
		EnvVars: prefixEnvVars("MIGRATIONS_DIR"),
		Value:   "./migrations",
	}

	NotifyUrlFlag = &cli.StringFlag{
		Name:    "notify-url",
		Usage:   "Webhook receiving fee reports, disabled when empty",
		EnvVars: prefixEnvVars("NOTIFY_URL"),
	}
	ReconcileIntervalFlag = &cli.DurationFlag{
		Name:    "reconcile-interval",
		Usage:   "Interval between two reconcile rounds",
		EnvVars: prefixEnvVars("RECONCILE_INTERVAL"),
		Value:   5 * time.Second,
	}
	ReconcileBatchFlag = &cli.IntFlag{
		Name:    "reconcile-batch",
		Usage:   "Ledger rows reconciled per round",
		EnvVars: prefixEnvVars("RECONCILE_BATCH"),
		Value:   50,
	}

	// Transaction flags
	StrategyFlag = &cli.StringFlag{
		Name:    "strategy",
		Usage:   "Fee strategy: minimum, legacy, normal, high or strict",
		EnvVars: prefixEnvVars("STRATEGY"),
		Value:   "normal",
	}
	ToFlag = &cli.StringFlag{
		Name:  "to",
		Usage: "Recipient address, defaults to the sender",
	}
	FromFlag = &cli.StringFlag{
		Name:  "from",
		Usage: "Sender address used for estimation, defaults to the private key's address",
	}
	ValueFlag = &cli.StringFlag{
		Name:  "value",
		Usage: "Amount to transfer in native units, e.g. 0.001",
		Value: "0.001",
	}
	DataFlag = &cli.StringFlag{
		Name:  "data",
		Usage: "Hex call data",
	}
	BudgetFlag = &cli.StringFlag{
		Name:    "budget",
		Usage:   "Total fee budget in native units for the strict strategy",
		EnvVars: prefixEnvVars("BUDGET"),
	}
	RecordFlag = &cli.BoolFlag{
		Name:  "record",
		Usage: "Store the submitted transaction in the fee ledger",
	}
	WaitFlag = &cli.BoolFlag{
		Name:  "wait",
		Usage: "Wait for the receipt and print the fee outcome",
		Value: true,
	}
	AddressFlag = &cli.StringFlag{
		Name:  "address",
		Usage: "Account to query, defaults to the private key's address",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	NetworkFlag,
	RpcUrlFlag,
	ExplorerUrlFlag,
	RpcTimeoutFlag,
	PrivateKeyFlag,
}

var DBFlags = []cli.Flag{
	MasterDbHostFlag,
	MasterDbPortFlag,
	MasterDbUserFlag,
	MasterDbPasswordFlag,
	MasterDbNameFlag,
	MigrationsFlag,
}

var ReconcileFlags = []cli.Flag{
	NotifyUrlFlag,
	ReconcileIntervalFlag,
	ReconcileBatchFlag,
}

var TxFlags = []cli.Flag{
	StrategyFlag,
	ToFlag,
	FromFlag,
	ValueFlag,
	DataFlag,
	BudgetFlag,
}

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

// Flags are shared by every command.
var Flags []cli.Flag

// All lists every flag carrying an environment variable.
func All() []cli.Flag {
	all := append([]cli.Flag{}, Flags...)
	all = append(all, DBFlags...)
	all = append(all, ReconcileFlags...)
	all = append(all, TxFlags...)
	return append(all, RecordFlag, WaitFlag, AddressFlag)
}
