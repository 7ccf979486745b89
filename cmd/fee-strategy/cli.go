package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	feestrategy "github.com/JokingLove/eip1559-fee-strategy"
	"github.com/JokingLove/eip1559-fee-strategy/common/cliapp"
	"github.com/JokingLove/eip1559-fee-strategy/config"
	"github.com/JokingLove/eip1559-fee-strategy/database"
	flags2 "github.com/JokingLove/eip1559-fee-strategy/flags"
)

func NewCli(GitCommit string, GitDate string) *cli.App {
	flags := flags2.Flags
	txFlags := withFlags(flags, flags2.TxFlags...)
	dbFlags := withFlags(flags, flags2.DBFlags...)
	return &cli.App{
		Name:                 "fee-strategy",
		Version:              versionWithCommit("1.0.0", GitCommit, GitDate),
		Usage:                "EIP-1559 fee estimation and fee ledger",
		Description:          "Estimate, submit and reconcile transaction fees with selectable fee strategies",
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:        "estimate",
				Flags:       txFlags,
				Description: "Print the fee envelope a strategy picks for a transfer",
				Action:      runEstimate,
			},
			{
				Name:        "send",
				Flags:       withFlags(withFlags(txFlags, flags2.DBFlags...), flags2.RecordFlag, flags2.WaitFlag),
				Description: "Estimate, sign and submit a transfer, then report the fee it paid",
				Action:      runSend,
			},
			{
				Name:        "balance",
				Flags:       withFlags(flags, flags2.AddressFlag),
				Description: "Print the native balance of an account",
				Action:      runBalance,
			},
			{
				Name:        "reconcile",
				Flags:       withFlags(dbFlags, flags2.ReconcileFlags...),
				Description: "Settle recorded transactions against their blocks and notify fee reports",
				Action:      cliapp.LifecycleCmd(runReconcile),
			},
			{
				Name:        "migrate",
				Flags:       dbFlags,
				Description: "Run the fee ledger sql migrations",
				Action:      runMigrations,
			},
		},
	}
}

func withFlags(base []cli.Flag, extra ...cli.Flag) []cli.Flag {
	out := make([]cli.Flag, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

func versionWithCommit(version, gitCommit, gitDate string) string {
	if len(gitCommit) >= 8 {
		version += "-" + gitCommit[:8]
	}
	if gitDate != "" {
		version += "-" + gitDate
	}
	return version
}

func runReconcile(ctx *cli.Context, shutdown context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	log.Info("exec fee reconcile")
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Error("failed to load config", "err", err)
		return nil, err
	}
	return feestrategy.NewFeeReconcile(ctx.Context, &cfg, shutdown)
}

func runMigrations(ctx *cli.Context) error {
	log.Info("running migrations...")
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Error("failed to load config", "err", err)
		return err
	}
	db, err := database.NewDB(ctx.Context, cfg.MasterDB)
	if err != nil {
		log.Error("failed to connect to database", "err", err)
		return err
	}
	defer func(db *database.DB) {
		if err := db.Close(); err != nil {
			log.Error("fail to close database", "err", err)
		}
	}(db)
	if err := db.ExecuteSQLMigration(cfg.Migrations); err != nil {
		return fmt.Errorf("execute migrations: %w", err)
	}
	log.Info("migrations done", "dir", cfg.Migrations)
	return nil
}
