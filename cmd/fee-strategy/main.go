package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/joho/godotenv"

	"github.com/JokingLove/eip1559-fee-strategy/common"
	"github.com/JokingLove/eip1559-fee-strategy/flags"
)

var (
	GitCommit = ""
	GitDate   = ""
)

func main() {
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.LevelInfo, true)))

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("failed to load .env", "err", err)
	}
	common.ValidateEnvVars(flags.EnvVarPrefix, flags.All(), log.Root())

	app := NewCli(GitCommit, GitDate)
	if err := app.Run(os.Args); err != nil {
		log.Error("application failed", "err", err)
		os.Exit(1)
	}
}
