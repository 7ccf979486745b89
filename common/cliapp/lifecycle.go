package cliapp

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/JokingLove/eip1559-fee-strategy/common/opio"
)

var ErrInterrupted = errors.New("interrupted")

// Lifecycle is a long-running service driven by a CLI command.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Stopped() bool
}

// LifecycleAction builds the service. shutdown lets the service end the
// command on its own, e.g. after a critical error in a background task.
type LifecycleAction func(ctx *cli.Context, shutdown context.CancelCauseFunc) (Lifecycle, error)

type blockFn func(ctx context.Context, signals ...os.Signal)

// LifecycleCmd turns a LifecycleAction into a cli action that starts the
// service, waits for an interrupt or a shutdown request, then stops it. A
// second interrupt while stopping cancels the stop context.
func LifecycleCmd(fn LifecycleAction) cli.ActionFunc {
	return lifecycleCmd(fn, opio.BlockOnInterruptContext)
}

func lifecycleCmd(fn LifecycleAction, blockOnInterrupt blockFn) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		hostCtx := ctx.Context
		appCtx, appCancel := context.WithCancelCause(hostCtx)
		ctx.Context = appCtx

		go func() {
			blockOnInterrupt(appCtx)
			appCancel(ErrInterrupted)
		}()

		appLifecycle, err := fn(ctx, appCancel)
		if err != nil {
			appCancel(nil)
			return fmt.Errorf("failed to setup: %w", err)
		}

		if err := appLifecycle.Start(appCtx); err != nil {
			appCancel(nil)
			return fmt.Errorf("failed to start: %w", err)
		}

		<-appCtx.Done()
		cause := context.Cause(appCtx)
		log.Info("stopping service", "cause", cause)

		stopCtx, stopCancel := context.WithCancelCause(hostCtx)
		defer stopCancel(nil)
		go func() {
			blockOnInterrupt(stopCtx)
			stopCancel(ErrInterrupted)
		}()

		if err := appLifecycle.Stop(stopCtx); err != nil {
			return errors.Join(fmt.Errorf("failed to stop: %w", err), context.Cause(stopCtx))
		}
		if errors.Is(cause, ErrInterrupted) || errors.Is(cause, context.Canceled) {
			return nil
		}
		return cause
	}
}
