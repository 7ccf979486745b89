package cliapp

import (
	"context"
	"errors"
	"flag"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type fakeLifecycle struct {
	started atomic.Bool
	stopped atomic.Bool
	onStart func()
	stopErr error
}

func (f *fakeLifecycle) Start(ctx context.Context) error {
	f.started.Store(true)
	if f.onStart != nil {
		f.onStart()
	}
	return nil
}

func (f *fakeLifecycle) Stop(ctx context.Context) error {
	f.stopped.Store(true)
	return f.stopErr
}

func (f *fakeLifecycle) Stopped() bool {
	return f.stopped.Load()
}

func newCliContext() *cli.Context {
	return cli.NewContext(&cli.App{}, flag.NewFlagSet("test", flag.ContinueOnError), nil)
}

func waitForever(ctx context.Context, _ ...os.Signal) {
	<-ctx.Done()
}

func TestLifecycleCmdShutdownWithCause(t *testing.T) {
	critical := errors.New("critical error in reconciler")
	app := &fakeLifecycle{}

	action := lifecycleCmd(func(ctx *cli.Context, shutdown context.CancelCauseFunc) (Lifecycle, error) {
		app.onStart = func() { shutdown(critical) }
		return app, nil
	}, waitForever)

	err := action(newCliContext())
	require.ErrorIs(t, err, critical)
	require.True(t, app.started.Load())
	require.True(t, app.Stopped())
}

func TestLifecycleCmdInterrupt(t *testing.T) {
	interrupt := make(chan struct{})
	app := &fakeLifecycle{onStart: func() { close(interrupt) }}

	var first atomic.Bool
	block := func(ctx context.Context, _ ...os.Signal) {
		if first.CompareAndSwap(false, true) {
			select {
			case <-interrupt:
			case <-ctx.Done():
			}
			return
		}
		<-ctx.Done()
	}

	action := lifecycleCmd(func(ctx *cli.Context, shutdown context.CancelCauseFunc) (Lifecycle, error) {
		return app, nil
	}, block)

	require.NoError(t, action(newCliContext()))
	require.True(t, app.Stopped())
}

func TestLifecycleCmdSetupFailure(t *testing.T) {
	setupErr := errors.New("no rpc url")
	action := lifecycleCmd(func(ctx *cli.Context, shutdown context.CancelCauseFunc) (Lifecycle, error) {
		return nil, setupErr
	}, waitForever)

	require.ErrorIs(t, action(newCliContext()), setupErr)
}

func TestLifecycleCmdStopFailure(t *testing.T) {
	stopErr := errors.New("close db")
	app := &fakeLifecycle{stopErr: stopErr}
	action := lifecycleCmd(func(ctx *cli.Context, shutdown context.CancelCauseFunc) (Lifecycle, error) {
		app.onStart = func() { shutdown(nil) }
		return app, nil
	}, waitForever)

	require.ErrorIs(t, action(newCliContext()), stopErr)
}
