package tasks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupRecoversPanic(t *testing.T) {
	var crit error
	group := Group{HandleCrit: func(err error) { crit = err }}

	group.Go(func() error {
		panic("boom")
	})
	require.NoError(t, group.Wait())
	require.EqualError(t, crit, "panic: boom")
}

func TestGroupReturnsFirstError(t *testing.T) {
	group := Group{}
	failure := errors.New("failure")

	group.Go(func() error { return failure })
	group.Go(func() error { return nil })
	require.ErrorIs(t, group.Wait(), failure)
}
