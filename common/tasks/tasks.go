package tasks

import (
	"fmt"
	"runtime/debug"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"
)

// Group runs background loops. A panicking loop is recovered, logged with its
// stack and handed to HandleCrit, which is expected to shut the service down.
type Group struct {
	errGroup   errgroup.Group
	HandleCrit func(err error)
}

func (t *Group) Go(fn func() error) {
	t.errGroup.Go(func() error {
		defer func() {
			if err := recover(); err != nil {
				log.Error("task panicked", "err", err, "stack", string(debug.Stack()))
				if t.HandleCrit != nil {
					t.HandleCrit(fmt.Errorf("panic: %v", err))
				}
			}
		}()
		return fn()
	})
}

// Wait blocks until every task returned and reports the first error.
func (t *Group) Wait() error {
	return t.errGroup.Wait()
}
