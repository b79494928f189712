package keeper

import (
	"sync/atomic"

	"github.com/openalpha/stakevault/x/vault/types"
)

// guard is a process-wide reentrancy latch over all mutating operations.
// It is a CAS flag rather than a mutex so a reentrant call made from inside
// a custody transfer fails immediately instead of deadlocking.
type guard struct {
	busy atomic.Bool
}

// enter acquires the latch, failing if a mutating operation is in progress.
func (g *guard) enter() error {
	if !g.busy.CompareAndSwap(false, true) {
		return types.ErrReentrant
	}
	return nil
}

// exit releases the latch.
func (g *guard) exit() {
	g.busy.Store(false)
}
