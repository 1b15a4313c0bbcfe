package v4v

import (
	"sync"

	deadlock "github.com/sasha-s/go-deadlock"
)

// EnableLockDebugging turns on go-deadlock's held-lock-set tracking and
// lock-order cycle detection for every L1Lock/L2Lock in the process. It is
// process-global (go-deadlock has no per-instance mode) and is meant for
// tests and development builds, matching the "debug assertions that record
// the current thread's held-lock set" requirement for the L1/L2/L3
// hierarchy: L1 must always be acquired before L2, and L2-write must never
// be dropped to L2-read while an L3 is held.
func EnableLockDebugging(enabled bool) {
	deadlock.Opts.Disable = !enabled
}

// L1Lock guards the set of per-domain state pointers (§5 L1).
type L1Lock struct{ deadlock.RWMutex }

// L2Lock guards a single domain's bucket array and ring-info identity
// fields (§5 L2). Holding L2 for write implies exclusive access to every
// L3 under it without separately acquiring them.
type L2Lock struct{ deadlock.RWMutex }

// L3Lock guards the mutable fields of one ring-info entry (§5 L3): cached
// tx_ptr, mapping cache, pending set. Modeled as a plain sync.Mutex, the
// closest Go idiom to the original's per-ring spinlock — critical sections
// under L3 are always short, non-blocking byte copies.
type L3Lock struct{ sync.Mutex }
