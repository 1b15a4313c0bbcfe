package v4v

import (
	"fmt"
	"sync"
)

// PageOwner models the out-of-scope "page-ownership primitive": pin a guest
// page frame as writable for a domain, and release it. Only ring
// register/unregister and domain destroy call this; ring storage operates
// on already-pinned frames.
type PageOwner interface {
	PinWritable(domain uint16, pfn uint64) (mfn uint64, err error)
	Unpin(domain uint16, mfn uint64) error
}

// GuestMemory models the out-of-scope "guest memory copy-in/copy-out
// primitives": translate a pinned frame handle into a byte-addressable
// view. Frame returns a PageSize-length slice backing frame mfn; the slice
// is stable for the lifetime of the pin.
type GuestMemory interface {
	Frame(mfn uint64) ([]byte, error)
}

// ArenaMemory is a default, test/CLI-friendly GuestMemory and PageOwner
// backed by plain Go byte slices rather than real guest physical memory.
// Unlike a real hypervisor it keeps a single pfn/mfn address space: a test
// or CLI caller allocates a guest page with AllocPage, writes the ring
// header into it, then registers it; PinWritable simply validates the pfn
// and marks it pinned rather than translating to a different host frame.
type ArenaMemory struct {
	mu     sync.Mutex
	frames map[uint64][]byte
	pinned map[uint64]int
	next   uint64
}

// NewArenaMemory returns an empty arena.
func NewArenaMemory() *ArenaMemory {
	return &ArenaMemory{frames: make(map[uint64][]byte), pinned: make(map[uint64]int)}
}

// AllocPage creates a fresh zeroed guest page and returns its pfn, for a
// test or CLI caller to populate before registering a ring.
func (a *ArenaMemory) AllocPage() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	pfn := a.next
	a.frames[pfn] = make([]byte, PageSize)
	return pfn
}

// PinWritable validates pfn refers to an allocated page and marks it
// pinned. It returns pfn itself as the mfn: this arena has no separate
// guest/host address space.
func (a *ArenaMemory) PinWritable(domain uint16, pfn uint64) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.frames[pfn]; !ok {
		return 0, fmt.Errorf("pin pfn %d: %w", pfn, ErrMemoryFault)
	}
	a.pinned[pfn]++
	return pfn, nil
}

// Unpin releases a previously pinned frame. The underlying page is kept —
// guest pages outlive a ring's registration — only the pin count drops.
func (a *ArenaMemory) Unpin(domain uint16, mfn uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pinned[mfn] == 0 {
		return fmt.Errorf("unpin mfn %d: %w", mfn, ErrNotFound)
	}
	a.pinned[mfn]--
	return nil
}

// Frame returns the byte slice backing mfn.
func (a *ArenaMemory) Frame(mfn uint64) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, ok := a.frames[mfn]
	if !ok {
		return nil, fmt.Errorf("frame mfn %d: %w", mfn, ErrMemoryFault)
	}
	return f, nil
}
