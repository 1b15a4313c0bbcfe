package v4v_test

import (
	"go.v4v.dev/v4v/internal/v4v"
)

// newTestHub builds a Hub over ArenaMemory/FutexEventChannel/
// SimpleDomainTable, the default test/CLI collaborators, with every domain
// in domains already marked present and initialized.
func newTestHub(domains ...uint16) (*v4v.Hub, *v4v.ArenaMemory, *v4v.SimpleDomainTable) {
	arena := v4v.NewArenaMemory()
	ec := v4v.NewFutexEventChannel()
	dt := v4v.NewSimpleDomainTable()
	hub := v4v.NewHub(arena, arena, ec, dt)
	for _, d := range domains {
		dt.MarkPresent(d)
		if _, err := hub.InitDomain(d); err != nil {
			panic(err)
		}
	}
	return hub, arena, dt
}
