package v4v

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Hub is the top-level facility: the L1-guarded set of per-domain states,
// the rule table, and the external collaborators (§3, §4.H, §5 L1).
type Hub struct {
	l1 L1Lock

	domains map[uint16]*DomainState
	config  Config

	pageOwner   PageOwner
	mem         GuestMemory
	mapper      *Mapper
	eventChan   EventChannel
	domainTable DomainTable
	rules       *RuleTable
}

// NewHub wires a Hub from its external collaborators. mem/owner/eventChan/
// domainTable may be test/CLI default implementations (ArenaMemory,
// FutexEventChannel, SimpleDomainTable) or production-grade adapters.
func NewHub(mem GuestMemory, owner PageOwner, ec EventChannel, dt DomainTable, opts ...Option) *Hub {
	cfg := NewConfig(opts...)
	EnableLockDebugging(cfg.DebugLocks)
	return &Hub{
		domains:     make(map[uint16]*DomainState),
		config:      cfg,
		pageOwner:   owner,
		mem:         mem,
		mapper:      NewMapper(mem),
		eventChan:   ec,
		domainTable: dt,
		rules:       NewRuleTable(),
	}
}

// Rules exposes the Hub's rule table (§4.E) to callers.
func (h *Hub) Rules() *RuleTable { return h.rules }

// Logger returns the Hub's configured structured logger.
func (h *Hub) Logger() *logrus.Logger { return h.config.Logger }

// InitDomain allocates per-domain state and an event-channel port, then
// publishes it under L1's write lock (§4.H init).
func (h *Hub) InitDomain(id uint16) (*DomainState, error) {
	port, err := h.eventChan.AllocUnbound(id)
	if err != nil {
		return nil, fmt.Errorf("init domain %d: %w", id, err)
	}
	ds := newDomainState(id, h.config.HTableSize, port)

	h.l1.Lock()
	defer h.l1.Unlock()
	if _, exists := h.domains[id]; exists {
		return nil, fmt.Errorf("init domain %d: %w", id, ErrAlreadyExists)
	}
	h.domains[id] = ds
	h.config.Logger.WithField("domain", id).Info("domain initialized")
	return ds, nil
}

// DestroyDomain removes every ring owned by id, releasing pinned frames,
// then clears the per-domain pointer, all under L1's write lock (§4.H
// destroy). The domain's dying flag must already be set.
func (h *Hub) DestroyDomain(id uint16) error {
	if err := requireDying(h.domainTable, id); err != nil {
		return err
	}

	h.l1.Lock()
	defer h.l1.Unlock()
	ds, ok := h.domains[id]
	if !ok {
		return fmt.Errorf("destroy domain %d: %w", id, ErrNotFound)
	}

	ds.l2.Lock()
	rings := ds.allRingsLocked()
	for i := range ds.buckets {
		ds.buckets[i] = nil
	}
	ds.l2.Unlock()

	var teardownErr error
	for _, ring := range rings {
		ring.l3.Lock()
		mfns := ring.Mfns
		h.mapper.UnmapAll(ring)
		ring.l3.Unlock()
		teardownErr = multierr.Append(teardownErr, unpinFrames(h.pageOwner, id, mfns))
	}

	delete(h.domains, id)
	h.config.Logger.WithField("domain", id).Info("domain destroyed")
	return teardownErr
}

// domainStateLocked returns id's per-domain state under L1's read lock, or
// nil if the domain was never initialized (NO_DEVICE condition).
func (h *Hub) domainStateLocked(id uint16) *DomainState {
	h.l1.RLock()
	defer h.l1.RUnlock()
	return h.domains[id]
}

// Info returns the calling domain's {ring_magic, data_magic, event-channel
// port} (§6 `info`).
type DomainInfo struct {
	RingMagic uint64
	DataMagic uint64
	EventPort uint32
}

// DataMagic is the guest-visible magic used to tag bulk query/result
// blocks (fill-ring-data and rule-list transfers), distinct from the
// per-ring header magic.
const DataMagic uint64 = 0x4458e038fc3067c6

func (h *Hub) Info(domain uint16) (DomainInfo, error) {
	ds := h.domainStateLocked(domain)
	if ds == nil {
		return DomainInfo{}, fmt.Errorf("info domain %d: %w", domain, ErrNoDevice)
	}
	return DomainInfo{RingMagic: RingMagic, DataMagic: DataMagic, EventPort: ds.EventPort}, nil
}
