package v4v

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// hashRing mixes the port's halves, the owning domain id, and the partner
// id, masked to the bucket count (§4.D). htableSize must be a power of two.
func hashRing(id RingID, htableSize uint32) uint32 {
	port := id.Addr.Port
	h := (port >> 16) ^ (port & 0xffff)
	h ^= uint32(id.Addr.Domain)
	h ^= uint32(id.Partner)
	return h & (htableSize - 1)
}

// DomainState is the per-domain registry: a hash-bucket array of active
// rings plus the event-channel port allocated at init (§3 "Per-domain
// state"). Bucket slots hold every ring hashing to that slot, not just one
// — a hash collision between two distinct identities is resolved by
// linear scan within the bucket, not treated as a conflict.
type DomainState struct {
	ID        uint16
	l2        L2Lock
	buckets   [][]*RingInfo
	EventPort uint32
}

func newDomainState(id uint16, htableSize uint32, port uint32) *DomainState {
	return &DomainState{ID: id, buckets: make([][]*RingInfo, htableSize), EventPort: port}
}

// findLocked returns the ring with the exact identity, if present. Caller
// must hold at least ds.l2 for read.
func (ds *DomainState) findLocked(id RingID, htableSize uint32) *RingInfo {
	bucket := ds.buckets[hashRing(id, htableSize)]
	for _, r := range bucket {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// findByAddressLocked implements the two-probe destination lookup: first
// with an explicit partner, then falling back to partner=ANY (§4.D).
func (ds *DomainState) findByAddressLocked(dst Address, sourceDomain uint16, htableSize uint32) *RingInfo {
	if r := ds.findLocked(RingID{Addr: dst, Partner: sourceDomain}, htableSize); r != nil {
		return r
	}
	return ds.findLocked(RingID{Addr: dst, Partner: DomainAny}, htableSize)
}

func (ds *DomainState) insertLocked(r *RingInfo, htableSize uint32) {
	idx := hashRing(r.ID, htableSize)
	ds.buckets[idx] = append(ds.buckets[idx], r)
}

func (ds *DomainState) removeLocked(id RingID, htableSize uint32) *RingInfo {
	idx := hashRing(id, htableSize)
	bucket := ds.buckets[idx]
	for i, r := range bucket {
		if r.ID == id {
			ds.buckets[idx] = slices.Delete(bucket, i, i+1)
			return r
		}
	}
	return nil
}

// allRingsLocked returns every ring across all buckets, for teardown and
// snapshotting. Caller must hold ds.l2.
func (ds *DomainState) allRingsLocked() []*RingInfo {
	var all []*RingInfo
	for _, bucket := range ds.buckets {
		all = append(all, bucket...)
	}
	return all
}

// RegisterRing validates and pins a new ring's frames, normalizes its
// on-wire tx_ptr/identity, and publishes it into owner's bucket array
// (§4.D register). pfns[0]'s frame carries the ring header, including the
// partner the guest wrote into it — register_ring takes no partner
// argument of its own.
func (h *Hub) RegisterRing(owner uint16, pfns []uint64) (*RingInfo, error) {
	if len(pfns) == 0 {
		return nil, fmt.Errorf("register: no pages: %w", ErrInvalidArgument)
	}
	mfns, err := pinFrames(h.pageOwner, owner, pfns)
	if err != nil {
		return nil, err
	}

	ring := newRingInfo(RingID{}, 0, mfns)
	frame0, err := h.mapper.Map(ring, 0)
	if err != nil {
		h.mapper.UnmapAll(ring)
		_ = unpinFrames(h.pageOwner, owner, mfns)
		return nil, err
	}

	magic := readMagic(frame0)
	length := readLen(frame0)
	id := readRingID(frame0)
	id.Addr.Domain = owner

	if magic != RingMagic {
		h.mapper.UnmapAll(ring)
		_ = unpinFrames(h.pageOwner, owner, mfns)
		return nil, fmt.Errorf("register: bad magic: %w", ErrInvalidArgument)
	}
	minLen := uint32(messageHeaderSize + 32)
	if length < minLen || length%16 != 0 {
		h.mapper.UnmapAll(ring)
		_ = unpinFrames(h.pageOwner, owner, mfns)
		return nil, fmt.Errorf("register: invalid len %d: %w", length, ErrInvalidArgument)
	}

	txPtr := atomicLoadTxPtr(frame0)
	rxPtr := atomicLoadRxPtr(frame0)
	if txPtr >= length || txPtr%16 != 0 {
		txPtr = rxPtr
	}

	ring.ID = id
	ring.Len = length
	ring.txPtr = txPtr
	writeRingID(frame0, id)
	atomicStoreTxPtr(frame0, txPtr)
	h.mapper.UnmapAll(ring)

	ds := h.domainStateLocked(owner)
	ds.l2.Lock()
	defer ds.l2.Unlock()
	if existing := ds.findLocked(id, h.config.HTableSize); existing != nil {
		_ = unpinFrames(h.pageOwner, owner, mfns)
		return nil, fmt.Errorf("register %s: %w", id, ErrAlreadyExists)
	}
	ds.insertLocked(ring, h.config.HTableSize)
	h.config.Logger.WithFields(ringFields(id)).Info("ring registered")
	return ring, nil
}

// UnregisterRing removes a ring by identity, drops its pending entries,
// and releases every pinned frame (§4.D unregister).
func (h *Hub) UnregisterRing(owner uint16, id RingID) error {
	ds := h.domainStateLocked(owner)
	ds.l2.Lock()
	ring := ds.removeLocked(id, h.config.HTableSize)
	ds.l2.Unlock()
	if ring == nil {
		return fmt.Errorf("unregister %s: %w", id, ErrNotFound)
	}
	ring.l3.Lock()
	ring.pending = NewPendingSet()
	mfns := ring.Mfns
	h.mapper.UnmapAll(ring)
	ring.l3.Unlock()
	if err := unpinFrames(h.pageOwner, owner, mfns); err != nil {
		return fmt.Errorf("unregister %s: %w", id, err)
	}
	h.config.Logger.WithFields(ringFields(id)).Info("ring unregistered")
	return nil
}
