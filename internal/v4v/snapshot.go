package v4v

// RingSnapshot is a read-only view of one ring, the Go-idiomatic stand-in
// for the original's debug keyhandler dump ('4' key: dump_domain_ring).
// It is new surface, not a reinstatement of the excluded debug-key
// handler: ordinary callers reach it through Hub.Snapshot, not a
// hypervisor debug key.
type RingSnapshot struct {
	ID      RingID
	Len     uint32
	Npage   uint32
	TxPtr   uint32
	RxPtr   uint32
	Pending int
}

// Snapshot returns a point-in-time view of every ring owned by domain.
func (h *Hub) Snapshot(domain uint16) ([]RingSnapshot, error) {
	ds := h.domainStateLocked(domain)
	if ds == nil {
		return nil, ErrNoDevice
	}
	ds.l2.RLock()
	rings := ds.allRingsLocked()
	ds.l2.RUnlock()

	out := make([]RingSnapshot, 0, len(rings))
	for _, ring := range rings {
		ring.l3.Lock()
		var rx uint32
		if frame0, err := h.mapper.Map(ring, 0); err == nil {
			rx = atomicLoadRxPtr(frame0)
			h.mapper.UnmapAll(ring)
		}
		out = append(out, RingSnapshot{
			ID:      ring.ID,
			Len:     ring.Len,
			Npage:   ring.Npage,
			TxPtr:   ring.txPtr,
			RxPtr:   rx,
			Pending: ring.pending.Len(),
		})
		ring.l3.Unlock()
	}
	return out, nil
}
