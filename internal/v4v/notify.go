package v4v

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// RingDataQuery is one entry of a bulk fill-ring-data request (§4.G): the
// caller asks "does a ring exist at dst that accepts sends from me, and is
// there room for `Requested` bytes".
type RingDataQuery struct {
	Dst       Address
	Source    uint16
	Requested uint32
}

// RingDataResult answers one RingDataQuery.
type RingDataResult struct {
	Exists         bool
	Sufficient     bool
	Pending        bool
	Empty          bool
	MaxMessageSize uint32
}

// Notify walks every ring owned by domain, draining satisfied pending
// entries and waking their sources (§4.G notify).
func (h *Hub) Notify(domain uint16) error {
	ds := h.domainStateLocked(domain)
	if ds == nil {
		return fmt.Errorf("notify domain %d: %w", domain, ErrNoDevice)
	}

	ds.l2.RLock()
	rings := ds.allRingsLocked()

	type wake struct {
		source uint16
	}
	var woken []wake
	for _, ring := range rings {
		ring.l3.Lock()
		frame0, err := h.mapper.Map(ring, 0)
		if err == nil {
			rx := atomicLoadRxPtr(frame0)
			free := payloadSpace(ring.Len, ring.txPtr, rx)
			for _, entry := range ring.pending.FindSatisfied(free) {
				woken = append(woken, wake{source: entry.Source})
			}
			h.mapper.UnmapAll(ring)
		}
		ring.l3.Unlock()
	}
	ds.l2.RUnlock()

	g, _ := errgroup.WithContext(context.Background())
	for _, w := range woken {
		w := w
		srcDS := h.domainStateLocked(w.source)
		if srcDS == nil {
			continue
		}
		port := srcDS.EventPort
		g.Go(func() error {
			return h.eventChan.Signal(port)
		})
	}
	return g.Wait()
}

// FillRingData answers a batch of bulk ring-state queries (§4.G, the
// supplemented v4v_fill_ring_datas batch form).
func (h *Hub) FillRingData(domain uint16, queries []RingDataQuery) []RingDataResult {
	ds := h.domainStateLocked(domain)
	results := make([]RingDataResult, len(queries))
	if ds == nil {
		return results
	}
	for i, q := range queries {
		ds.l2.RLock()
		ring := ds.findByAddressLocked(q.Dst, q.Source, h.config.HTableSize)
		ds.l2.RUnlock()
		if ring == nil {
			continue
		}

		ring.l3.Lock()
		frame0, err := h.mapper.Map(ring, 0)
		if err != nil {
			ring.l3.Unlock()
			continue
		}
		rx := atomicLoadRxPtr(frame0)
		free := payloadSpace(ring.Len, ring.txPtr, rx)
		sufficient := q.Requested <= free
		if sufficient {
			ring.pending.Cancel(q.Source)
		} else {
			ring.pending.Queue(q.Source, q.Requested)
		}
		h.mapper.UnmapAll(ring)
		ring.l3.Unlock()

		results[i] = RingDataResult{
			Exists:         true,
			Sufficient:     sufficient,
			Pending:        !sufficient,
			Empty:          rx == ring.txPtr,
			MaxMessageSize: ring.Len - messageHeaderSize - SlotMarker,
		}
	}
	return results
}
