package v4v

import "fmt"

// Send is the delivery engine's sendv operation (§4.F). On ErrWouldBlock a
// pending entry has already been queued as a side effect, per §7's
// propagation rule.
func (h *Hub) Send(source Address, dst Address, msgType uint32, iovs []Iovec) (int, error) {
	total := iovTotalLen(iovs)
	if total > MaxSendBytes {
		return 0, fmt.Errorf("send %s->%s: %d bytes exceeds cap: %w", source, dst, total, ErrMsgTooLarge)
	}

	if !h.domainTable.Lookup(dst.Domain) {
		h.config.Logger.WithField("dst", dst).Warn("send to unknown domain refused")
		return 0, fmt.Errorf("send %s->%s: %w", source, dst, ErrRefused)
	}
	if !h.rules.Check(source, dst) {
		h.config.Logger.WithField("src", source).WithField("dst", dst).Warn("send refused by rule table")
		return 0, fmt.Errorf("send %s->%s: %w", source, dst, ErrRefused)
	}

	ds := h.domainStateLocked(dst.Domain)
	if ds == nil {
		return 0, fmt.Errorf("send %s->%s: %w", source, dst, ErrRefused)
	}

	ds.l2.RLock()
	ring := ds.findByAddressLocked(dst, source.Domain, h.config.HTableSize)
	ds.l2.RUnlock()
	if ring == nil {
		return 0, fmt.Errorf("send %s->%s: %w", source, dst, ErrRefused)
	}

	ring.l3.Lock()
	n, err := insertv(h.mapper, ring, h.config.PageSize, source, msgType, iovs, h.config.Logger)
	h.mapper.UnmapAll(ring)
	if err != nil {
		if err == ErrWouldBlock {
			ring.pending.Queue(source.Domain, roundup16(uint32(total)))
		}
		ring.l3.Unlock()
		return 0, fmt.Errorf("send %s->%s: %w", source, dst, err)
	}
	ring.l3.Unlock()

	if err := h.eventChan.Signal(ds.EventPort); err != nil {
		return n, fmt.Errorf("send %s->%s: signal failed: %w", source, dst, err)
	}
	return n, nil
}
