package v4v

import "fmt"

// PrepareRingPages allocates enough guest pages in arena to back a ring of
// the given payload length, writes the initial header (magic, len, zeroed
// rx_ptr/tx_ptr, identity) into frame 0, and returns the pfn list a caller
// passes to Hub.RegisterRing. This stands in for what a guest does itself
// before issuing the register_ring hypercall.
func PrepareRingPages(arena *ArenaMemory, id RingID, length uint32) ([]uint64, error) {
	if length%16 != 0 || length < messageHeaderSize+32 {
		return nil, fmt.Errorf("prepare ring pages: invalid len %d: %w", length, ErrInvalidArgument)
	}
	total := ringHdrLen + int(length)
	npage := (total + PageSize - 1) / PageSize

	pfns := make([]uint64, npage)
	for i := range pfns {
		pfns[i] = arena.AllocPage()
	}
	frame0, err := arena.Frame(pfns[0])
	if err != nil {
		return nil, err
	}
	writeMagic(frame0, RingMagic)
	writeLen(frame0, length)
	atomicStoreRxPtr(frame0, 0)
	atomicStoreTxPtr(frame0, 0)
	writeRingID(frame0, id)
	return pfns, nil
}

// DrainOne simulates the guest consumer reading exactly one message off
// ring and advancing rx_ptr (§4.B, consumer side). The real consumer lives
// in guest context and is out of scope for this module; this helper
// exists so tests and cmd/v4vctl can exercise full send/receive round
// trips against the default ArenaMemory/PageOwner implementations.
func DrainOne(mapper *Mapper, ring *RingInfo, pageSize uint32) ([]byte, messageHeader, error) {
	ring.l3.Lock()
	defer ring.l3.Unlock()

	frame0, err := mapper.Map(ring, 0)
	if err != nil {
		return nil, messageHeader{}, err
	}
	defer mapper.UnmapAll(ring)

	rx := atomicLoadRxPtr(frame0)
	tx := atomicLoadTxPtr(frame0)
	if rx == tx {
		return nil, messageHeader{}, fmt.Errorf("drain: ring empty: %w", ErrNotFound)
	}

	hdrBuf := make([]byte, messageHeaderSize)
	if err := ringCopy(mapper, ring, pageSize, rx, hdrBuf, false); err != nil {
		return nil, messageHeader{}, err
	}
	hdr := decodeMessageHeader(hdrBuf)
	if hdr.Len < messageHeaderSize {
		return nil, messageHeader{}, fmt.Errorf("drain: corrupt header len %d: %w", hdr.Len, ErrInvalidArgument)
	}
	payloadLen := hdr.Len - messageHeaderSize

	payload := make([]byte, payloadLen)
	if err := ringCopy(mapper, ring, pageSize, rx+messageHeaderSize, payload, false); err != nil {
		return nil, messageHeader{}, err
	}

	advance := messageHeaderSize + roundup16(payloadLen)
	newRx := (rx + advance) % ring.Len
	atomicStoreRxPtr(frame0, newRx)
	return payload, hdr, nil
}
