package v4v

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Iovec is one scatter/gather chunk of a message. Data holds the chunk's
// bytes; this package treats it as an opaque byte slice already resolved
// from guest memory by the caller (the real hypervisor would re-validate
// the guest handle before every copy — see §5).
type Iovec struct {
	Data []byte
}

func iovTotalLen(iovs []Iovec) uint64 {
	var total uint64
	for _, v := range iovs {
		total += uint64(len(v.Data))
	}
	return total
}

// RingInfo is one registry entry (§3 "Ring info").
type RingInfo struct {
	ID   RingID
	Len  uint32 // payload byte capacity, multiple of 16
	Npage uint32
	Mfns  []uint64
	MappingCache [][]byte

	l3 L3Lock

	txPtr   uint32 // cached authoritative producer offset
	pending *PendingSet
}

// newRingInfo constructs a ring entry with an empty pending set and mapping
// cache sized to npage.
func newRingInfo(id RingID, length uint32, mfns []uint64) *RingInfo {
	return &RingInfo{
		ID:           id,
		Len:          length,
		Npage:        uint32(len(mfns)),
		Mfns:         mfns,
		MappingCache: make([][]byte, len(mfns)),
		pending:      NewPendingSet(),
	}
}

// firstFrameCapacity is how many payload bytes fit in frame 0 alongside
// the fixed 40-byte ring header.
func firstFrameCapacity(pageSize uint32) uint32 {
	return pageSize - ringHdrLen
}

// payloadAddr maps a logical payload offset (already reduced mod ring.Len)
// to a (frame index, offset within frame) pair, accounting for frame 0's
// header-reduced capacity (§4.B: "frame 0 additionally holds the ring
// header at its beginning, which the copy routines never overwrite").
func payloadAddr(pageSize uint32, offset uint32) (frameIdx int, inFrame uint32) {
	first := firstFrameCapacity(pageSize)
	if offset < first {
		return 0, ringHdrLen + offset
	}
	rem := offset - first
	return 1 + int(rem/pageSize), rem % pageSize
}

// ringCopy copies length bytes between a caller buffer and the ring's
// payload region starting at logical offset (mod ring.Len), splitting the
// run at the ring.Len wrap point and across frame boundaries like the original's page-crossing
// v4v_memcpy_*_guest_ring routines. toRing selects direction.
func ringCopy(mapper *Mapper, ring *RingInfo, pageSize uint32, offset uint32, buf []byte, toRing bool) error {
	remaining := buf
	pos := offset % ring.Len
	for len(remaining) > 0 {
		frameIdx, inFrame := payloadAddr(pageSize, pos)
		frame, err := mapper.Map(ring, frameIdx)
		if err != nil {
			return err
		}
		space := pageSize - inFrame
		if toEnd := ring.Len - pos; toEnd < space {
			space = toEnd
		}
		n := uint32(len(remaining))
		if n > space {
			n = space
		}
		if toRing {
			copy(frame[inFrame:inFrame+n], remaining[:n])
		} else {
			copy(remaining[:n], frame[inFrame:inFrame+n])
		}
		remaining = remaining[n:]
		pos += n
		if pos >= ring.Len {
			pos -= ring.Len
		}
	}
	return nil
}

// payloadSpace computes the free bytes available for a new message, given
// the guest's current rx_ptr (§4.B "Free-space computation"). rx must have
// already been read via a single atomic load by the caller.
func payloadSpace(ringLen uint32, txPtr, rxPtr uint32) uint32 {
	if rxPtr == txPtr {
		return ringLen - messageHeaderSize
	}
	free := (int64(rxPtr) - int64(txPtr) + int64(ringLen)) % int64(ringLen)
	free -= messageHeaderSize + SlotMarker
	if free < 0 {
		return 0
	}
	return uint32(free)
}

// insertv is the ring storage protocol's core operation (§4.B). Caller must
// hold ring.l3. On success it returns the number of bytes written
// (messageHeaderSize + roundup16(len(payload))).
func insertv(mapper *Mapper, ring *RingInfo, pageSize uint32, source Address, msgType uint32, iovs []Iovec, log *logrus.Logger) (int, error) {
	total := iovTotalLen(iovs)
	if total > MaxSendBytes {
		return 0, fmt.Errorf("insertv: %d bytes exceeds 2GiB cap: %w", total, ErrMsgTooLarge)
	}
	l := uint32(total)
	padded := roundup16(l)
	if uint64(padded)+messageHeaderSize >= uint64(ring.Len) {
		return 0, fmt.Errorf("insertv: message of %d bytes too large for ring of len %d: %w", l, ring.Len, ErrMsgTooLarge)
	}

	frame0, err := mapper.Map(ring, 0)
	if err != nil {
		return 0, err
	}

	rxPtr := atomicLoadRxPtr(frame0)
	txPtr := ring.txPtr

	// Empty-ring reset (§4.B step 3): collapse wrap drift once the
	// consumer has fully caught up.
	if rxPtr == txPtr && txPtr != 0 {
		ring.txPtr = 0
		txPtr = 0
		rxPtr = 0
		atomicStoreRxPtr(frame0, 0)
	}

	free := payloadSpace(ring.Len, txPtr, rxPtr)
	if uint64(padded) > uint64(free) {
		return 0, ErrWouldBlock
	}

	hdr := messageHeader{Len: messageHeaderSize + l, MessageType: msgType, Source: source}
	hdrBuf := make([]byte, messageHeaderSize)
	encodeMessageHeader(hdrBuf, hdr)
	if err := ringCopy(mapper, ring, pageSize, txPtr, hdrBuf, true); err != nil {
		return 0, fmt.Errorf("insertv: header copy: %w", err)
	}
	txPtr = (txPtr + messageHeaderSize) % ring.Len

	for _, iov := range iovs {
		if len(iov.Data) == 0 {
			continue
		}
		if err := ringCopy(mapper, ring, pageSize, txPtr, iov.Data, true); err != nil {
			return 0, fmt.Errorf("insertv: payload copy: %w", err)
		}
		txPtr = (txPtr + uint32(len(iov.Data))) % ring.Len
	}

	// Round to next 16-byte boundary and pad with zeros so the next
	// header starts aligned (§4.B step 7).
	padBytes := roundup16(l) - l
	if padBytes > 0 {
		zeros := make([]byte, padBytes)
		if err := ringCopy(mapper, ring, pageSize, txPtr, zeros, true); err != nil {
			return 0, fmt.Errorf("insertv: pad copy: %w", err)
		}
		txPtr = (txPtr + padBytes) % ring.Len
	}

	ring.txPtr = txPtr
	atomicStoreTxPtr(frame0, txPtr)

	if log != nil {
		log.WithFields(ringFields(ring.ID)).WithField("bytes", messageHeaderSize+l).Debug("insertv committed")
	}
	return int(messageHeaderSize + padded), nil
}
