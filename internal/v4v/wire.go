package v4v

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"
)

// RingMagic is the guest-visible magic value at offset 0 of frame 0 (§6).
const RingMagic uint64 = 0x0002763320f86a38

// Fixed byte offsets of the guest-visible ring header, little-endian (§6).
const (
	offMagic   = 0
	offLen     = 8
	offRxPtr   = 12
	offTxPtr   = 16
	offPad     = 20
	offRingID  = 24
	ringHdrLen = 40 // offRingID + 16
)

// readMagic reads the header magic from frame 0. Not required to be
// atomic: it is only read once, at registration, before the ring is live.
func readMagic(frame0 []byte) uint64 {
	return binary.LittleEndian.Uint64(frame0[offMagic:])
}

func writeMagic(frame0 []byte, v uint64) {
	binary.LittleEndian.PutUint64(frame0[offMagic:], v)
}

func readLen(frame0 []byte) uint32 {
	return binary.LittleEndian.Uint32(frame0[offLen:])
}

func writeLen(frame0 []byte, v uint32) {
	binary.LittleEndian.PutUint32(frame0[offLen:], v)
}

// atomicLoadRxPtr performs the single atomic load the spec requires of the
// consumer-owned, adversarial rx_ptr field.
func atomicLoadRxPtr(frame0 []byte) uint32 {
	addr := (*uint32)(unsafe.Pointer(&frame0[offRxPtr]))
	return atomic.LoadUint32(addr)
}

// atomicStoreRxPtr is used by the hypervisor-side empty-ring reset (§4.B
// step 3), which resets the guest's copy of rx_ptr to 0 alongside tx_ptr,
// and by the guest-side helpers in guest.go.
func atomicStoreRxPtr(frame0 []byte, v uint32) {
	addr := (*uint32)(unsafe.Pointer(&frame0[offRxPtr]))
	atomic.StoreUint32(addr, v)
}

func atomicLoadTxPtr(frame0 []byte) uint32 {
	addr := (*uint32)(unsafe.Pointer(&frame0[offTxPtr]))
	return atomic.LoadUint32(addr)
}

// atomicStoreTxPtr commits tx_ptr with a store followed by the barrier
// semantics Go's atomic package already guarantees on the store itself
// (§4.B step 8, §9 "single atomic stores followed by a full fence").
func atomicStoreTxPtr(frame0 []byte, v uint32) {
	addr := (*uint32)(unsafe.Pointer(&frame0[offTxPtr]))
	atomic.StoreUint32(addr, v)
}

func readRingID(frame0 []byte) RingID {
	b := frame0[offRingID:]
	domain := binary.LittleEndian.Uint16(b[0:2])
	port := binary.LittleEndian.Uint32(b[2:6])
	partner := binary.LittleEndian.Uint16(b[6:8])
	return RingID{Addr: Address{Domain: domain, Port: port}, Partner: partner}
}

func writeRingID(frame0 []byte, id RingID) {
	b := frame0[offRingID:]
	binary.LittleEndian.PutUint16(b[0:2], id.Addr.Domain)
	binary.LittleEndian.PutUint32(b[2:6], id.Addr.Port)
	binary.LittleEndian.PutUint16(b[6:8], id.Partner)
	for i := 8; i < 16; i++ {
		b[i] = 0
	}
}
