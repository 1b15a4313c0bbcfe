package v4v

import "encoding/binary"

// messageHeaderSize is the fixed size of the header prefixing every
// message in a ring (§4.B, §6).
const messageHeaderSize = 16

// roundup16 rounds a up to the next multiple of 16 (V4V_ROUNDUP in the
// original).
func roundup16(a uint32) uint32 {
	return (a + 0xf) &^ 0xf
}

// messageHeader is the 16-byte header prefixing every message in a ring.
type messageHeader struct {
	Len         uint32 // total length including this header
	MessageType uint32
	Source      Address
}

// encodeMessageHeader writes h into the first 16 bytes of dst.
func encodeMessageHeader(dst []byte, h messageHeader) {
	binary.LittleEndian.PutUint32(dst[0:4], h.Len)
	binary.LittleEndian.PutUint32(dst[4:8], h.MessageType)
	binary.LittleEndian.PutUint16(dst[8:10], h.Source.Domain)
	binary.LittleEndian.PutUint32(dst[10:14], h.Source.Port)
	dst[14] = 0
	dst[15] = 0
}

// decodeMessageHeader reads a messageHeader from the first 16 bytes of src.
func decodeMessageHeader(src []byte) messageHeader {
	return messageHeader{
		Len:         binary.LittleEndian.Uint32(src[0:4]),
		MessageType: binary.LittleEndian.Uint32(src[4:8]),
		Source: Address{
			Domain: binary.LittleEndian.Uint16(src[8:10]),
			Port:   binary.LittleEndian.Uint32(src[10:14]),
		},
	}
}
