package vecwire

import (
	"encoding/binary"
)

// Message kinds used on the wire.
const (
	KindEncodeRequest  uint8 = 1
	KindEncodeResponse uint8 = 2
	KindResetRequest   uint8 = 3
	KindResetResponse  uint8 = 4
)

// Version is the current header version.
const Version uint8 = 1

type Header struct {
	Version    uint8  // 1
	Kind       uint8  // KindEncodeRequest..KindResetResponse
	Flags      uint16 // reserved
	PayloadLen uint32 // body bytes following the header
}

const HeaderLen = 1 + 1 + 2 + 4

func (h *Header) MarshalBinary(b []byte) []byte {
	if len(b) < HeaderLen {
		b = make([]byte, HeaderLen)
	}
	b[0] = h.Version
	b[1] = h.Kind
	binary.LittleEndian.PutUint16(b[2:4], h.Flags)
	binary.LittleEndian.PutUint32(b[4:8], h.PayloadLen)
	return b[:HeaderLen]
}

func (h *Header) UnmarshalBinary(b []byte) bool {
	if len(b) < HeaderLen {
		return false
	}
	h.Version = b[0]
	h.Kind = b[1]
	h.Flags = binary.LittleEndian.Uint16(b[2:4])
	h.PayloadLen = binary.LittleEndian.Uint32(b[4:8])
	return true
}
