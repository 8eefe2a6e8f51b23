package vecwire

import (
	"fmt"
)

// Name is the content-subtype registered with gRPC.
const Name = "vecwire"

// Codec implements grpc's encoding.Codec for Message values.
type Codec struct{}

func (Codec) Name() string { return Name }

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("vecwire: cannot marshal %T", v)
	}
	return Marshal(m), nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("vecwire: cannot unmarshal into %T", v)
	}
	return Unmarshal(data, m)
}

// Marshal returns header and body of m.
func Marshal(m Message) []byte {
	body := m.AppendBody(make([]byte, HeaderLen, HeaderLen+64))
	h := Header{Version: Version, Kind: m.Kind(), PayloadLen: uint32(len(body) - HeaderLen)}
	h.MarshalBinary(body[:HeaderLen])
	return body
}

// Unmarshal checks the header and parses the body into m.
func Unmarshal(data []byte, m Message) error {
	var h Header
	if !h.UnmarshalBinary(data) {
		return fmt.Errorf("%w: %d bytes is shorter than the header", ErrMalformed, len(data))
	}
	if h.Version != Version {
		return fmt.Errorf("%w: version %d", ErrMalformed, h.Version)
	}
	if h.Kind != m.Kind() {
		return fmt.Errorf("%w: kind %d, want %d", ErrMalformed, h.Kind, m.Kind())
	}
	if int(h.PayloadLen) != len(data)-HeaderLen {
		return fmt.Errorf("%w: payload length %d, have %d", ErrMalformed, h.PayloadLen, len(data)-HeaderLen)
	}
	return m.ParseBody(data[HeaderLen:])
}

// PackBits packs 0/1 values MSB first.
func PackBits(bits []uint8) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		out[i/8] |= (b & 1) << (7 - uint(i%8))
	}
	return out
}

// UnpackBits returns the first n bits of packed.
func UnpackBits(packed []byte, n int) ([]uint8, error) {
	if n > 8*len(packed) {
		return nil, fmt.Errorf("%w: %d bits from %d bytes", ErrMalformed, n, len(packed))
	}
	out := make([]uint8, n)
	for i := range out {
		out[i] = packed[i/8] >> (7 - uint(i%8)) & 1
	}
	return out, nil
}
