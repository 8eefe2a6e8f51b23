// Package vecwire is the binary encoding of encoder requests and results exchanged
// with the gRPC service. Every message is a Header followed by a protobuf-wire body.
package vecwire

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned for bodies that do not parse.
var ErrMalformed = errors.New("vecwire: malformed message")

// Message is implemented by every wire type.
type Message interface {
	Kind() uint8
	AppendBody(b []byte) []byte
	ParseBody(b []byte) error
}

// EncodeRequest asks the server to encode one subframe on a HARQ process.
type EncodeRequest struct {
	ProcessID    uint32
	CellID       uint32
	NofPRB       uint32
	ExtendedCP   bool
	RNTI         uint32
	Modulation   uint32 // lte.Modulation
	Subframe     uint32
	RV           uint32
	FirstPRB     [2]uint32
	AllocPRB     uint32
	TBS          uint32
	TransportBlk []byte // packed, MSB first
	CQI, RI, ACK []byte // one bit per byte
	BetaCQI      float64
	BetaRI       float64
	BetaACK      float64
	WantWaveform bool
}

func (*EncodeRequest) Kind() uint8 { return KindEncodeRequest }

func (m *EncodeRequest) AppendBody(b []byte) []byte {
	b = appendUint(b, 1, uint64(m.ProcessID))
	b = appendUint(b, 2, uint64(m.CellID))
	b = appendUint(b, 3, uint64(m.NofPRB))
	b = appendBool(b, 4, m.ExtendedCP)
	b = appendUint(b, 5, uint64(m.RNTI))
	b = appendUint(b, 6, uint64(m.Modulation))
	b = appendUint(b, 7, uint64(m.Subframe))
	b = appendUint(b, 8, uint64(m.RV))
	b = appendUint(b, 9, uint64(m.FirstPRB[0]))
	b = appendUint(b, 10, uint64(m.FirstPRB[1]))
	b = appendUint(b, 11, uint64(m.AllocPRB))
	b = appendUint(b, 12, uint64(m.TBS))
	b = appendBytes(b, 13, m.TransportBlk)
	b = appendBytes(b, 14, m.CQI)
	b = appendBytes(b, 15, m.RI)
	b = appendBytes(b, 16, m.ACK)
	b = appendDouble(b, 17, m.BetaCQI)
	b = appendDouble(b, 18, m.BetaRI)
	b = appendDouble(b, 19, m.BetaACK)
	b = appendBool(b, 20, m.WantWaveform)
	return b
}

func (m *EncodeRequest) ParseBody(b []byte) error {
	return parseFields(b, func(num protowire.Number, v field) error {
		switch num {
		case 1:
			m.ProcessID = uint32(v.u)
		case 2:
			m.CellID = uint32(v.u)
		case 3:
			m.NofPRB = uint32(v.u)
		case 4:
			m.ExtendedCP = v.u != 0
		case 5:
			m.RNTI = uint32(v.u)
		case 6:
			m.Modulation = uint32(v.u)
		case 7:
			m.Subframe = uint32(v.u)
		case 8:
			m.RV = uint32(v.u)
		case 9:
			m.FirstPRB[0] = uint32(v.u)
		case 10:
			m.FirstPRB[1] = uint32(v.u)
		case 11:
			m.AllocPRB = uint32(v.u)
		case 12:
			m.TBS = uint32(v.u)
		case 13:
			m.TransportBlk = v.bytes()
		case 14:
			m.CQI = v.bytes()
		case 15:
			m.RI = v.bytes()
		case 16:
			m.ACK = v.bytes()
		case 17:
			m.BetaCQI = math.Float64frombits(v.u)
		case 18:
			m.BetaRI = math.Float64frombits(v.u)
		case 19:
			m.BetaACK = math.Float64frombits(v.u)
		case 20:
			m.WantWaveform = v.u != 0
		}
		return nil
	})
}

// EncodeResponse carries the products of one encode.
type EncodeResponse struct {
	RV          uint32
	G           uint32
	NofRE       uint32
	ControlRE   [3]uint32 // cqi, ri, ack
	MatchedBits []byte    // one bit per byte
	Waveform    []complex64
	SubframeLen uint32
}

func (*EncodeResponse) Kind() uint8 { return KindEncodeResponse }

func (m *EncodeResponse) AppendBody(b []byte) []byte {
	b = appendUint(b, 1, uint64(m.RV))
	b = appendUint(b, 2, uint64(m.G))
	b = appendUint(b, 3, uint64(m.NofRE))
	packed := make([]byte, 0, 3*2)
	for _, v := range m.ControlRE {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	b = appendBytes(b, 4, packed)
	b = appendBytes(b, 5, m.MatchedBits)
	if len(m.Waveform) > 0 {
		iq := make([]byte, 0, 8*len(m.Waveform))
		for _, s := range m.Waveform {
			iq = protowire.AppendFixed32(iq, math.Float32bits(real(s)))
			iq = protowire.AppendFixed32(iq, math.Float32bits(imag(s)))
		}
		b = appendBytes(b, 6, iq)
	}
	b = appendUint(b, 7, uint64(m.SubframeLen))
	return b
}

func (m *EncodeResponse) ParseBody(b []byte) error {
	return parseFields(b, func(num protowire.Number, v field) error {
		switch num {
		case 1:
			m.RV = uint32(v.u)
		case 2:
			m.G = uint32(v.u)
		case 3:
			m.NofRE = uint32(v.u)
		case 4:
			p := v.b
			for i := range m.ControlRE {
				x, n := protowire.ConsumeVarint(p)
				if n < 0 {
					return fmt.Errorf("%w: control_re: %v", ErrMalformed, protowire.ParseError(n))
				}
				m.ControlRE[i] = uint32(x)
				p = p[n:]
			}
		case 5:
			m.MatchedBits = v.bytes()
		case 6:
			if len(v.b)%8 != 0 {
				return fmt.Errorf("%w: waveform of %d bytes", ErrMalformed, len(v.b))
			}
			m.Waveform = make([]complex64, len(v.b)/8)
			p := v.b
			for i := range m.Waveform {
				re, _ := protowire.ConsumeFixed32(p)
				im, _ := protowire.ConsumeFixed32(p[4:])
				m.Waveform[i] = complex(math.Float32frombits(re), math.Float32frombits(im))
				p = p[8:]
			}
		case 7:
			m.SubframeLen = uint32(v.u)
		}
		return nil
	})
}

// ResetRequest flushes a HARQ process.
type ResetRequest struct {
	ProcessID uint32
}

func (*ResetRequest) Kind() uint8 { return KindResetRequest }

func (m *ResetRequest) AppendBody(b []byte) []byte {
	return appendUint(b, 1, uint64(m.ProcessID))
}

func (m *ResetRequest) ParseBody(b []byte) error {
	return parseFields(b, func(num protowire.Number, v field) error {
		if num == 1 {
			m.ProcessID = uint32(v.u)
		}
		return nil
	})
}

// ResetResponse reports whether the process existed.
type ResetResponse struct {
	Existed bool
}

func (*ResetResponse) Kind() uint8 { return KindResetResponse }

func (m *ResetResponse) AppendBody(b []byte) []byte {
	return appendBool(b, 1, m.Existed)
}

func (m *ResetResponse) ParseBody(b []byte) error {
	return parseFields(b, func(num protowire.Number, v field) error {
		if num == 1 {
			m.Existed = v.u != 0
		}
		return nil
	})
}
