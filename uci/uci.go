// Package uci encodes uplink control information (CQI, RI and HARQ-ACK) multiplexed on
// the PUSCH, TS 36.212 5.2.2.6.
package uci

import (
	"fmt"
	"math"

	"github.com/observe-l/ulsch/fec"
	"github.com/observe-l/ulsch/lte"
)

// DefaultBeta is the beta offset used when a field does not override it.
const DefaultBeta = 2.0

// cqiCRCThreshold is the payload size above which CQI uses CRC8 + convolutional coding.
const cqiCRCThreshold = 11

// Field is one control information field. A nil *Field is absent; a present field
// with no bits costs nothing.
type Field struct {
	Bits []uint8
	// Beta is the resource offset; zero selects DefaultBeta.
	Beta float64
}

// NewField returns a field with the default beta offset.
func NewField(bits []uint8) *Field {
	return &Field{Bits: bits, Beta: DefaultBeta}
}

func (f *Field) present() bool { return f != nil && len(f.Bits) > 0 }

func (f *Field) beta() (float64, error) {
	b := f.Beta
	if b == 0 {
		b = DefaultBeta
	}
	if b < 0 || math.IsNaN(b) || math.IsInf(b, 0) {
		return 0, fmt.Errorf("%w: beta offset %v", lte.ErrInvalidConfiguration, f.Beta)
	}
	return b, nil
}

// Payload is the control information of one subframe.
type Payload struct {
	CQI *Field
	RI  *Field
	ACK *Field
}

// Empty reports whether no field carries bits.
func (p Payload) Empty() bool {
	return !p.CQI.present() && !p.RI.present() && !p.ACK.present()
}

// Params are the resource parameters the beta formulas depend on.
type Params struct {
	Modulation lte.Modulation
	// Subcarriers and Symbols describe the current PUSCH allocation.
	Subcarriers int
	Symbols     int
	// InitialSubcarriers and InitialSymbols describe the initial transmission of the
	// transport block (M_sc^initial, N_symb^initial).
	InitialSubcarriers int
	InitialSymbols     int
	// SumK is the sum of code block sizes of the transport block.
	SumK int
}

// NofRE is the number of PUSCH resource elements.
func (p Params) NofRE() int { return p.Subcarriers * p.Symbols }

func (p Params) validate() error {
	if !p.Modulation.Valid() {
		return fmt.Errorf("%w: %v", lte.ErrInvalidConfiguration, p.Modulation)
	}
	if p.Subcarriers <= 0 || p.Symbols <= 0 || p.InitialSubcarriers <= 0 || p.InitialSymbols <= 0 {
		return fmt.Errorf("%w: empty allocation", lte.ErrInvalidConfiguration)
	}
	if p.SumK <= 0 {
		return fmt.Errorf("%w: control information needs a transport block", lte.ErrInvalidConfiguration)
	}
	return nil
}

// Encoded is the coded form of one field.
type Encoded struct {
	Bits  []uint8
	NofRE int
}

// Result holds the coded fields. Absent fields are zero.
type Result struct {
	CQI Encoded
	RI  Encoded
	ACK Encoded
}

// Empty reports whether no control information occupies the grid.
func (r *Result) Empty() bool {
	return r == nil || (r.CQI.NofRE == 0 && r.RI.NofRE == 0 && r.ACK.NofRE == 0)
}

// DataRE returns the resource elements left to CQI and data after RI.
func (r *Result) DataRE(nofRE int) int {
	if r == nil {
		return nofRE
	}
	return nofRE - r.RI.NofRE
}

// Encode codes every present field. RI is computed first since it bounds the CQI
// budget.
func Encode(p Payload, prm Params) (*Result, error) {
	res := &Result{}
	if p.Empty() {
		return res, nil
	}
	if err := prm.validate(); err != nil {
		return nil, err
	}
	qm := prm.Modulation.BitsPerSymbol()
	var err error
	if p.RI.present() {
		if res.RI, err = encodeAckRI(p.RI, prm, qm); err != nil {
			return nil, fmt.Errorf("ri: %w", err)
		}
	}
	if p.CQI.present() {
		if res.CQI, err = encodeCQI(p.CQI, prm, qm, res.RI.NofRE); err != nil {
			return nil, fmt.Errorf("cqi: %w", err)
		}
	}
	if p.ACK.present() {
		if res.ACK, err = encodeAckRI(p.ACK, prm, qm); err != nil {
			return nil, fmt.Errorf("ack: %w", err)
		}
	}
	return res, nil
}

// resourceElements evaluates ceil(O * M_sc * N_symb * beta / sum K_r).
func resourceElements(o int, beta float64, prm Params) int {
	x := float64(o) * float64(prm.InitialSubcarriers) * float64(prm.InitialSymbols) * beta / float64(prm.SumK)
	return int(math.Ceil(x))
}

// AckRIResources returns Q' for an ACK or RI field of o bits; it saturates at 4*M_sc.
func AckRIResources(o int, beta float64, prm Params) int {
	q := resourceElements(o, beta, prm)
	if limit := 4 * prm.Subcarriers; q > limit {
		q = limit
	}
	return q
}

// CQIResources returns the unclipped Q' demand of a CQI field of o bits.
func CQIResources(o int, beta float64, prm Params) int {
	l := 0
	if o > cqiCRCThreshold {
		l = fec.CRC8.Order()
	}
	return resourceElements(o+l, beta, prm)
}

func encodeAckRI(f *Field, prm Params, qm int) (Encoded, error) {
	if err := lte.CheckBinary(f.Bits); err != nil {
		return Encoded{}, err
	}
	beta, err := f.beta()
	if err != nil {
		return Encoded{}, err
	}
	o := len(f.Bits)
	var pattern []uint8
	switch {
	case o == 1:
		pattern = ackRIOneBit(f.Bits[0], qm)
	case o == 2:
		pattern = ackRITwoBit(f.Bits[0], f.Bits[1], qm)
	case o <= fec.ReedMullerMaxBits:
		if pattern, err = fec.ReedMullerEncode(f.Bits); err != nil {
			return Encoded{}, err
		}
	default:
		return Encoded{}, fmt.Errorf("%w: %d bits, at most %d supported", lte.ErrInvalidConfiguration, o, fec.ReedMullerMaxBits)
	}
	q := AckRIResources(o, beta, prm)
	return Encoded{Bits: fec.RepeatCircular(pattern, q*qm), NofRE: q}, nil
}

// ackRIOneBit is [o y] padded with x placeholders to Qm bits.
func ackRIOneBit(o uint8, qm int) []uint8 {
	out := make([]uint8, qm)
	out[0] = o
	out[1] = lte.BitRepeat
	for i := 2; i < qm; i++ {
		out[i] = lte.BitPlaceholder
	}
	return out
}

// ackRITwoBit is [o0 o1], [o2 o0], [o1 o2] with o2 = o0 xor o1, each pair padded with x
// placeholders to Qm bits.
func ackRITwoBit(o0, o1 uint8, qm int) []uint8 {
	o2 := o0 ^ o1
	pairs := [3][2]uint8{{o0, o1}, {o2, o0}, {o1, o2}}
	out := make([]uint8, 0, 3*qm)
	for _, pr := range pairs {
		out = append(out, pr[0], pr[1])
		for i := 2; i < qm; i++ {
			out = append(out, lte.BitPlaceholder)
		}
	}
	return out
}

func encodeCQI(f *Field, prm Params, qm, riRE int) (Encoded, error) {
	if err := lte.CheckBinary(f.Bits); err != nil {
		return Encoded{}, err
	}
	beta, err := f.beta()
	if err != nil {
		return Encoded{}, err
	}
	o := len(f.Bits)
	q := CQIResources(o, beta, prm)
	if avail := prm.NofRE() - riRE; q > avail {
		return Encoded{}, fmt.Errorf("%w: cqi needs %d resource elements, %d available", lte.ErrControlOverflow, q, avail)
	}
	n := q * qm
	if o <= cqiCRCThreshold {
		b, err := fec.ReedMullerEncode(f.Bits)
		if err != nil {
			return Encoded{}, err
		}
		return Encoded{Bits: fec.RepeatCircular(b, n), NofRE: q}, nil
	}
	d, err := fec.ConvEncode(fec.CRC8.Append(f.Bits))
	if err != nil {
		return Encoded{}, err
	}
	return Encoded{Bits: fec.ConvRateMatch(d, n), NofRE: q}, nil
}
