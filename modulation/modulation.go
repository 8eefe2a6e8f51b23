// Package modulation maps scrambled bits to PUSCH constellation symbols, TS 36.211 7.1.
package modulation

import (
	"fmt"
	"math"

	"github.com/observe-l/ulsch/lte"
)

// tables holds the unit-energy constellation of each scheme indexed by the Qm-bit
// group read MSB first (b(i) is the most significant bit).
var tables = map[lte.Modulation][]complex64{
	lte.QPSK:  build(lte.QPSK),
	lte.QAM16: build(lte.QAM16),
	lte.QAM64: build(lte.QAM64),
}

// scale is the normalisation factor 1/sqrt(2), 1/sqrt(10), 1/sqrt(42).
func scale(m lte.Modulation) float64 {
	switch m {
	case lte.QPSK:
		return 1 / math.Sqrt(2)
	case lte.QAM16:
		return 1 / math.Sqrt(10)
	default:
		return 1 / math.Sqrt(42)
	}
}

func sign(b int) float64 { return float64(1 - 2*b) }

func build(m lte.Modulation) []complex64 {
	qm := m.BitsPerSymbol()
	k := scale(m)
	t := make([]complex64, 1<<qm)
	for v := range t {
		b := make([]int, qm)
		for i := range b {
			b[i] = v >> (qm - 1 - i) & 1
		}
		var re, im float64
		switch m {
		case lte.QPSK:
			re, im = sign(b[0]), sign(b[1])
		case lte.QAM16:
			re = sign(b[0]) * (1 + 2*float64(b[2]))
			im = sign(b[1]) * (1 + 2*float64(b[3]))
		case lte.QAM64:
			re = sign(b[0]) * (4 - sign(b[2])*(1+2*float64(b[4])))
			im = sign(b[1]) * (4 - sign(b[3])*(1+2*float64(b[5])))
		}
		t[v] = complex(float32(re*k), float32(im*k))
	}
	return t
}

// Point returns the constellation point of a Qm-bit group given as an integer.
func Point(m lte.Modulation, group int) complex64 { return tables[m][group] }

// Modulate maps bits to symbols. len(bits) must be a multiple of Qm.
func Modulate(bits []uint8, m lte.Modulation) ([]complex64, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %v", lte.ErrInvalidConfiguration, m)
	}
	qm := m.BitsPerSymbol()
	if len(bits)%qm != 0 {
		return nil, fmt.Errorf("%w: %d bits is not a multiple of %d", lte.ErrInvalidBitLength, len(bits), qm)
	}
	if err := lte.CheckBinary(bits); err != nil {
		return nil, err
	}
	t := tables[m]
	out := make([]complex64, len(bits)/qm)
	for i := range out {
		v := 0
		for _, b := range bits[i*qm : (i+1)*qm] {
			v = v<<1 | int(b)
		}
		out[i] = t[v]
	}
	return out, nil
}

// Demodulate makes a nearest-point hard decision for every symbol.
func Demodulate(symbols []complex64, m lte.Modulation) ([]uint8, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %v", lte.ErrInvalidConfiguration, m)
	}
	qm := m.BitsPerSymbol()
	k := scale(m)
	out := make([]uint8, 0, len(symbols)*qm)
	for _, s := range symbols {
		i, q := float64(real(s))/k, float64(imag(s))/k
		switch m {
		case lte.QPSK:
			out = append(out, neg(i), neg(q))
		case lte.QAM16:
			out = append(out, neg(i), neg(q), outer(i, 2), outer(q, 2))
		case lte.QAM64:
			out = append(out, neg(i), neg(q), outer(i, 4), outer(q, 4),
				edge(i), edge(q))
		}
	}
	return out, nil
}

func neg(x float64) uint8 {
	if x < 0 {
		return 1
	}
	return 0
}

func outer(x, threshold float64) uint8 {
	if math.Abs(x) > threshold {
		return 1
	}
	return 0
}

// edge reports whether a 64QAM amplitude is one of the extreme levels 1 or 7.
func edge(x float64) uint8 {
	if math.Abs(math.Abs(x)-4) > 2 {
		return 1
	}
	return 0
}
