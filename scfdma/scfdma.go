// Package scfdma synthesises the SC-FDMA baseband signal of one uplink subframe,
// TS 36.211 5.6.
package scfdma

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/observe-l/ulsch/grid"
	"github.com/observe-l/ulsch/internal/dft"
	"github.com/observe-l/ulsch/lte"
)

// Synthesizer turns resource grids of one cell into time-domain subframes. It holds
// only read-only tables after construction and is safe for concurrent use.
type Synthesizer struct {
	cell      lte.Cell
	size      int
	shift     bool
	normalize bool
	// phase ramps keyed by cyclic prefix length, each cp+size samples long
	ramps map[int][]complex64
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithFreqShift enables or disables the half-subcarrier shift. Enabled by default.
func WithFreqShift(on bool) Option {
	return func(s *Synthesizer) { s.shift = on }
}

// WithNormalization scales every symbol by 1/sqrt(N_FFT). Disabled by default.
func WithNormalization(on bool) Option {
	return func(s *Synthesizer) { s.normalize = on }
}

// New builds a synthesizer for cell c.
func New(c lte.Cell, opts ...Option) (*Synthesizer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	s := &Synthesizer{cell: c, size: lte.SymbolSize(c.NofPRB), shift: true, ramps: map[int][]complex64{}}
	for _, o := range opts {
		o(s)
	}
	if s.shift {
		for l := 0; l < c.CP.SymbolsPerSlot(); l++ {
			cp := lte.CPLen(l, s.size, c.CP)
			if _, ok := s.ramps[cp]; !ok {
				s.ramps[cp] = ramp(cp, s.size)
			}
		}
	}
	return s, nil
}

// ramp is exp(j*pi*(n-cp)/size) for n in [0, cp+size).
func ramp(cp, size int) []complex64 {
	r := make([]complex64, cp+size)
	for n := range r {
		r[n] = complex64(cmplx.Exp(complex(0, math.Pi*float64(n-cp)/float64(size))))
	}
	return r
}

// SymbolSize is the IFFT length.
func (s *Synthesizer) SymbolSize() int { return s.size }

// Len is the number of samples of one subframe.
func (s *Synthesizer) Len() int { return lte.SubframeLen(s.cell.NofPRB, s.cell.CP) }

// Synthesize returns the subframe waveform of g.
func (s *Synthesizer) Synthesize(g *grid.Grid) ([]complex64, error) {
	out := make([]complex64, s.Len())
	if err := s.SynthesizeInto(out, g); err != nil {
		return nil, err
	}
	return out, nil
}

// SynthesizeInto writes the waveform of g into dst, which must be Len() samples long.
func (s *Synthesizer) SynthesizeInto(dst []complex64, g *grid.Grid) error {
	if g.Cell() != s.cell {
		return fmt.Errorf("%w: grid cell %+v, synthesizer cell %+v", lte.ErrInvalidConfiguration, g.Cell(), s.cell)
	}
	if len(dst) != s.Len() {
		return fmt.Errorf("%w: waveform buffer %d samples, subframe is %d", lte.ErrInvalidConfiguration, len(dst), s.Len())
	}
	nsc := s.cell.Subcarriers()
	k := 1.0
	if s.normalize {
		k = dft.UnitScale(s.size)
	}
	bins := make([]complex64, s.size)
	body := make([]complex64, s.size)
	pos := 0
	nsymb := s.cell.CP.SymbolsPerSlot()
	for l := 0; l < s.cell.SymbolsPerSubframe(); l++ {
		for i := range bins {
			bins[i] = 0
		}
		for i, v := range g.Symbol(l) {
			bins[(i-nsc/2+s.size)%s.size] = v
		}
		dft.Inverse(body, bins, k)

		cp := lte.CPLen(l%nsymb, s.size, s.cell.CP)
		sym := dst[pos : pos+cp+s.size]
		copy(sym, body[s.size-cp:])
		copy(sym[cp:], body)
		if s.shift {
			for n, r := range s.ramps[cp] {
				sym[n] *= r
			}
		}
		pos += cp + s.size
	}
	if pos != len(dst) {
		return fmt.Errorf("%w: produced %d samples, subframe is %d", lte.ErrInvalidConfiguration, pos, len(dst))
	}
	return nil
}
