package scramble

import (
	"fmt"

	"github.com/observe-l/ulsch/lte"
)

// Scrambler holds the ten per-subframe sequences of one RNTI. It is immutable after
// construction and safe for concurrent use.
type Scrambler struct {
	rnti   uint16
	cellID uint32
	seq    [lte.SubframesPerFrame][]uint8
}

// MaxBits is the longest PUSCH codeword a cell can carry in one subframe.
func MaxBits(c lte.Cell) int {
	return c.Subcarriers() * c.CP.DataSymbols() * lte.QAM64.BitsPerSymbol()
}

// New precomputes the sequences for rnti in cell c.
func New(c lte.Cell, rnti uint16) (*Scrambler, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	s := &Scrambler{rnti: rnti, cellID: c.ID}
	n := MaxBits(c)
	for sf := range s.seq {
		s.seq[sf] = Sequence(CInit(rnti, sf, c.ID), n)
	}
	return s, nil
}

// RNTI returns the identity the sequences were generated for.
func (s *Scrambler) RNTI() uint16 { return s.rnti }

// Scramble returns the scrambled copy of bits for the given subframe. Placeholder x
// becomes 1 and repetition y copies the previous output bit.
func (s *Scrambler) Scramble(bits []uint8, subframe int) ([]uint8, error) {
	if subframe < 0 || subframe >= lte.SubframesPerFrame {
		return nil, fmt.Errorf("%w: subframe %d", lte.ErrInvalidConfiguration, subframe)
	}
	c := s.seq[subframe]
	if len(bits) > len(c) {
		return nil, fmt.Errorf("%w: %d bits exceed the %d-bit sequence", lte.ErrInvalidBitLength, len(bits), len(c))
	}
	out := make([]uint8, len(bits))
	if err := apply(out, bits, c); err != nil {
		return nil, err
	}
	return out, nil
}

// Apply scrambles bits with a freshly generated sequence for cinit.
func Apply(bits []uint8, cinit uint32) ([]uint8, error) {
	out := make([]uint8, len(bits))
	if err := apply(out, bits, Sequence(cinit, len(bits))); err != nil {
		return nil, err
	}
	return out, nil
}

func apply(dst, bits, c []uint8) error {
	for i, b := range bits {
		switch b {
		case 0, 1:
			dst[i] = b ^ c[i]
		case lte.BitPlaceholder:
			dst[i] = 1
		case lte.BitRepeat:
			if i == 0 {
				return fmt.Errorf("%w: repetition placeholder at bit 0", lte.ErrInvalidConfiguration)
			}
			dst[i] = dst[i-1]
		default:
			return fmt.Errorf("%w: bit %d has value %#x", lte.ErrInvalidConfiguration, i, b)
		}
	}
	return nil
}
