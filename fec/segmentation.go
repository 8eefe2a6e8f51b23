package fec

import (
	"fmt"

	"github.com/observe-l/ulsch/lte"
)

const (
	// MaxCodeBlockSize is Z, the largest turbo code block.
	MaxCodeBlockSize = 6144
	// MinTBS and MaxTBS bound the single-layer uplink transport block size.
	MinTBS = 16
	MaxTBS = 75376

	tbCRCLen = 24
	cbCRCLen = 24
)

// Segmentation describes how a transport block (with its CRC) is split into code
// blocks, TS 36.212 5.1.2.
type Segmentation struct {
	TBS    int // transport block size without CRC
	B      int // TBS + 24
	C      int // number of code blocks
	CPlus  int
	CMinus int
	KPlus  int
	KMinus int
	F      int // filler bits prepended to block 0
	L      int // per-block CRC length, 0 when C == 1
}

// NewSegmentation computes the segmentation of a transport block of tbs bits.
func NewSegmentation(tbs int) (Segmentation, error) {
	if tbs < MinTBS || tbs > MaxTBS {
		return Segmentation{}, fmt.Errorf("%w: tbs %d outside [%d,%d]", lte.ErrInvalidConfiguration, tbs, MinTBS, MaxTBS)
	}
	s := Segmentation{TBS: tbs, B: tbs + tbCRCLen}
	bp := s.B
	if s.B <= MaxCodeBlockSize {
		s.C = 1
	} else {
		s.L = cbCRCLen
		s.C = (s.B + MaxCodeBlockSize - s.L - 1) / (MaxCodeBlockSize - s.L)
		bp = s.B + s.C*s.L
	}
	// smallest K with C*K >= B'
	idx := -1
	for i, p := range qppTable {
		if s.C*p.K >= bp {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Segmentation{}, fmt.Errorf("%w: no code block size for B'=%d C=%d", lte.ErrInvalidConfiguration, bp, s.C)
	}
	s.KPlus = qppTable[idx].K
	if s.C == 1 {
		s.CPlus = 1
	} else {
		s.KMinus = qppTable[idx-1].K
		dK := s.KPlus - s.KMinus
		s.CMinus = (s.C*s.KPlus - bp) / dK
		s.CPlus = s.C - s.CMinus
	}
	s.F = s.CPlus*s.KPlus + s.CMinus*s.KMinus - bp
	return s, nil
}

// BlockSize returns K_r, the size of code block r including its CRC and filler.
func (s Segmentation) BlockSize(r int) int {
	if r < s.CMinus {
		return s.KMinus
	}
	return s.KPlus
}

// SumK is the sum of K_r over all code blocks, the denominator of the UCI resource
// formulas.
func (s Segmentation) SumK() int {
	return s.CPlus*s.KPlus + s.CMinus*s.KMinus
}

// SystematicBits is the number of systematic bits that carry information (CRCs
// included, filler excluded).
func (s Segmentation) SystematicBits() int {
	return s.SumK() - s.F
}

// Split attaches per-block CRCs and filler to tb, which must already carry the
// transport block CRC (length B). Filler positions hold lte.BitNull.
func (s Segmentation) Split(tb []uint8) ([][]uint8, error) {
	if len(tb) != s.B {
		return nil, fmt.Errorf("%w: %d bits for B=%d", lte.ErrInvalidConfiguration, len(tb), s.B)
	}
	blocks := make([][]uint8, s.C)
	k := 0
	for r := 0; r < s.C; r++ {
		K := s.BlockSize(r)
		blk := make([]uint8, 0, K)
		if r == 0 {
			for i := 0; i < s.F; i++ {
				blk = append(blk, lte.BitNull)
			}
		}
		n := K - s.L - len(blk)
		blk = append(blk, tb[k:k+n]...)
		k += n
		if s.L > 0 {
			blk = CRC24B.AppendTo(blk)
		}
		blocks[r] = blk
	}
	return blocks, nil
}
