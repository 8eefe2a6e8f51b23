package harq

import (
	"fmt"

	"github.com/observe-l/ulsch/fec"
	"github.com/observe-l/ulsch/lte"
)

// RateMatch produces exactly G bits for the current redundancy version of p and commits
// the process setup.
//
// On the initial transmission (RV 0) the coded transport block is written into the
// process buffers. Retransmissions ignore coded and read the buffers again from the
// RV-dependent starting point; they fail with lte.ErrProcessNotInitialized if no
// initial transmission filled the buffers. On error p is unchanged.
func RateMatch(p *Process, coded *fec.CodedTransportBlock, G int) ([]uint8, error) {
	if !p.configured {
		return nil, fmt.Errorf("%w: process not set up", lte.ErrProcessNotInitialized)
	}
	t := &Transmission{p: p, cfg: p.cfg, seg: p.seg, filled: p.filled}
	if p.cfg.RV == 0 && !p.filled {
		t.initial = true
	}
	out, err := t.RateMatch(coded, G)
	if err != nil {
		return nil, err
	}
	t.Commit()
	return out, nil
}

// RateMatch produces exactly G bits for the transmission. An initial transmission stages
// the circular buffers of coded; the process buffers are replaced only by Commit.
func (t *Transmission) RateMatch(coded *fec.CodedTransportBlock, G int) ([]uint8, error) {
	qm := t.cfg.Modulation.BitsPerSymbol()
	if G <= 0 || G%qm != 0 {
		return nil, fmt.Errorf("%w: G=%d for Qm=%d", lte.ErrInvalidBitLength, G, qm)
	}
	if sys := t.seg.SystematicBits(); G < sys {
		return nil, fmt.Errorf("%w: %d bits cannot carry %d systematic bits", lte.ErrAllocationTooSmall, G, sys)
	}
	var buffers [][]uint8
	if t.initial {
		if coded == nil {
			return nil, fmt.Errorf("%w: initial transmission without coded block", lte.ErrInvalidConfiguration)
		}
		if coded.Segmentation != t.seg {
			return nil, fmt.Errorf("%w: coded block tbs %d, process tbs %d",
				lte.ErrInvalidConfiguration, coded.Segmentation.TBS, t.seg.TBS)
		}
		buffers = make([][]uint8, len(coded.Blocks))
		for r, blk := range coded.Blocks {
			buffers[r] = fec.TurboCircularBuffer(make([]uint8, fec.TurboBufferLen(len(blk.D[0]))), blk.D)
		}
	} else {
		if !t.filled {
			return nil, fmt.Errorf("%w: rv %d", lte.ErrProcessNotInitialized, t.cfg.RV)
		}
		buffers = make([][]uint8, t.seg.C)
		for r := range buffers {
			buffers[r] = t.p.buffers[r][:t.p.lens[r]]
		}
	}

	out := make([]uint8, 0, G)
	for r := 0; r < t.seg.C; r++ {
		w := buffers[r]
		E := BlockOutputLen(G, qm, t.seg.C, r)
		out = append(out, fec.SelectBits(w, StartOffset(len(w), t.cfg.RV), E)...)
	}
	if t.initial {
		t.staged = buffers
		t.filled = true
	}
	return out, nil
}

// BlockOutputLen returns E_r, the rate-matched length of code block r when G bits are
// shared among C blocks (single layer).
func BlockOutputLen(G, qm, C, r int) int {
	gp := G / qm
	gamma := gp % C
	if r <= C-gamma-1 {
		return qm * (gp / C)
	}
	return qm * ((gp + C - 1) / C)
}

// StartOffset returns k0 for a circular buffer of Ncb bits.
func StartOffset(ncb, rv int) int {
	R := ncb / 3 / 32
	return R * (2*ceilDiv(ncb, 8*R)*rv + 2)
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }
