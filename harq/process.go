// Package harq holds the per-process HARQ state of the uplink encoder and the
// circular-buffer rate matcher that reads from it.
//
// A Process owns its soft buffer exclusively. Different processes may be used from
// different goroutines without locking; calls on the same process must be sequential.
package harq

import (
	"fmt"

	"github.com/observe-l/ulsch/fec"
	"github.com/observe-l/ulsch/lte"
)

// MaxRV is the largest redundancy version.
const MaxRV = 3

// Config is the per-transmission setup of a process.
type Config struct {
	Modulation lte.Modulation
	TBS        int
	RV         int
	Subframe   int
	Allocation lte.Allocation
}

// Process is one HARQ process: the transmission parameters of the transport block
// in flight and the rate-matching circular buffers that survive retransmissions.
type Process struct {
	cell   lte.Cell
	maxTBS int

	cfg        Config
	configured bool

	seg     fec.Segmentation
	buffers [][]uint8 // one circular buffer per code block, capacity fixed at creation
	lens    []int     // used length of each buffer for the current segmentation
	filled  bool

	// resources of the initial transmission, used by the UCI resource formulas
	initialSubcarriers int
	initialSymbols     int
}

// NewProcess creates a process whose soft buffer can hold any transport block up to
// maxTBS bits. maxTBS <= 0 selects fec.MaxTBS.
func NewProcess(cell lte.Cell, maxTBS int) (*Process, error) {
	if err := cell.Validate(); err != nil {
		return nil, err
	}
	if maxTBS <= 0 {
		maxTBS = fec.MaxTBS
	}
	seg, err := fec.NewSegmentation(maxTBS)
	if err != nil {
		return nil, err
	}
	// a smaller block may still need a single large code block, so size every buffer
	// for the largest K any TBS up to maxTBS can produce
	kmax := seg.KPlus
	if maxTBS+24 > fec.MaxCodeBlockSize {
		kmax = fec.MaxCodeBlockSize
	}
	kw := fec.TurboBufferLen(kmax + fec.TurboTail)
	p := &Process{
		cell:    cell,
		maxTBS:  maxTBS,
		buffers: make([][]uint8, seg.C),
		lens:    make([]int, seg.C),
	}
	for i := range p.buffers {
		p.buffers[i] = make([]uint8, kw)
	}
	return p, nil
}

// Transmission is a validated setup of a process that has not been applied yet.
// Prepare creates it, RateMatch reads from it, and Commit applies it to the process.
// Until Commit the process is unchanged, so a call that fails anywhere in the chain
// leaves the process as it was.
type Transmission struct {
	p       *Process
	cfg     Config
	seg     fec.Segmentation
	initial bool

	staged [][]uint8 // circular buffers of a new block, RV 0 only
	filled bool
}

// Prepare validates cfg against the process. RV 0 starts a new transport block. RV 1..3
// retransmits the block already in the buffer and requires the same TBS and allocation
// width.
func (p *Process) Prepare(cfg Config) (*Transmission, error) {
	if cfg.RV < 0 || cfg.RV > MaxRV {
		return nil, fmt.Errorf("%w: rv %d", lte.ErrInvalidConfiguration, cfg.RV)
	}
	if !cfg.Modulation.Valid() {
		return nil, fmt.Errorf("%w: %v", lte.ErrInvalidConfiguration, cfg.Modulation)
	}
	if cfg.Subframe < 0 || cfg.Subframe >= lte.SubframesPerFrame {
		return nil, fmt.Errorf("%w: subframe %d", lte.ErrInvalidConfiguration, cfg.Subframe)
	}
	if cfg.TBS < fec.MinTBS || cfg.TBS > p.maxTBS {
		return nil, fmt.Errorf("%w: tbs %d outside [%d,%d]", lte.ErrInvalidConfiguration, cfg.TBS, fec.MinTBS, p.maxTBS)
	}
	if err := cfg.Allocation.Fits(p.cell); err != nil {
		return nil, err
	}
	if !lte.ValidDFTSize(cfg.Allocation.Subcarriers()) {
		return nil, fmt.Errorf("%w: %d prb is not a valid transform precoder size", lte.ErrInvalidConfiguration, cfg.Allocation.NofPRB)
	}

	if cfg.RV > 0 {
		if !p.filled {
			return nil, fmt.Errorf("%w: rv %d without initial transmission", lte.ErrProcessNotInitialized, cfg.RV)
		}
		if cfg.TBS != p.cfg.TBS {
			return nil, fmt.Errorf("%w: retransmission tbs %d != %d", lte.ErrInvalidConfiguration, cfg.TBS, p.cfg.TBS)
		}
		if cfg.Allocation.NofPRB != p.cfg.Allocation.NofPRB {
			return nil, fmt.Errorf("%w: retransmission with %d prb, process has %d",
				lte.ErrAllocationMismatch, cfg.Allocation.NofPRB, p.cfg.Allocation.NofPRB)
		}
		return &Transmission{p: p, cfg: cfg, seg: p.seg, filled: true}, nil
	}

	seg, err := fec.NewSegmentation(cfg.TBS)
	if err != nil {
		return nil, err
	}
	if seg.C > len(p.buffers) {
		return nil, fmt.Errorf("%w: %d code blocks, buffer holds %d", lte.ErrInvalidConfiguration, seg.C, len(p.buffers))
	}
	return &Transmission{p: p, cfg: cfg, seg: seg, initial: true}, nil
}

// Setup prepares cfg and commits it at once. RV 0 invalidates the soft buffer until the
// next RateMatch fills it.
func (p *Process) Setup(cfg Config) error {
	t, err := p.Prepare(cfg)
	if err != nil {
		return err
	}
	t.Commit()
	return nil
}

// Config returns the transmission parameters.
func (t *Transmission) Config() Config { return t.cfg }

// Segmentation returns the code block segmentation of the block being sent.
func (t *Transmission) Segmentation() fec.Segmentation { return t.seg }

// InitialResources returns M_sc and N_symb of the initial transmission of the block.
func (t *Transmission) InitialResources() (subcarriers, symbols int) {
	if t.initial {
		return t.cfg.Allocation.Subcarriers(), t.p.cell.CP.DataSymbols()
	}
	return t.p.InitialResources()
}

// NofRE is the number of PUSCH resource elements of the allocation.
func (t *Transmission) NofRE() int {
	return t.cfg.Allocation.Subcarriers() * t.p.cell.CP.DataSymbols()
}

// NofBits is the PUSCH bit capacity of the allocation and modulation.
func (t *Transmission) NofBits() int {
	return t.NofRE() * t.cfg.Modulation.BitsPerSymbol()
}

// Commit applies the transmission to its process. An initial transmission that was
// rate matched replaces the soft buffer; one that was not leaves it invalidated.
func (t *Transmission) Commit() {
	p := t.p
	p.cfg = t.cfg
	p.configured = true
	if !t.initial {
		return
	}
	p.seg = t.seg
	p.initialSubcarriers, p.initialSymbols = t.InitialResources()
	p.filled = t.filled
	for r := range p.lens {
		p.lens[r] = 0
	}
	for r, w := range t.staged {
		p.lens[r] = copy(p.buffers[r], w)
	}
}

// Reset flushes the process; the next Setup must be an initial transmission.
func (p *Process) Reset() {
	p.configured = false
	p.filled = false
	p.cfg = Config{}
	p.seg = fec.Segmentation{}
	for i := range p.lens {
		p.lens[i] = 0
	}
}

// Cell returns the cell the process was created for.
func (p *Process) Cell() lte.Cell { return p.cell }

// Configured reports whether a transmission was committed since creation or the last
// Reset.
func (p *Process) Configured() bool { return p.configured }

// Filled reports whether the soft buffer holds an encoded transport block.
func (p *Process) Filled() bool { return p.filled }

// Config returns the current transmission parameters.
func (p *Process) Config() Config { return p.cfg }

// RV returns the current redundancy version.
func (p *Process) RV() int { return p.cfg.RV }

// Segmentation returns the code block segmentation of the transport block in flight.
func (p *Process) Segmentation() fec.Segmentation { return p.seg }

// InitialResources returns M_sc and N_symb of the initial transmission.
func (p *Process) InitialResources() (subcarriers, symbols int) {
	return p.initialSubcarriers, p.initialSymbols
}

// NofRE is the number of PUSCH resource elements of the current allocation.
func (p *Process) NofRE() int {
	return p.cfg.Allocation.Subcarriers() * p.cell.CP.DataSymbols()
}

// NofBits is the PUSCH bit capacity of the current allocation and modulation.
func (p *Process) NofBits() int {
	return p.NofRE() * p.cfg.Modulation.BitsPerSymbol()
}

// Buffers returns copies of the circular buffers of the block in flight.
func (p *Process) Buffers() [][]uint8 {
	if !p.filled {
		return nil
	}
	out := make([][]uint8, p.seg.C)
	for r := range out {
		out[r] = append([]uint8(nil), p.buffers[r][:p.lens[r]]...)
	}
	return out
}
