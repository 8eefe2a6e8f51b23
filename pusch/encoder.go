// Package pusch chains the uplink shared channel stages into one encoder: transport
// block coding, HARQ rate matching, UCI coding, multiplexing, scrambling, modulation,
// transform precoding, resource mapping and SC-FDMA synthesis.
package pusch

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/observe-l/ulsch/fec"
	"github.com/observe-l/ulsch/grid"
	"github.com/observe-l/ulsch/harq"
	"github.com/observe-l/ulsch/lte"
	"github.com/observe-l/ulsch/modulation"
	"github.com/observe-l/ulsch/mux"
	"github.com/observe-l/ulsch/scfdma"
	"github.com/observe-l/ulsch/scramble"
	"github.com/observe-l/ulsch/uci"
)

// ErrRNTINotSet is returned by Encode before the first SetRNTI.
var ErrRNTINotSet = fmt.Errorf("%w: rnti not set", lte.ErrInvalidConfiguration)

// Request is one transmission on one HARQ process.
type Request struct {
	Config harq.Config
	// TransportBlock holds Config.TBS bits. It is ignored on retransmissions.
	TransportBlock []uint8
	UCI            uci.Payload
}

// Result carries the waveform and the intermediate products of one Encode call.
type Result struct {
	RV      int
	G       int // rate-matched data bits
	NofRE   int // PUSCH resource elements
	NofBits int // PUSCH bit capacity

	Segmentation fec.Segmentation
	Control      *uci.Result
	MatchedBits  []uint8 // rate matcher output, G bits
	Bits         []uint8 // interleaver output, placeholders still present
	Scrambled    []uint8
	Symbols      []complex64 // modulated, before transform precoding
	Precoded     []complex64
	Grid         *grid.Grid
	Waveform     []complex64
}

// Encoder encodes PUSCH subframes of one cell. It is safe for concurrent use as long as
// concurrent calls use different processes.
type Encoder struct {
	cell      lte.Cell
	synth     *scfdma.Synthesizer
	scrambler atomic.Pointer[scramble.Scrambler]
	logger    *log.Logger
	metrics   *Metrics

	synthOpts []scfdma.Option
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithLogger sets the logger used for per-subframe diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(e *Encoder) { e.logger = l }
}

// WithMetrics records every Encode call in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Encoder) { e.metrics = m }
}

// WithSynthesizer passes options to the SC-FDMA synthesizer.
func WithSynthesizer(opts ...scfdma.Option) Option {
	return func(e *Encoder) { e.synthOpts = append(e.synthOpts, opts...) }
}

// New creates an encoder for cell c.
func New(c lte.Cell, opts ...Option) (*Encoder, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	e := &Encoder{cell: c, logger: log.New(io.Discard)}
	for _, o := range opts {
		o(e)
	}
	s, err := scfdma.New(c, e.synthOpts...)
	if err != nil {
		return nil, err
	}
	e.synth = s
	return e, nil
}

func (e *Encoder) Cell() lte.Cell { return e.cell }

// SubframeLen is the waveform length of every Result.
func (e *Encoder) SubframeLen() int { return e.synth.Len() }

// SetRNTI precomputes the scrambling sequences of rnti. Calls in flight keep the
// sequences they started with.
func (e *Encoder) SetRNTI(rnti uint16) error {
	s, err := scramble.New(e.cell, rnti)
	if err != nil {
		return err
	}
	e.scrambler.Store(s)
	e.logger.Debug("rnti set", "rnti", rnti, "seq_bits", scramble.MaxBits(e.cell))
	return nil
}

// NewProcess creates a HARQ process for this encoder's cell.
func (e *Encoder) NewProcess(maxTBS int) (*harq.Process, error) {
	return harq.NewProcess(e.cell, maxTBS)
}

// Encode runs one transmission of p. The process is updated only when every stage
// succeeded; on error nothing is produced and p is left as it was.
func (e *Encoder) Encode(p *harq.Process, req Request) (*Result, error) {
	start := time.Now()
	res, err := e.encode(p, req)
	e.metrics.observe(res, err, time.Since(start))
	if err != nil {
		e.logger.Debug("encode failed", "rv", req.Config.RV, "tbs", req.Config.TBS, "err", err)
		return nil, err
	}
	return res, nil
}

func (e *Encoder) encode(p *harq.Process, req Request) (*Result, error) {
	scr := e.scrambler.Load()
	if scr == nil {
		return nil, ErrRNTINotSet
	}
	if p == nil {
		return nil, fmt.Errorf("%w: nil process", lte.ErrInvalidConfiguration)
	}
	if p.Cell() != e.cell {
		return nil, fmt.Errorf("%w: process belongs to another cell", lte.ErrInvalidConfiguration)
	}
	tx, err := p.Prepare(req.Config)
	if err != nil {
		return nil, err
	}
	cfg := tx.Config()
	msc := cfg.Allocation.Subcarriers()
	res := &Result{
		RV:           cfg.RV,
		NofRE:        tx.NofRE(),
		NofBits:      tx.NofBits(),
		Segmentation: tx.Segmentation(),
	}

	var coded *fec.CodedTransportBlock
	if cfg.RV == 0 {
		if coded, err = fec.EncodeTransportBlock(req.TransportBlock, cfg.TBS); err != nil {
			return nil, err
		}
	}

	isc, isym := tx.InitialResources()
	ctrl, err := uci.Encode(req.UCI, uci.Params{
		Modulation:         cfg.Modulation,
		Subcarriers:        msc,
		Symbols:            e.cell.CP.DataSymbols(),
		InitialSubcarriers: isc,
		InitialSymbols:     isym,
		SumK:               res.Segmentation.SumK(),
	})
	if err != nil {
		return nil, err
	}
	res.Control = ctrl

	layout := mux.Layout{Modulation: cfg.Modulation, Subcarriers: msc, CP: e.cell.CP}
	if res.G, err = mux.DataBits(layout, ctrl); err != nil {
		return nil, err
	}
	if res.G == 0 {
		return nil, fmt.Errorf("%w: control information leaves no data resource elements", lte.ErrAllocationTooSmall)
	}
	e.logger.Debug("pusch",
		"rv", cfg.RV, "tbs", cfg.TBS, "mod", cfg.Modulation, "nof_re", res.NofRE,
		"nof_bits", res.NofBits, "G", res.G, "C", res.Segmentation.C,
		"ack_re", ctrl.ACK.NofRE, "ri_re", ctrl.RI.NofRE, "cqi_re", ctrl.CQI.NofRE)

	if res.MatchedBits, err = tx.RateMatch(coded, res.G); err != nil {
		return nil, err
	}
	if res.Bits, err = mux.Multiplex(res.MatchedBits, ctrl, layout); err != nil {
		return nil, err
	}
	if res.Scrambled, err = scr.Scramble(res.Bits, cfg.Subframe); err != nil {
		return nil, err
	}
	if res.Symbols, err = modulation.Modulate(res.Scrambled, cfg.Modulation); err != nil {
		return nil, err
	}
	if res.Precoded, err = grid.TransformPrecode(res.Symbols, msc); err != nil {
		return nil, err
	}
	if res.Grid, err = grid.New(e.cell); err != nil {
		return nil, err
	}
	if err = grid.Map(res.Grid, res.Precoded, cfg.Allocation, cfg.Subframe); err != nil {
		return nil, err
	}
	if res.Waveform, err = e.synth.Synthesize(res.Grid); err != nil {
		return nil, err
	}
	tx.Commit()
	return res, nil
}
