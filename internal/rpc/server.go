// Package rpc serves the encoder over gRPC. The server keeps a table of HARQ processes
// keyed by the client-chosen process id, so retransmissions can be requested across
// calls.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru"

	"github.com/observe-l/ulsch/harq"
	"github.com/observe-l/ulsch/internal/vecwire"
	"github.com/observe-l/ulsch/lte"
	"github.com/observe-l/ulsch/pusch"
)

type encoderKey struct {
	cell lte.Cell
	rnti uint16
}

// process serialises calls on one HARQ process.
type process struct {
	mu   sync.Mutex
	cell lte.Cell
	proc *harq.Process
}

const (
	DefaultMaxProcesses = 1024
	DefaultMaxEncoders  = 64
)

// ErrTooManyProcesses is returned when a new process id would exceed the table limit.
var ErrTooManyProcesses = errors.New("too many HARQ processes")

// Server implements Service.
type Server struct {
	logger   *log.Logger
	metrics  *pusch.Metrics
	maxTBS   int
	maxProcs int

	mu       sync.Mutex
	encoders *lru.Cache
	procs    map[uint32]*process
}

// ServerOption adjusts the table limits of NewServer.
type ServerOption func(*serverOptions)

type serverOptions struct {
	maxProcs    int
	maxEncoders int
}

// WithMaxProcesses bounds the number of live process ids. Requests for a new id
// beyond it fail with ErrTooManyProcesses until one is reset.
func WithMaxProcesses(n int) ServerOption {
	return func(o *serverOptions) { o.maxProcs = n }
}

// WithMaxEncoders bounds the encoder cache; the least recently used (cell, RNTI)
// pair is dropped and rebuilt on demand.
func WithMaxEncoders(n int) ServerOption {
	return func(o *serverOptions) { o.maxEncoders = n }
}

// NewServer creates an empty server. metrics may be nil; logger nil discards.
func NewServer(logger *log.Logger, metrics *pusch.Metrics, maxTBS int, opts ...ServerOption) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	o := serverOptions{maxProcs: DefaultMaxProcesses, maxEncoders: DefaultMaxEncoders}
	for _, opt := range opts {
		opt(&o)
	}
	o.maxProcs = max(o.maxProcs, 1)
	// only fails for a non-positive size
	encoders, _ := lru.New(max(o.maxEncoders, 1))
	return &Server{
		logger:   logger,
		metrics:  metrics,
		maxTBS:   maxTBS,
		maxProcs: o.maxProcs,
		encoders: encoders,
		procs:    map[uint32]*process{},
	}
}

func (s *Server) encoder(c lte.Cell, rnti uint16) (*pusch.Encoder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := encoderKey{c, rnti}
	if e, ok := s.encoders.Get(k); ok {
		return e.(*pusch.Encoder), nil
	}
	e, err := pusch.New(c, pusch.WithLogger(s.logger), pusch.WithMetrics(s.metrics))
	if err != nil {
		return nil, err
	}
	if err := e.SetRNTI(rnti); err != nil {
		return nil, err
	}
	if s.encoders.Add(k, e) {
		s.logger.Debug("encoder evicted", "limit", s.encoders.Len())
	}
	s.logger.Info("encoder created", "cell", c.ID, "nof_prb", c.NofPRB, "cp", c.CP, "rnti", rnti)
	return e, nil
}

// process returns the entry for id, replacing it when the cell changed.
func (s *Server) process(id uint32, c lte.Cell) (*process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.procs[id]
	if ok && old.cell == c {
		return old, nil
	}
	if !ok && len(s.procs) >= s.maxProcs {
		return nil, fmt.Errorf("%w: limit %d reached, reset an id first", ErrTooManyProcesses, s.maxProcs)
	}
	hp, err := harq.NewProcess(c, s.maxTBS)
	if err != nil {
		return nil, err
	}
	p := &process{cell: c, proc: hp}
	s.procs[id] = p
	s.logger.Debug("process created", "id", id, "cell", c.ID)
	return p, nil
}

// EncoderCount is the number of cached encoders.
func (s *Server) EncoderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encoders.Len()
}

// ProcessCount is the number of live HARQ processes.
func (s *Server) ProcessCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

func (s *Server) Encode(ctx context.Context, in *vecwire.EncodeRequest) (*vecwire.EncodeResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cell, rnti, req, err := decodeRequest(in)
	if err != nil {
		return nil, ToStatus(err)
	}
	e, err := s.encoder(cell, rnti)
	if err != nil {
		return nil, ToStatus(err)
	}
	p, err := s.process(in.ProcessID, cell)
	if err != nil {
		return nil, ToStatus(err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	res, err := e.Encode(p.proc, req)
	if err != nil {
		s.logger.Warn("encode rejected", "process", in.ProcessID, "rv", in.RV, "err", err)
		return nil, ToStatus(err)
	}
	return encodeResponse(res, in.WantWaveform), nil
}

func (s *Server) Reset(ctx context.Context, in *vecwire.ResetRequest) (*vecwire.ResetResponse, error) {
	s.mu.Lock()
	p, ok := s.procs[in.ProcessID]
	delete(s.procs, in.ProcessID)
	s.mu.Unlock()
	if ok {
		p.mu.Lock()
		p.proc.Reset()
		p.mu.Unlock()
	}
	return &vecwire.ResetResponse{Existed: ok}, nil
}
