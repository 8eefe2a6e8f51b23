package pusch

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/observe-l/ulsch/grid"
	"github.com/observe-l/ulsch/harq"
	"github.com/observe-l/ulsch/internal/config"
	"github.com/observe-l/ulsch/internal/dump"
	"github.com/observe-l/ulsch/lte"
	"github.com/observe-l/ulsch/modulation"
	"github.com/observe-l/ulsch/mux"
	"github.com/observe-l/ulsch/pusch"
	"github.com/observe-l/ulsch/rf"
	"github.com/observe-l/ulsch/scramble"
	"github.com/observe-l/ulsch/uci"
)

const rnti = 0x3d

type scenario struct {
	cell     lte.Cell
	mod      lte.Modulation
	alloc    lte.Allocation
	tbs      int
	subframe int
	cqi, ri  int
	ack      int
}

var scenarios = []scenario{
	{
		cell:     lte.Cell{ID: 1, NofPRB: 6, CP: lte.NormalCP, Ports: 1},
		mod:      lte.QPSK,
		alloc:    lte.ContiguousAllocation(0, 6),
		tbs:      256,
		subframe: 4,
		ack:      1,
	},
	{
		cell:     lte.Cell{ID: 77, NofPRB: 25, CP: lte.ExtendedCP, Ports: 1},
		mod:      lte.QAM16,
		alloc:    lte.Allocation{NofPRB: 10, FirstPRB: [2]int{3, 12}},
		tbs:      1544,
		subframe: 7,
		cqi:      11, ri: 1, ack: 2,
	},
	{
		cell:     lte.Cell{ID: 402, NofPRB: 50, CP: lte.NormalCP, Ports: 1},
		mod:      lte.QAM64,
		alloc:    lte.ContiguousAllocation(0, 50),
		tbs:      20000,
		subframe: 9,
		cqi:      30, ri: 2, ack: 2,
	},
}

func (s scenario) String() string {
	return fmt.Sprintf("%dprb_%s_%s", s.cell.NofPRB, s.cell.CP, s.mod)
}

func randomBits(rng *rand.Rand, n int) []uint8 {
	b := make([]uint8, n)
	for i := range b {
		b[i] = uint8(rng.IntN(2))
	}
	return b
}

func (s scenario) request(rng *rand.Rand) pusch.Request {
	req := pusch.Request{
		Config: harq.Config{
			Modulation: s.mod,
			TBS:        s.tbs,
			Subframe:   s.subframe,
			Allocation: s.alloc,
		},
		TransportBlock: randomBits(rng, s.tbs),
	}
	if s.cqi > 0 {
		req.UCI.CQI = uci.NewField(randomBits(rng, s.cqi))
	}
	if s.ri > 0 {
		req.UCI.RI = uci.NewField(randomBits(rng, s.ri))
	}
	if s.ack > 0 {
		req.UCI.ACK = uci.NewField(randomBits(rng, s.ack))
	}
	return req
}

// Every stage output is reproduced by running the inverse of the next stage on it.
func TestChainInverts(t *testing.T) {
	for i, s := range scenarios {
		t.Run(s.String(), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(uint64(i), 7))
			enc, err := pusch.New(s.cell)
			require.NoError(t, err)
			require.NoError(t, enc.SetRNTI(rnti))
			p, err := enc.NewProcess(0)
			require.NoError(t, err)
			res, err := enc.Encode(p, s.request(rng))
			require.NoError(t, err)
			require.Len(t, res.Waveform, lte.SubframeLen(s.cell.NofPRB, s.cell.CP))

			layout := mux.Layout{Modulation: s.mod, Subcarriers: s.alloc.Subcarriers(), CP: s.cell.CP}
			bits, err := mux.Multiplex(res.MatchedBits, res.Control, layout)
			require.NoError(t, err)
			require.Equal(t, res.Bits, bits)

			// ACK vectors sit at the positions the interleaver reports.
			qm := s.mod.BitsPerSymbol()
			_, ackPos := mux.ControlPositions(res.Control, layout)
			require.Len(t, ackPos, res.Control.ACK.NofRE)
			for k, pos := range ackPos {
				require.Equal(t, res.Control.ACK.Bits[k*qm:(k+1)*qm], res.Bits[pos:pos+qm], "ack %d", k)
			}

			sym, err := grid.Extract(res.Grid, s.alloc, s.subframe)
			require.NoError(t, err)
			sym, err = grid.InverseTransformPrecode(sym, s.alloc.Subcarriers())
			require.NoError(t, err)
			rx, err := modulation.Demodulate(sym, s.mod)
			require.NoError(t, err)
			require.Equal(t, res.Scrambled, rx)

			plain, err := scramble.Apply(rx, scramble.CInit(rnti, s.subframe, s.cell.ID))
			require.NoError(t, err)
			for j, b := range res.Bits {
				if b <= 1 {
					require.Equal(t, b, plain[j], "bit %d", j)
				}
			}
		})
	}
}

// Concurrent encodes on separate processes give the same subframes as serial ones.
func TestBatchAcrossScenarios(t *testing.T) {
	s := scenarios[1]
	rng := rand.New(rand.NewPCG(3, 3))
	enc, err := pusch.New(s.cell)
	require.NoError(t, err)
	require.NoError(t, enc.SetRNTI(rnti))

	jobs := make([]pusch.Job, 8)
	for i := range jobs {
		p, err := enc.NewProcess(s.tbs)
		require.NoError(t, err)
		req := s.request(rng)
		req.Config.Subframe = i
		jobs[i] = pusch.Job{Process: p, Request: req}
	}
	got, err := enc.EncodeBatch(context.Background(), jobs, 3)
	require.NoError(t, err)

	for i, j := range jobs {
		p, err := enc.NewProcess(s.tbs)
		require.NoError(t, err)
		want, err := enc.Encode(p, j.Request)
		require.NoError(t, err)
		require.Equal(t, want.Waveform, got[i].Waveform, "job %d", i)
	}
}

// A YAML scenario runs through the initial transmission and a retransmission, and
// both land in the dump and the capture file.
func TestScenarioToFiles(t *testing.T) {
	cfg, err := config.Load("../../internal/config/testdata/sixprb.yaml")
	require.NoError(t, err)
	cell, err := cfg.Cell()
	require.NoError(t, err)
	enc, err := pusch.New(cell)
	require.NoError(t, err)
	require.NoError(t, enc.SetRNTI(cfg.UE.RNTI))
	p, err := enc.NewProcess(cfg.PUSCH.MaxTBS)
	require.NoError(t, err)

	d := dump.New(cell, cfg.UE.RNTI)
	var waves [][]complex64
	for _, rv := range []int{0, cfg.PUSCH.RV} {
		req, err := cfg.Request(rv)
		require.NoError(t, err)
		res, err := enc.Encode(p, req)
		require.NoError(t, err)
		d.Add(res, p.Buffers())
		waves = append(waves, res.Waveform)
	}

	dir := t.TempDir()
	dumpPath := filepath.Join(dir, "out", "sixprb.json.zst")
	require.NoError(t, d.WriteFile(dumpPath))
	back, err := dump.ReadFile(dumpPath)
	require.NoError(t, err)
	require.Equal(t, d.RunID, back.RunID)
	require.Len(t, back.Transmissions, 2)
	for i, tx := range back.Transmissions {
		require.Equal(t, d.Transmissions[i].RV, tx.RV)
		require.Equal(t, d.Transmissions[i].MatchedBits, tx.MatchedBits)
		require.Equal(t, d.Transmissions[i].Scrambled, tx.Scrambled)
		require.Len(t, tx.Waveform, 1920)
	}
	require.NotEqual(t, back.Transmissions[0].MatchedBits, back.Transmissions[1].MatchedBits)

	wavePath := filepath.Join(dir, "sixprb.cf32")
	sink, err := rf.CreateFileSink(wavePath)
	require.NoError(t, err)
	require.NoError(t, rf.Transmit(context.Background(), sink, time.Time{}, waves...))
	require.NoError(t, sink.Close())
	samples, err := rf.ReadFile(wavePath)
	require.NoError(t, err)
	require.Equal(t, append(append([]complex64{}, waves[0]...), waves[1]...), samples)
}
