package harq

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/observe-l/ulsch/fec"
	"github.com/observe-l/ulsch/lte"
)

var testCell = lte.Cell{ID: 1, NofPRB: 6, CP: lte.NormalCP, Ports: 1}

func testBits(n int, seed uint32) []uint8 {
	out := make([]uint8, n)
	x := seed | 1
	for i := range out {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		out[i] = uint8(x & 1)
	}
	return out
}

func setupInitial(t *testing.T, p *Process, tbs, nprb int) *fec.CodedTransportBlock {
	t.Helper()
	require.NoError(t, p.Setup(Config{
		Modulation: lte.QPSK,
		TBS:        tbs,
		Allocation: lte.ContiguousAllocation(0, nprb),
	}))
	coded, err := fec.EncodeTransportBlock(testBits(tbs, 7), tbs)
	require.NoError(t, err)
	return coded
}

func TestNewProcessValidatesCell(t *testing.T) {
	_, err := NewProcess(lte.Cell{NofPRB: 3, Ports: 1}, 0)
	require.ErrorIs(t, err, lte.ErrInvalidConfiguration)
	_, err = NewProcess(lte.Cell{NofPRB: 6, Ports: 2}, 0)
	require.ErrorIs(t, err, lte.ErrInvalidConfiguration)
}

func TestSetupValidation(t *testing.T) {
	p, err := NewProcess(testCell, 4096)
	require.NoError(t, err)

	base := Config{Modulation: lte.QPSK, TBS: 256, Allocation: lte.ContiguousAllocation(0, 6)}

	cfg := base
	cfg.RV = 4
	require.ErrorIs(t, p.Setup(cfg), lte.ErrInvalidConfiguration)

	cfg = base
	cfg.TBS = 5000
	require.ErrorIs(t, p.Setup(cfg), lte.ErrInvalidConfiguration)

	cfg = base
	cfg.Subframe = 10
	require.ErrorIs(t, p.Setup(cfg), lte.ErrInvalidConfiguration)

	cfg = base
	cfg.Allocation = lte.ContiguousAllocation(2, 6)
	require.ErrorIs(t, p.Setup(cfg), lte.ErrAllocationMismatch)

	cfg = base
	cfg.Allocation = lte.ContiguousAllocation(0, 7)
	require.ErrorIs(t, p.Setup(cfg), lte.ErrAllocationMismatch)

	cfg = base
	cfg.RV = 2
	require.ErrorIs(t, p.Setup(cfg), lte.ErrProcessNotInitialized)

	require.NoError(t, p.Setup(base))
	require.True(t, p.Configured())
	require.False(t, p.Filled())
	require.Equal(t, 864, p.NofRE())
	require.Equal(t, 1728, p.NofBits())
}

func TestRetransmissionKeepsAllocationWidth(t *testing.T) {
	p, err := NewProcess(testCell, 0)
	require.NoError(t, err)
	coded := setupInitial(t, p, 256, 5)
	_, err = RateMatch(p, coded, p.NofBits())
	require.NoError(t, err)

	err = p.Setup(Config{Modulation: lte.QPSK, TBS: 256, RV: 1, Allocation: lte.ContiguousAllocation(0, 6)})
	require.ErrorIs(t, err, lte.ErrAllocationMismatch)
	err = p.Setup(Config{Modulation: lte.QPSK, TBS: 264, RV: 1, Allocation: lte.ContiguousAllocation(0, 5)})
	require.ErrorIs(t, err, lte.ErrInvalidConfiguration)
	// hopping to another position keeps the width
	require.NoError(t, p.Setup(Config{Modulation: lte.QPSK, TBS: 256, RV: 1, Allocation: lte.ContiguousAllocation(1, 5)}))
}

func TestRateMatchRequiresSetup(t *testing.T) {
	p, err := NewProcess(testCell, 0)
	require.NoError(t, err)
	_, err = RateMatch(p, nil, 1728)
	require.ErrorIs(t, err, lte.ErrProcessNotInitialized)
}

func TestRateMatchRedundancyVersions(t *testing.T) {
	p, err := NewProcess(testCell, 0)
	require.NoError(t, err)
	coded := setupInitial(t, p, 256, 6)
	G := p.NofBits()

	first, err := RateMatch(p, coded, G)
	require.NoError(t, err)
	require.Len(t, first, G)
	snapshot := p.Buffers()
	require.Len(t, snapshot, 1)

	seen := [][]uint8{first}
	for rv := 1; rv <= MaxRV; rv++ {
		cfg := p.Config()
		cfg.RV = rv
		require.NoError(t, p.Setup(cfg))
		out, err := RateMatch(p, nil, G)
		require.NoError(t, err)
		require.Len(t, out, G)
		for _, prev := range seen {
			require.NotEqual(t, prev, out, "rv %d repeats an earlier version", rv)
		}
		seen = append(seen, out)
		require.Equal(t, snapshot, p.Buffers(), "rv %d modified the soft buffer", rv)
	}

	// back to rv 0 of the same block reads the same bits
	cfg := p.Config()
	cfg.RV = 0
	require.NoError(t, p.Setup(cfg))
	again, err := RateMatch(p, coded, G)
	require.NoError(t, err)
	require.Equal(t, first, again)
}

func TestRateMatchAllocationTooSmall(t *testing.T) {
	p, err := NewProcess(testCell, 0)
	require.NoError(t, err)
	coded := setupInitial(t, p, 2000, 1)
	_, err = RateMatch(p, coded, p.NofBits())
	require.ErrorIs(t, err, lte.ErrAllocationTooSmall)
}

func TestRateMatchFailureKeepsBufferEmpty(t *testing.T) {
	p, err := NewProcess(testCell, 0)
	require.NoError(t, err)
	coded := setupInitial(t, p, 1000, 6)
	_, err = RateMatch(p, coded, 800)
	require.ErrorIs(t, err, lte.ErrAllocationTooSmall)
	require.False(t, p.Filled())
	require.Nil(t, p.Buffers())

	err = p.Setup(Config{Modulation: lte.QPSK, TBS: 1000, RV: 1, Allocation: lte.ContiguousAllocation(0, 6)})
	require.ErrorIs(t, err, lte.ErrProcessNotInitialized)
	_, err = RateMatch(p, nil, p.NofBits())
	require.ErrorIs(t, err, lte.ErrInvalidConfiguration)
}

func TestPrepareLeavesProcessUntouched(t *testing.T) {
	p, err := NewProcess(testCell, 0)
	require.NoError(t, err)
	coded := setupInitial(t, p, 256, 6)
	first, err := RateMatch(p, coded, p.NofBits())
	require.NoError(t, err)
	snapshot := p.Buffers()
	before := p.Config()

	// a new block that is rate matched but never committed
	next, err := fec.EncodeTransportBlock(testBits(1000, 9), 1000)
	require.NoError(t, err)
	tx, err := p.Prepare(Config{Modulation: lte.QPSK, TBS: 1000, Subframe: 3, Allocation: lte.ContiguousAllocation(0, 6)})
	require.NoError(t, err)
	_, err = tx.RateMatch(next, tx.NofBits())
	require.NoError(t, err)
	require.Equal(t, before, p.Config())
	require.Equal(t, snapshot, p.Buffers())

	// the old block can still be retransmitted
	retx := before
	retx.RV = 2
	tx, err = p.Prepare(retx)
	require.NoError(t, err)
	out, err := tx.RateMatch(nil, tx.NofBits())
	require.NoError(t, err)
	require.NotEqual(t, first, out)
	tx.Commit()
	require.Equal(t, 2, p.RV())
	require.Equal(t, snapshot, p.Buffers())
}

func TestRateMatchBadLength(t *testing.T) {
	p, err := NewProcess(testCell, 0)
	require.NoError(t, err)
	coded := setupInitial(t, p, 256, 6)
	_, err = RateMatch(p, coded, 1727)
	require.ErrorIs(t, err, lte.ErrInvalidBitLength)
	_, err = RateMatch(p, coded, 0)
	require.ErrorIs(t, err, lte.ErrInvalidBitLength)
}

func TestRateMatchMultipleCodeBlocks(t *testing.T) {
	cell := lte.Cell{ID: 7, NofPRB: 50, CP: lte.NormalCP, Ports: 1}
	p, err := NewProcess(cell, 0)
	require.NoError(t, err)
	require.NoError(t, p.Setup(Config{Modulation: lte.QAM16, TBS: 9000, Allocation: lte.ContiguousAllocation(0, 50)}))
	coded, err := fec.EncodeTransportBlock(testBits(9000, 3), 9000)
	require.NoError(t, err)
	require.Equal(t, 2, coded.Segmentation.C)

	out, err := RateMatch(p, coded, p.NofBits())
	require.NoError(t, err)
	require.Len(t, out, p.NofBits())
	require.Len(t, p.Buffers(), 2)
}

func TestBlockOutputLenSumsToG(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		qm := []int{2, 4, 6}[rapid.IntRange(0, 2).Draw(t, "qm")]
		C := rapid.IntRange(1, 13).Draw(t, "C")
		G := qm * rapid.IntRange(1, 20000).Draw(t, "symbols")
		sum := 0
		for r := 0; r < C; r++ {
			e := BlockOutputLen(G, qm, C, r)
			if e%qm != 0 {
				t.Fatalf("E_%d=%d not a multiple of %d", r, e, qm)
			}
			sum += e
		}
		if sum != G {
			t.Fatalf("sum E=%d, G=%d", sum, G)
		}
	})
}

func TestStartOffset(t *testing.T) {
	// K=280: D=284, R=9, Kw=864
	require.Equal(t, 18, StartOffset(864, 0))
	require.Equal(t, 234, StartOffset(864, 1))
	require.Equal(t, 450, StartOffset(864, 2))
	require.Equal(t, 666, StartOffset(864, 3))
	require.Equal(t, 100, StartOffset(192, 2))
}
