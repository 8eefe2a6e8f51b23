package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/observe-l/ulsch/lte"
)

var sixPRB = lte.Cell{ID: 1, NofPRB: 6, CP: lte.NormalCP, Ports: 1}

func ramp(n int) []complex64 {
	s := make([]complex64, n)
	for i := range s {
		s[i] = complex(float32(i+1), -float32(i%13))
	}
	return s
}

func TestNewSize(t *testing.T) {
	g, err := New(sixPRB)
	require.NoError(t, err)
	require.Equal(t, 6*12*7*2, g.NofRE())
	require.Len(t, g.Symbol(13), 72)

	ext := lte.Cell{NofPRB: 15, CP: lte.ExtendedCP, Ports: 1}
	g, err = New(ext)
	require.NoError(t, err)
	require.Equal(t, 15*12*6*2, g.NofRE())

	_, err = Wrap(sixPRB, make([]complex64, 1000))
	require.ErrorIs(t, err, lte.ErrInvalidConfiguration)
	_, err = New(lte.Cell{NofPRB: 3, Ports: 1})
	require.ErrorIs(t, err, lte.ErrInvalidConfiguration)
}

func TestMapSkipsReferenceSymbols(t *testing.T) {
	for _, cp := range []lte.CyclicPrefix{lte.NormalCP, lte.ExtendedCP} {
		cell := sixPRB
		cell.CP = cp
		g, err := New(cell)
		require.NoError(t, err)
		a := lte.ContiguousAllocation(0, 6)
		sym := ramp(a.Subcarriers() * cp.DataSymbols())
		require.NoError(t, Map(g, sym, a, 4))

		n := cp.SymbolsPerSlot()
		for _, l := range []int{cp.ReferenceSymbol(), n + cp.ReferenceSymbol()} {
			for _, v := range g.Symbol(l) {
				require.Zero(t, v, "%v symbol %d", cp, l)
			}
		}
		require.Equal(t, sym[0], g.Symbol(0)[0])
		// first data symbol after the slot-0 reference symbol
		require.Equal(t, sym[cp.ReferenceSymbol()*72], g.Symbol(cp.ReferenceSymbol() + 1)[0])

		back, err := Extract(g, a, 4)
		require.NoError(t, err)
		require.Equal(t, sym, back)
	}
}

func TestMapPerSlotStart(t *testing.T) {
	g, err := New(sixPRB)
	require.NoError(t, err)
	a := lte.Allocation{NofPRB: 2, FirstPRB: [2]int{1, 4}}
	sym := ramp(24 * 12)
	require.NoError(t, Map(g, sym, a, 0))

	require.Zero(t, g.Symbol(0)[11])
	require.Equal(t, sym[0], g.Symbol(0)[12])
	require.Zero(t, g.Symbol(0)[36])
	// slot 1, first symbol: seventh data symbol
	require.Equal(t, sym[6*24], g.Symbol(7)[48])
	require.Zero(t, g.Symbol(7)[12])

	back, err := Extract(g, a, 0)
	require.NoError(t, err)
	require.Equal(t, sym, back)
}

func TestMapErrors(t *testing.T) {
	g, err := New(sixPRB)
	require.NoError(t, err)
	a := lte.ContiguousAllocation(0, 6)
	require.ErrorIs(t, Map(g, make([]complex64, 10), a, 0), lte.ErrAllocationMismatch)
	require.ErrorIs(t, Map(g, make([]complex64, 7*12*12), lte.ContiguousAllocation(0, 7), 0), lte.ErrAllocationMismatch)
	require.ErrorIs(t, Map(g, make([]complex64, 72*12), a, 10), lte.ErrInvalidConfiguration)
	_, err = Extract(g, lte.ContiguousAllocation(5, 2), 0)
	require.ErrorIs(t, err, lte.ErrAllocationMismatch)
}

func TestTransformPrecodeImpulse(t *testing.T) {
	const msc = 36
	in := make([]complex64, 2*msc)
	for i := 0; i < msc; i++ {
		in[i] = 1
	}
	out, err := TransformPrecode(in, msc)
	require.NoError(t, err)
	require.InDelta(t, math.Sqrt(msc), float64(real(out[0])), 1e-4)
	for i := 1; i < 2*msc; i++ {
		require.InDelta(t, 0, math.Hypot(float64(real(out[i])), float64(imag(out[i]))), 1e-4)
	}
}

func TestTransformPrecodeErrors(t *testing.T) {
	_, err := TransformPrecode(make([]complex64, 84), 84)
	require.ErrorIs(t, err, lte.ErrInvalidConfiguration)
	_, err = TransformPrecode(make([]complex64, 13), 12)
	require.ErrorIs(t, err, lte.ErrInvalidBitLength)
	_, err = InverseTransformPrecode(nil, 0)
	require.ErrorIs(t, err, lte.ErrInvalidConfiguration)
}

func TestTransformPrecodeUnitary(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msc := 12 * rapid.SampledFrom([]int{1, 2, 3, 4, 5, 6, 8, 9, 10, 12, 15, 16, 25}).Draw(t, "prb")
		nsym := rapid.IntRange(1, 3).Draw(t, "nsym")
		in := make([]complex64, msc*nsym)
		for i := range in {
			in[i] = complex(
				float32(rapid.Float64Range(-1, 1).Draw(t, "re")),
				float32(rapid.Float64Range(-1, 1).Draw(t, "im")))
		}
		out, err := TransformPrecode(in, msc)
		if err != nil {
			t.Fatal(err)
		}
		if e1, e2 := energy(in), energy(out); math.Abs(e1-e2) > 1e-3*(1+e1) {
			t.Fatalf("energy %v -> %v", e1, e2)
		}
		back, err := InverseTransformPrecode(out, msc)
		if err != nil {
			t.Fatal(err)
		}
		for i := range in {
			if d := in[i] - back[i]; math.Hypot(float64(real(d)), float64(imag(d))) > 1e-4 {
				t.Fatalf("element %d: %v != %v", i, back[i], in[i])
			}
		}
	})
}

func energy(x []complex64) float64 {
	var e float64
	for _, v := range x {
		e += float64(real(v)*real(v) + imag(v)*imag(v))
	}
	return e
}
