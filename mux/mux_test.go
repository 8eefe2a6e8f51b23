package mux

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/observe-l/ulsch/lte"
	"github.com/observe-l/ulsch/uci"
)

var onePRB = Layout{Modulation: lte.QPSK, Subcarriers: 12, CP: lte.NormalCP}

func field(nofRE, qm int, v uint8) uci.Encoded {
	return uci.Encoded{Bits: bytes.Repeat([]uint8{v}, nofRE*qm), NofRE: nofRE}
}

// offset of matrix cell (r, c) in the column-wise output.
func offset(l Layout, r, c int) int {
	return (c*l.Rows() + r) * l.Modulation.BitsPerSymbol()
}

func ones(bits []uint8) (pos []int) {
	for i, b := range bits {
		if b == 1 {
			pos = append(pos, i)
		}
	}
	return pos
}

func TestLayout(t *testing.T) {
	require.Equal(t, 12, onePRB.Columns())
	require.Equal(t, 144, onePRB.NofRE())
	require.Equal(t, 288, onePRB.NofBits())
	ext := Layout{Modulation: lte.QAM64, Subcarriers: 72, CP: lte.ExtendedCP}
	require.Equal(t, 10, ext.Columns())
	require.Equal(t, 72*10*6, ext.NofBits())
}

func TestMultiplexDataOnlyIsTransposed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := Layout{
			Modulation:  rapid.SampledFrom([]lte.Modulation{lte.QPSK, lte.QAM16, lte.QAM64}).Draw(t, "mod"),
			Subcarriers: 12 * rapid.IntRange(1, 4).Draw(t, "prb"),
			CP:          rapid.SampledFrom([]lte.CyclicPrefix{lte.NormalCP, lte.ExtendedCP}).Draw(t, "cp"),
		}
		data := rapid.SliceOfN(rapid.Uint8Range(0, 1), l.NofBits(), l.NofBits()).Draw(t, "data")
		out, err := Multiplex(data, nil, l)
		if err != nil {
			t.Fatal(err)
		}
		qm := l.Modulation.BitsPerSymbol()
		for r := 0; r < l.Rows(); r++ {
			for c := 0; c < l.Columns(); c++ {
				in := (r*l.Columns() + c) * qm
				if !bytes.Equal(out[offset(l, r, c):offset(l, r, c)+qm], data[in:in+qm]) {
					t.Fatalf("cell (%d,%d) moved", r, c)
				}
			}
		}
	})
}

func TestRIFillsFromBottomRow(t *testing.T) {
	ctrl := &uci.Result{RI: field(5, 2, 1)}
	g, err := DataBits(onePRB, ctrl)
	require.NoError(t, err)
	require.Equal(t, (144-5)*2, g)

	out, err := Multiplex(make([]uint8, g), ctrl, onePRB)
	require.NoError(t, err)
	require.Len(t, out, 288)

	var want []int
	for _, rc := range [][2]int{{11, 1}, {11, 10}, {11, 7}, {11, 4}, {10, 1}} {
		o := offset(onePRB, rc[0], rc[1])
		want = append(want, o, o+1)
	}
	require.ElementsMatch(t, want, ones(out))

	ri, ack := ControlPositions(ctrl, onePRB)
	require.Len(t, ri, 5)
	require.Empty(t, ack)
	for _, p := range ri {
		require.Equal(t, uint8(1), out[p])
	}
}

func TestACKPuncturesData(t *testing.T) {
	ctrl := &uci.Result{ACK: field(3, 2, 1)}
	g, err := DataBits(onePRB, ctrl)
	require.NoError(t, err)
	require.Equal(t, 288, g)

	out, err := Multiplex(make([]uint8, g), ctrl, onePRB)
	require.NoError(t, err)
	var want []int
	for _, rc := range [][2]int{{11, 2}, {11, 9}, {11, 8}} {
		o := offset(onePRB, rc[0], rc[1])
		want = append(want, o, o+1)
	}
	require.ElementsMatch(t, want, ones(out))
}

func TestACKOverwritesRIFreeCellsOnly(t *testing.T) {
	// RI and ACK column sets are disjoint, so both survive.
	ctrl := &uci.Result{RI: field(8, 2, 1), ACK: field(8, 2, 1)}
	g, err := DataBits(onePRB, ctrl)
	require.NoError(t, err)
	out, err := Multiplex(make([]uint8, g), ctrl, onePRB)
	require.NoError(t, err)
	require.Len(t, ones(out), 32)
}

func TestCQIPrecedesData(t *testing.T) {
	ctrl := &uci.Result{CQI: field(2, 2, 1)}
	g, err := DataBits(onePRB, ctrl)
	require.NoError(t, err)
	require.Equal(t, 284, g)
	out, err := Multiplex(make([]uint8, g), ctrl, onePRB)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 24, 25}, ones(out))
}

func TestMultiplexErrors(t *testing.T) {
	_, err := DataBits(onePRB, &uci.Result{RI: field(49, 2, 0)})
	require.ErrorIs(t, err, lte.ErrControlOverflow)
	_, err = DataBits(onePRB, &uci.Result{ACK: field(49, 2, 0)})
	require.ErrorIs(t, err, lte.ErrControlOverflow)
	_, err = DataBits(onePRB, &uci.Result{CQI: field(140, 2, 0), RI: field(10, 2, 0)})
	require.ErrorIs(t, err, lte.ErrControlOverflow)

	_, err = Multiplex(make([]uint8, 10), nil, onePRB)
	require.ErrorIs(t, err, lte.ErrInvalidBitLength)
	bad := &uci.Result{ACK: uci.Encoded{Bits: []uint8{1}, NofRE: 1}}
	_, err = Multiplex(make([]uint8, 288), bad, onePRB)
	require.ErrorIs(t, err, lte.ErrInvalidBitLength)

	_, err = Multiplex(nil, nil, Layout{Modulation: lte.QPSK})
	require.ErrorIs(t, err, lte.ErrInvalidConfiguration)
}

func TestMultiplexConservesBitsWithoutACK(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		qm := onePRB.Modulation.BitsPerSymbol()
		nri := rapid.IntRange(0, 48).Draw(t, "ri")
		ncqi := rapid.IntRange(0, onePRB.NofRE()-nri).Draw(t, "cqi")
		ctrl := &uci.Result{
			RI:  uci.Encoded{Bits: rapid.SliceOfN(rapid.Uint8Range(0, 1), nri*qm, nri*qm).Draw(t, "ribits"), NofRE: nri},
			CQI: uci.Encoded{Bits: rapid.SliceOfN(rapid.Uint8Range(0, 1), ncqi*qm, ncqi*qm).Draw(t, "cqibits"), NofRE: ncqi},
		}
		g, err := DataBits(onePRB, ctrl)
		if err != nil {
			t.Fatal(err)
		}
		data := rapid.SliceOfN(rapid.Uint8Range(0, 1), g, g).Draw(t, "data")
		out, err := Multiplex(data, ctrl, onePRB)
		if err != nil {
			t.Fatal(err)
		}
		want := len(ones(data)) + len(ones(ctrl.RI.Bits)) + len(ones(ctrl.CQI.Bits))
		if got := len(ones(out)); got != want {
			t.Fatalf("ones: got %d want %d", got, want)
		}
	})
}
