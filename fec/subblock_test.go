package fec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/observe-l/ulsch/lte"
)

func countBits(bits []uint8) (ones, nulls int) {
	for _, b := range bits {
		switch b {
		case 1:
			ones++
		case lte.BitNull:
			nulls++
		}
	}
	return ones, nulls
}

func TestTurboCircularBufferIsPermutation(t *testing.T) {
	c := make([]uint8, 104)
	for i := 0; i < 6; i++ {
		c[i] = lte.BitNull
	}
	for i := 6; i < len(c); i++ {
		c[i] = uint8(i % 3 % 2)
	}
	d, err := TurboEncode(c)
	require.NoError(t, err)

	D := len(d[0])
	w := TurboCircularBuffer(make([]uint8, TurboBufferLen(D)), d)
	require.Len(t, w, TurboBufferLen(D))

	wantOnes := 0
	for _, s := range d {
		o, _ := countBits(s)
		wantOnes += o
	}
	ones, nulls := countBits(w)
	require.Equal(t, wantOnes, ones)
	// dummy padding in all three streams plus filler in d0 and d1
	require.Equal(t, 3*(TurboBufferLen(D)/3-D)+2*6, nulls)
	// R=4 rows, 20 dummy bits: column 0 of v0 reads y[0], y[32], ... and y[32] = d0[12]
	require.Equal(t, lte.BitNull, w[0])
	require.Equal(t, d[0][12], w[1])
}

func TestSelectBitsWrapsAndSkipsNull(t *testing.T) {
	w := []uint8{lte.BitNull, 1, 0, lte.BitNull, 1}
	require.Equal(t, []uint8{1, 0, 1, 1, 0, 1, 1}, SelectBits(w, 0, 7))
	require.Equal(t, []uint8{1, 1, 0}, SelectBits(w, 4, 3))
	require.Empty(t, SelectBits(w, 2, 0))
}

func TestConvRateMatchFullLengthKeepsAllBits(t *testing.T) {
	c := make([]uint8, 28)
	for i := range c {
		c[i] = uint8((i / 3) & 1)
	}
	d, err := ConvEncode(c)
	require.NoError(t, err)
	out := ConvRateMatch(d, 3*len(c))
	want := 0
	for _, s := range d {
		o, _ := countBits(s)
		want += o
	}
	ones, nulls := countBits(out)
	require.Equal(t, want, ones)
	require.Zero(t, nulls)
}
