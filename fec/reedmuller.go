package fec

import (
	"fmt"

	"github.com/observe-l/ulsch/lte"
)

// ReedMullerMaxBits is the largest payload the (32, O) block code accepts.
const ReedMullerMaxBits = 11

// Basis sequences of the (32, O) code, TS 36.212 Table 5.2.2.6.4-1.
var rmBasis = [32][ReedMullerMaxBits]uint8{
	{1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 1},
	{1, 1, 1, 0, 0, 0, 0, 0, 0, 1, 1},
	{1, 0, 0, 1, 0, 0, 1, 0, 1, 1, 1},
	{1, 0, 1, 1, 0, 0, 0, 0, 1, 0, 1},
	{1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1},
	{1, 1, 0, 0, 1, 0, 1, 1, 1, 0, 1},
	{1, 0, 1, 0, 1, 0, 1, 0, 1, 1, 1},
	{1, 0, 0, 1, 1, 0, 0, 1, 1, 0, 1},
	{1, 1, 0, 1, 1, 0, 0, 1, 0, 1, 1},
	{1, 0, 1, 1, 1, 0, 1, 0, 0, 1, 1},
	{1, 0, 1, 0, 0, 1, 1, 1, 0, 1, 1},
	{1, 1, 1, 0, 0, 1, 1, 0, 1, 0, 1},
	{1, 0, 0, 1, 0, 1, 0, 1, 1, 1, 1},
	{1, 1, 0, 1, 0, 1, 0, 1, 0, 1, 1},
	{1, 0, 0, 0, 1, 1, 0, 1, 0, 0, 1},
	{1, 1, 0, 0, 1, 1, 1, 1, 0, 1, 1},
	{1, 1, 1, 0, 1, 1, 1, 0, 0, 1, 0},
	{1, 0, 0, 1, 1, 1, 0, 0, 1, 0, 0},
	{1, 1, 0, 1, 1, 1, 1, 1, 0, 0, 0},
	{1, 0, 0, 0, 0, 1, 1, 0, 0, 0, 0},
	{1, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1},
	{1, 1, 0, 1, 0, 0, 0, 0, 0, 1, 1},
	{1, 0, 0, 0, 1, 0, 0, 1, 1, 0, 1},
	{1, 1, 1, 0, 1, 0, 0, 0, 1, 1, 1},
	{1, 1, 1, 1, 1, 0, 1, 1, 1, 1, 0},
	{1, 1, 0, 0, 0, 1, 1, 1, 0, 0, 1},
	{1, 0, 1, 1, 0, 1, 0, 0, 1, 1, 0},
	{1, 1, 1, 1, 0, 1, 0, 1, 1, 1, 0},
	{1, 0, 1, 0, 1, 1, 1, 0, 1, 0, 0},
	{1, 0, 1, 1, 1, 1, 1, 1, 1, 0, 0},
	{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
	{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
}

// ReedMullerEncode returns the 32-bit codeword of a payload of 1..11 bits.
func ReedMullerEncode(o []uint8) ([]uint8, error) {
	if len(o) == 0 || len(o) > ReedMullerMaxBits {
		return nil, fmt.Errorf("%w: (32,O) code needs 1..%d bits, got %d", lte.ErrInvalidConfiguration, ReedMullerMaxBits, len(o))
	}
	b := make([]uint8, len(rmBasis))
	for i := range rmBasis {
		var acc uint8
		for n, bit := range o {
			acc ^= bit & rmBasis[i][n]
		}
		b[i] = acc
	}
	return b, nil
}

// RepeatCircular returns the first n bits of the infinite repetition of b.
func RepeatCircular(b []uint8, n int) []uint8 {
	out := make([]uint8, n)
	if len(b) == 0 {
		return out
	}
	for i := range out {
		out[i] = b[i%len(b)]
	}
	return out
}
