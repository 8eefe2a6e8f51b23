package fec

import (
	"fmt"

	"github.com/observe-l/ulsch/lte"
)

// Generators of the tail-biting convolutional code, constraint length 7, octal
// 133, 171, 165, tap 0 applied to the current input.
var convGenerators = [3][7]uint8{
	{1, 0, 1, 1, 0, 1, 1},
	{1, 1, 1, 1, 0, 0, 1},
	{1, 1, 1, 0, 1, 0, 1},
}

// ConvEncode encodes c with the rate 1/3 tail-biting convolutional code of TS 36.212
// 5.1.3.1. The register starts with the last six input bits so the trellis ends in its
// starting state.
func ConvEncode(c []uint8) ([3][]uint8, error) {
	var d [3][]uint8
	K := len(c)
	if K < len(convGenerators[0]) {
		return d, fmt.Errorf("%w: %d bits too short for tail-biting code", lte.ErrInvalidConfiguration, K)
	}
	for i := range d {
		d[i] = make([]uint8, K)
	}
	for k := 0; k < K; k++ {
		for i, g := range convGenerators {
			var acc uint8
			for j, tap := range g {
				if tap == 1 {
					acc ^= c[(k-j+K)%K] & 1
				}
			}
			d[i][k] = acc
		}
	}
	return d, nil
}
