package fec

import (
	"fmt"

	"github.com/observe-l/ulsch/lte"
)

// TurboTail is the number of trellis termination bits per output stream.
const TurboTail = 4

// qppPermutation returns Π(i) = (f1*i + f2*i^2) mod K for a table block size.
func qppPermutation(K int) ([]int, error) {
	idx := qppIndex(K)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %d is not a turbo block size", lte.ErrInvalidConfiguration, K)
	}
	f1, f2 := int64(qppTable[idx].F1), int64(qppTable[idx].F2)
	k := int64(K)
	pi := make([]int, K)
	for i := int64(0); i < k; i++ {
		pi[i] = int((f1*i + f2*((i*i)%k)) % k)
	}
	return pi, nil
}

// rsc is one 8-state recursive systematic constituent encoder with transfer
// function [1, g1/g0], g0 = 1+D^2+D^3 and g1 = 1+D+D^3.
type rsc struct{ s0, s1, s2 uint8 }

// step encodes one input bit and returns the parity bit.
func (e *rsc) step(c uint8) uint8 {
	a := c ^ e.s1 ^ e.s2
	z := a ^ e.s0 ^ e.s2
	e.s2, e.s1, e.s0 = e.s1, e.s0, a
	return z
}

// tail drives the register to zero; returns the systematic and parity tail bits.
func (e *rsc) tail() (x, z uint8) {
	x = e.s1 ^ e.s2
	z = e.s0 ^ e.s2
	e.s2, e.s1, e.s0 = e.s1, e.s0, 0
	return x, z
}

// TurboEncode encodes one code block with the rate 1/3 parallel concatenated
// convolutional code of TS 36.212 5.1.3.2. The three returned streams have K+4 bits.
// Filler positions (lte.BitNull) are encoded as zero and reported as lte.BitNull in
// d0 and d1.
func TurboEncode(c []uint8) (d [3][]uint8, err error) {
	K := len(c)
	pi, err := qppPermutation(K)
	if err != nil {
		return d, err
	}
	for i := range d {
		d[i] = make([]uint8, K+TurboTail)
	}
	bit := func(i int) uint8 {
		if c[i] == lte.BitNull {
			return 0
		}
		return c[i] & 1
	}
	var e1, e2 rsc
	for k := 0; k < K; k++ {
		x := bit(k)
		d[0][k] = x
		d[1][k] = e1.step(x)
		d[2][k] = e2.step(bit(pi[k]))
		if c[k] == lte.BitNull {
			d[0][k] = lte.BitNull
			d[1][k] = lte.BitNull
		}
	}
	var x, z, xp, zp [3]uint8
	for i := 0; i < 3; i++ {
		x[i], z[i] = e1.tail()
	}
	for i := 0; i < 3; i++ {
		xp[i], zp[i] = e2.tail()
	}
	d[0][K], d[0][K+1], d[0][K+2], d[0][K+3] = x[0], z[1], xp[0], zp[1]
	d[1][K], d[1][K+1], d[1][K+2], d[1][K+3] = z[0], x[2], zp[0], xp[2]
	d[2][K], d[2][K+1], d[2][K+2], d[2][K+3] = x[1], z[2], xp[1], zp[2]
	return d, nil
}
