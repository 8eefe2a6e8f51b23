// Package scramble implements the length-31 Gold pseudo-random sequence of TS 36.211
// 7.2 and PUSCH bit scrambling, TS 36.211 5.3.1.
package scramble

const goldNc = 1600

// Sequence returns n bits of the Gold sequence initialised with cinit.
func Sequence(cinit uint32, n int) []uint8 {
	out := make([]uint8, n)
	var x1, x2 uint32 = 1, cinit & 0x7FFFFFFF
	step := func() {
		f1 := (x1 ^ x1>>3) & 1
		f2 := (x2 ^ x2>>1 ^ x2>>2 ^ x2>>3) & 1
		x1 = x1>>1 | f1<<30
		x2 = x2>>1 | f2<<30
	}
	for i := 0; i < goldNc; i++ {
		step()
	}
	for i := range out {
		out[i] = uint8((x1 ^ x2) & 1)
		step()
	}
	return out
}

// CInit is the PUSCH scrambling seed for a subframe.
func CInit(rnti uint16, subframe int, cellID uint32) uint32 {
	ns := 2 * subframe
	return uint32(rnti)<<14 | uint32(ns/2)<<9 | cellID
}
