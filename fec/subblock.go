package fec

import "github.com/observe-l/ulsch/lte"

// Sub-block interleavers of TS 36.212 5.1.4. The matrix has 32 columns; the input
// is padded with lte.BitNull at the front to fill R rows, columns are permuted and the
// matrix is read out column by column.

const subblockColumns = 32

var turboColumnPerm = [subblockColumns]int{
	0, 16, 8, 24, 4, 20, 12, 28, 2, 18, 10, 26, 6, 22, 14, 30,
	1, 17, 9, 25, 5, 21, 13, 29, 3, 19, 11, 27, 7, 23, 15, 31,
}

var convColumnPerm = [subblockColumns]int{
	1, 17, 9, 25, 5, 21, 13, 29, 3, 19, 11, 27, 7, 23, 15, 31,
	0, 16, 8, 24, 4, 20, 12, 28, 2, 18, 10, 26, 6, 22, 14, 30,
}

// SubblockRows returns R, the number of interleaver rows for a stream of D bits.
func SubblockRows(D int) int {
	return (D + subblockColumns - 1) / subblockColumns
}

// TurboBufferLen returns Kw = 3*Kπ for a turbo stream length D (= K+4).
func TurboBufferLen(D int) int {
	return 3 * SubblockRows(D) * subblockColumns
}

// interleaveColumns writes d into an R x 32 matrix (prefixed with nulls) and reads it
// out column by column through perm. dst must have R*32 elements.
func interleaveColumns(dst, d []uint8, perm *[subblockColumns]int) {
	R := SubblockRows(len(d))
	nd := R*subblockColumns - len(d)
	at := func(i int) uint8 {
		if i < nd {
			return lte.BitNull
		}
		return d[i-nd]
	}
	k := 0
	for j := 0; j < subblockColumns; j++ {
		col := perm[j]
		for i := 0; i < R; i++ {
			dst[k] = at(i*subblockColumns + col)
			k++
		}
	}
}

// TurboCircularBuffer builds the turbo rate-matching circular buffer
// w = v0 | interlaced(v1, v2) into dst, which must hold TurboBufferLen(len(d[0]))
// bits. It returns the used prefix of dst.
func TurboCircularBuffer(dst []uint8, d [3][]uint8) []uint8 {
	D := len(d[0])
	R := SubblockRows(D)
	kpi := R * subblockColumns
	nd := kpi - D
	w := dst[:3*kpi]
	interleaveColumns(w[:kpi], d[0], &turboColumnPerm)
	v1 := make([]uint8, kpi)
	interleaveColumns(v1, d[1], &turboColumnPerm)
	for k := 0; k < kpi; k++ {
		// π(k) = (P(floor(k/R)) + 32*(k mod R) + 1) mod Kπ
		p := (turboColumnPerm[k/R] + subblockColumns*(k%R) + 1) % kpi
		v2 := lte.BitNull
		if p >= nd {
			v2 = d[2][p-nd]
		}
		w[kpi+2*k] = v1[k]
		w[kpi+2*k+1] = v2
	}
	return w
}

// ConvRateMatch interleaves the three tail-biting convolutional streams, collects
// them into w = v0|v1|v2 and selects E bits starting at position zero, TS 36.212
// 5.1.4.2.
func ConvRateMatch(d [3][]uint8, E int) []uint8 {
	D := len(d[0])
	kpi := SubblockRows(D) * subblockColumns
	w := make([]uint8, 3*kpi)
	for i := 0; i < 3; i++ {
		interleaveColumns(w[i*kpi:(i+1)*kpi], d[i], &convColumnPerm)
	}
	return selectBits(w, 0, E)
}

// selectBits reads E bits from the circular buffer w starting at k0, skipping nulls.
func selectBits(w []uint8, k0, E int) []uint8 {
	out := make([]uint8, E)
	n := len(w)
	if E == 0 || n == 0 {
		return out
	}
	for k, j := 0, 0; k < E; j++ {
		b := w[(k0+j)%n]
		if b == lte.BitNull {
			continue
		}
		out[k] = b
		k++
	}
	return out
}

// SelectBits exposes the circular read to the HARQ rate matcher.
func SelectBits(w []uint8, k0, E int) []uint8 { return selectBits(w, k0, E) }
