package grid

import (
	"fmt"

	"github.com/observe-l/ulsch/internal/dft"
	"github.com/observe-l/ulsch/lte"
)

// TransformPrecode spreads each block of msc symbols with a DFT scaled by 1/sqrt(msc),
// TS 36.211 5.3.3.
func TransformPrecode(symbols []complex64, msc int) ([]complex64, error) {
	return precode(symbols, msc, dft.Forward)
}

// InverseTransformPrecode undoes TransformPrecode.
func InverseTransformPrecode(symbols []complex64, msc int) ([]complex64, error) {
	return precode(symbols, msc, dft.Inverse)
}

func precode(symbols []complex64, msc int, fn func(out, in []complex64, k float64)) ([]complex64, error) {
	if msc <= 0 || msc%lte.SubcarriersPerPRB != 0 || !lte.ValidDFTSize(msc) {
		return nil, fmt.Errorf("%w: transform precoder size %d", lte.ErrInvalidConfiguration, msc)
	}
	if len(symbols)%msc != 0 {
		return nil, fmt.Errorf("%w: %d symbols is not a multiple of %d", lte.ErrInvalidBitLength, len(symbols), msc)
	}
	out := make([]complex64, len(symbols))
	k := dft.UnitScale(msc)
	for i := 0; i < len(symbols); i += msc {
		fn(out[i:i+msc], symbols[i:i+msc], k)
	}
	return out, nil
}
