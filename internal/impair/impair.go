// Package impair applies simple channel impairments to encoded subframes for offline
// evaluation.
package impair

import (
	"math"
	"math/rand/v2"
)

// Bernoulli implements a simple u<p drop decision.
type Bernoulli struct {
	p   float64
	rng *rand.Rand
}

func NewBernoulli(p float64, rng *rand.Rand) *Bernoulli { return &Bernoulli{p: p, rng: rng} }

func (b *Bernoulli) Drop() bool {
	if b.p <= 0 {
		return false
	}
	if b.p >= 1 {
		return true
	}
	return b.rng.Float64() < b.p
}

// AWGN adds complex white Gaussian noise at a fixed SNR relative to unit symbol energy.
type AWGN struct {
	sigma float64 // per-component standard deviation
	rng   *rand.Rand
}

// NewAWGN returns a noise source for snrDB. +Inf disables the noise.
func NewAWGN(snrDB float64, rng *rand.Rand) *AWGN {
	n0 := math.Pow(10, -snrDB/10)
	return &AWGN{sigma: math.Sqrt(n0 / 2), rng: rng}
}

// Sigma is the per-component standard deviation.
func (a *AWGN) Sigma() float64 { return a.sigma }

// Apply returns a noisy copy of x.
func (a *AWGN) Apply(x []complex64) []complex64 {
	out := make([]complex64, len(x))
	for i, v := range x {
		if a.sigma == 0 {
			out[i] = v
			continue
		}
		out[i] = v + complex(float32(a.rng.NormFloat64()*a.sigma), float32(a.rng.NormFloat64()*a.sigma))
	}
	return out
}

// BitErrors counts positions where got and want differ; the longer tail counts as errors.
func BitErrors(got, want []uint8) int {
	n := 0
	for i := range min(len(got), len(want)) {
		if got[i] != want[i] {
			n++
		}
	}
	return n + max(len(got), len(want)) - min(len(got), len(want))
}
