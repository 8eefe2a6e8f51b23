// Package dft pools gonum complex FFT plans by size. A CmplxFFT carries its own work
// arrays, so every goroutine takes a plan from the pool for the duration of one
// transform.
package dft

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

var pools sync.Map // int -> *sync.Pool

func pool(n int) *sync.Pool {
	if p, ok := pools.Load(n); ok {
		return p.(*sync.Pool)
	}
	p, _ := pools.LoadOrStore(n, &sync.Pool{
		New: func() interface{} { return fourier.NewCmplxFFT(n) },
	})
	return p.(*sync.Pool)
}

// Forward computes the unnormalised DFT of in (length n) into out, scaled by k.
func Forward(out, in []complex64, k float64) {
	run(out, in, k, false)
}

// Inverse computes the unnormalised inverse DFT of in into out, scaled by k.
func Inverse(out, in []complex64, k float64) {
	run(out, in, k, true)
}

func run(out, in []complex64, k float64, inverse bool) {
	n := len(in)
	p := pool(n)
	plan := p.Get().(*fourier.CmplxFFT)
	defer p.Put(plan)

	buf := make([]complex128, n)
	for i, v := range in {
		buf[i] = complex128(v)
	}
	var res []complex128
	if inverse {
		res = plan.Sequence(nil, buf)
	} else {
		res = plan.Coefficients(nil, buf)
	}
	for i, v := range res {
		out[i] = complex64(v * complex(k, 0))
	}
}

// UnitScale is the 1/sqrt(n) factor of a unitary transform.
func UnitScale(n int) float64 { return 1 / math.Sqrt(float64(n)) }
