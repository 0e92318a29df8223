// Package fftctx describes the per-sweep FFT context mirrored from the
// native library, per spec.md §3.
package fftctx

import (
	"gonum.org/v1/gonum/dsp/window"

	"github.com/cwsl/hackrf-sweepd/internal/sweepcfg"
)

// Context is created once per sweep session and reused across hops.
type Context struct {
	N             int
	EffectiveBinWidthHz float64
	Plan          sweepcfg.PlanStrategy
	Power         []float64 // length N, dB; reused buffer
	Window        []float64 // window coefficients, length N
}

// New allocates a Context for the given FFT length and plan strategy.
func New(n int, effectiveBinWidthHz float64, plan sweepcfg.PlanStrategy) *Context {
	return &Context{
		N:                   n,
		EffectiveBinWidthHz: effectiveBinWidthHz,
		Plan:                plan,
		Power:               make([]float64, n),
		Window:              hannWindow(n),
	}
}

// hannWindow returns the raw Hann coefficients of length n, obtained by
// applying gonum's window.Hann to a unit sequence (gonum's window functions
// scale an existing sequence in place rather than generate coefficients
// directly).
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return window.Hann(w)
}
