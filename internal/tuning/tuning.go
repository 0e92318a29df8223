// Package tuning derives a hop schedule (sample rate, filter, tune step,
// frequency ranges) from a SweepConfig, per spec.md §3.
package tuning

import (
	"math"

	"github.com/cwsl/hackrf-sweepd/internal/sweepcfg"
)

const (
	// SampleRateHz is the fixed IQ sample rate of the front end.
	SampleRateHz = 20_000_000
	// BasebandFilterHz is the fixed baseband filter bandwidth.
	BasebandFilterHz = 15_000_000
	// TuneStepHz is the fixed centre-frequency hop distance.
	TuneStepHz = 20_000_000
	// extendMHz is how far past the user's f_max the hardware sweep range
	// is extended so that the final tuning's usable tiles fully cover the
	// requested range.
	extendMHz = 15.0
)

// Range is a 16-bit-MHz tuning range as consumed by the native sweep ABI.
type Range struct {
	LoMHz uint16
	HiMHz uint16
}

// Plan is the derived hop schedule for a session.
type Plan struct {
	SampleRateHz     int
	BasebandFilterHz int
	TuneStepHz       int
	Ranges           []Range
}

// Derive builds the Plan for cfg. Only a single contiguous range is
// supported, extended per spec.md §3.
func Derive(cfg sweepcfg.SweepConfig) Plan {
	hi := cfg.FreqMaxMHz + extendMHz
	if hi > 7250 {
		hi = 7250
	}

	return Plan{
		SampleRateHz:     SampleRateHz,
		BasebandFilterHz: BasebandFilterHz,
		TuneStepHz:       TuneStepHz,
		Ranges: []Range{
			{LoMHz: uint16(math.Floor(cfg.FreqMinMHz)), HiMHz: uint16(math.Ceil(hi))},
		},
	}
}

// EffectiveBinWidth picks the FFT length N (a multiple of 8) nearest to
// the requested bin width and returns N and the achievable bin width
// w_eff = Fs / N.
func EffectiveBinWidth(requestedBinWidthHz float64) (n int, effectiveHz float64) {
	raw := float64(SampleRateHz) / requestedBinWidthHz
	n = int(math.Round(raw/8.0)) * 8
	if n <= 0 {
		n = 8
	}
	return n, float64(SampleRateHz) / float64(n)
}
