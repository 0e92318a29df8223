// Package tile implements the Tile Reassembler (TR): per FFT-ready
// callback, it extracts the two usable non-DC quarter-spectrum tiles from
// a tuning, maps them to absolute frequency, optionally interpolates out
// the DC spike, and clips to the user's requested range (spec.md §4.3).
package tile

import "github.com/cwsl/hackrf-sweepd/internal/frame"

// Hz is a plain alias used to keep signatures self-documenting.
type Hz = float64

// Reassemble builds the usable portion of the spectrum for one tuning.
//
// power has length n (a multiple of 8, enforced by the caller's bin-width
// selection). centreFreqHz is the tuning's centre frequency in Hz, and
// sampleRateHz is the fixed IQ sample rate (20 MHz). dcHalfWidth < 0
// disables DC-spike interpolation. fMinMHz/fMaxMHz clip the result.
//
// The returned Frame may be empty if nothing survives clipping; callers
// must not publish empty frames (spec.md §4.3).
func Reassemble(power []float64, centreFreqHz uint64, sampleRateHz int, dcHalfWidth int, fMinMHz, fMaxMHz float64) frame.Frame {
	n := len(power)
	quarter := n / 4

	fc := float64(centreFreqHz)
	fs := float64(sampleRateHz)

	lowerLoHz := fc - 3*fs/8
	lowerHiHz := fc - fs/8
	upperLoHz := fc + fs/8
	upperHiHz := fc + 3*fs/8

	lowerStart := 1 + n/8
	upperStart := 1 + 5*n/8

	powers := make([]float64, 0, 2*quarter)
	freqs := make([]float64, 0, 2*quarter)

	powers = append(powers, power[lowerStart:lowerStart+quarter]...)
	freqs = append(freqs, linspaceMHz(lowerLoHz, lowerHiHz, quarter)...)

	powers = append(powers, power[upperStart:upperStart+quarter]...)
	freqs = append(freqs, linspaceMHz(upperLoHz, upperHiHz, quarter)...)

	if dcHalfWidth >= 0 {
		removeDCSpike(freqs, powers, dcHalfWidth)
	}

	return clip(freqs, powers, fMinMHz, fMaxMHz)
}

// linspaceMHz returns count evenly spaced points from loHz to hiHz
// (inclusive of both ends, matching the native library's linspace-style
// frequency-vector generation), expressed in MHz without rounding.
func linspaceMHz(loHz, hiHz float64, count int) []float64 {
	out := make([]float64, count)
	loMHz := loHz / 1e6
	hiMHz := hiHz / 1e6
	if count == 1 {
		out[0] = loMHz
		return out
	}
	step := (hiMHz - loMHz) / float64(count-1)
	for i := range out {
		out[i] = loMHz + step*float64(i)
	}
	return out
}

// removeDCSpike replaces powers[c-d..c+d] in place with a linear
// interpolation between powers[c-d-1] and powers[c+d+1], where c is the
// index whose frequency is nearest the midpoint of the frame's span.
func removeDCSpike(freqs, powers []float64, halfWidth int) {
	n := len(freqs)
	if n == 0 {
		return
	}
	mid := (freqs[0] + freqs[n-1]) / 2
	c := 0
	best := abs(freqs[0] - mid)
	for k := 1; k < n; k++ {
		if d := abs(freqs[k] - mid); d < best {
			best = d
			c = k
		}
	}

	lo := c - halfWidth
	hi := c + halfWidth
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}

	leftIdx := c - halfWidth - 1
	rightIdx := c + halfWidth + 1
	haveLeft := leftIdx >= 0
	haveRight := rightIdx <= n-1

	var left, right float64
	switch {
	case haveLeft && haveRight:
		left, right = powers[leftIdx], powers[rightIdx]
	case haveLeft:
		left, right = powers[leftIdx], powers[leftIdx]
	case haveRight:
		left, right = powers[rightIdx], powers[rightIdx]
	default:
		left = mean(powers)
		right = left
	}

	divisor := float64((c + halfWidth + 1) - (c - halfWidth - 1))
	for i := lo; i <= hi; i++ {
		t := float64(i-(c-halfWidth-1)) / divisor
		powers[i] = left + t*(right-left)
	}
}

func clip(freqs, powers []float64, fMinMHz, fMaxMHz float64) frame.Frame {
	outFreqs := make([]float64, 0, len(freqs))
	outPowers := make([]float64, 0, len(powers))
	for i, f := range freqs {
		if f >= fMinMHz && f <= fMaxMHz {
			outFreqs = append(outFreqs, f)
			outPowers = append(outPowers, powers[i])
		}
	}
	return frame.Frame{Freqs: outFreqs, Powers: outPowers}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
