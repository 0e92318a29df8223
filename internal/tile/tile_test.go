package tile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRemoveDCSpike_InterpolatesFromFloorNeighbours(t *testing.T) {
	// 101 bins so the exact midpoint (index 50) is unambiguous; everything
	// but the injected spike sits at the -80dB floor, so the interpolated
	// window should reproduce the floor exactly.
	n := 101
	freqs := make([]float64, n)
	powers := make([]float64, n)
	for i := range freqs {
		freqs[i] = float64(i)
		powers[i] = -80
	}
	powers[50] = 0 // injected spike, should be smoothed away

	removeDCSpike(freqs, powers, 2)

	for i := 48; i <= 52; i++ {
		assert.InDelta(t, -80, powers[i], 1e-9, "index %d", i)
	}
}

func TestReassemble_FrequencyMapping(t *testing.T) {
	// N=8: quarter=2, lowerStart=1+1=2, upperStart=1+5=6.
	n := 8
	power := make([]float64, n)
	for i := range power {
		power[i] = float64(i)
	}
	centre := uint64(100_000_000) // 100 MHz
	fs := 20_000_000
	fr := Reassemble(power, centre, fs, -1, 0, 1000)

	require.Equal(t, 4, fr.Len())
	for i := 1; i < fr.Len(); i++ {
		assert.Greater(t, fr.Freqs[i], fr.Freqs[i-1], "freqs must be strictly increasing")
	}
	assert.InDelta(t, 92.5, fr.Freqs[0], 1e-9)
	assert.InDelta(t, 97.5, fr.Freqs[1], 1e-9)
	assert.InDelta(t, 102.5, fr.Freqs[2], 1e-9)
	assert.InDelta(t, 107.5, fr.Freqs[3], 1e-9)
}

func TestReassemble_ClipsToRequestedRange(t *testing.T) {
	n := 8
	power := make([]float64, n)
	fr := Reassemble(power, 100_000_000, 20_000_000, -1, 95, 105)
	for _, f := range fr.Freqs {
		assert.GreaterOrEqual(t, f, 95.0)
		assert.LessOrEqual(t, f, 105.0)
	}
}

func TestReassemble_EmptyWhenRangeExcludesEverything(t *testing.T) {
	n := 8
	power := make([]float64, n)
	fr := Reassemble(power, 100_000_000, 20_000_000, -1, 0, 1)
	assert.Equal(t, 0, fr.Len())
}

// TestReassemble_FreqsStrictlyIncreasing is a property test: for any
// reasonable N (multiple of 8) and centre frequency, the reassembled
// output frequency vector must be strictly increasing and DC-spike removal
// must never change the output length.
func TestReassemble_FreqsStrictlyIncreasing(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		nEighths := rapid.IntRange(2, 64).Draw(rt, "nEighths")
		n := nEighths * 8
		centre := uint64(rapid.IntRange(100, 7000).Draw(rt, "centreMHz")) * 1_000_000
		halfWidth := rapid.IntRange(-1, 5).Draw(rt, "halfWidth")

		power := make([]float64, n)
		for i := range power {
			power[i] = -90 + float64(i%7)
		}

		before := Reassemble(power, centre, 20_000_000, -1, 0, 1e9)
		after := Reassemble(power, centre, 20_000_000, halfWidth, 0, 1e9)

		if halfWidth >= 0 {
			assert.Equal(rt, before.Len(), after.Len(), "DC-spike removal must preserve length")
		}

		for i := 1; i < after.Len(); i++ {
			assert.Greater(rt, after.Freqs[i], after.Freqs[i-1])
		}
		for _, p := range after.Powers {
			assert.False(rt, math.IsNaN(p))
			assert.False(rt, math.IsInf(p, 0))
		}
	})
}
