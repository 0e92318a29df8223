package baseline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cwsl/hackrf-sweepd/internal/sweepcfg"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "baseline.bin")

	freqs := []float64{100, 101, 102, 103}
	history := [][]float64{
		{-80, -81, -82, -83},
		{-70, -90, -82, -83}, // row 1 beats row 0 at index 0, row 0 wins at index 1
	}
	meta := Metadata{RadioConfig: sweepcfg.SweepConfig{FreqMinMHz: 100, FreqMaxMHz: 103}, SweepCount: 2}

	require.NoError(t, Save(path, freqs, history, meta))

	b, err := Load(path)
	require.NoError(t, err)
	assert.True(t, b.Loaded)
	assert.Equal(t, freqs, b.Freqs)
	assert.Equal(t, float32(-70), b.MaxPower[0])
	assert.Equal(t, float32(-81), b.MaxPower[1])
	assert.Equal(t, float32(-82), b.MaxPower[2])
	assert.Equal(t, float32(-83), b.MaxPower[3])
	assert.Equal(t, 2, b.Meta.SweepCount)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.bin"))
	require.Error(t, err)
}

func TestInterpolateTo_IdentityOnSameGrid(t *testing.T) {
	b := &Baseline{Freqs: []float64{1, 2, 3, 4}, MaxPower: []float32{-10, -20, -30, -40}}
	out := b.InterpolateTo(b.Freqs)
	for i, v := range out {
		assert.InDelta(t, float64(b.MaxPower[i]), v, 1e-9)
	}
}

func TestInterpolateTo_ClampsOutsideSpan(t *testing.T) {
	b := &Baseline{Freqs: []float64{10, 20, 30}, MaxPower: []float32{-10, -20, -30}}
	out := b.InterpolateTo([]float64{0, 5, 40, 100})
	assert.Equal(t, -10.0, out[0])
	assert.Equal(t, -10.0, out[1])
	assert.Equal(t, -30.0, out[2])
	assert.Equal(t, -30.0, out[3])
}

func TestInterpolateTo_LinearBetweenPoints(t *testing.T) {
	b := &Baseline{Freqs: []float64{0, 10}, MaxPower: []float32{0, 10}}
	out := b.InterpolateTo([]float64{5})
	assert.InDelta(t, 5.0, out[0], 1e-9)
}

func TestCovers(t *testing.T) {
	b := &Baseline{Freqs: []float64{100, 101, 102, 103, 104}} // bin width 1
	assert.True(t, b.Covers(100, 104))
	assert.True(t, b.Covers(99.5, 104.5)) // within one bin tolerance
	assert.False(t, b.Covers(90, 104))
	assert.False(t, b.Covers(100, 200))
}

func TestAt_NearestWithinTolerance(t *testing.T) {
	b := &Baseline{Freqs: []float64{100, 101, 102}, MaxPower: []float32{-10, -20, -30}}
	v, ok := b.At(101.2)
	require.True(t, ok)
	assert.Equal(t, -20.0, v)

	_, ok = b.At(500)
	assert.False(t, ok)
}

func TestCreateBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "baseline.bin")
	require.NoError(t, Save(path, []float64{1, 2}, [][]float64{{-1, -2}}, Metadata{}))

	b, err := Load(path)
	require.NoError(t, err)
	b.path = path

	dst, err := b.CreateBackup("test")
	require.NoError(t, err)
	assert.FileExists(t, dst)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

// TestInterpolateTo_NeverExtrapolatesPastSpan is a property test: output
// values must always lie within [min(MaxPower), max(MaxPower)], since
// InterpolateTo only clamps or linearly interpolates, never overshoots.
func TestInterpolateTo_NeverExtrapolatesPastSpan(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 20).Draw(rt, "n")
		freqs := make([]float64, n)
		powers := make([]float32, n)
		lo, hi := 0.0, 0.0
		for i := range freqs {
			freqs[i] = float64(i) * 10
			v := rapid.Float64Range(-120, 0).Draw(rt, "power")
			powers[i] = float32(v)
			if i == 0 || v < lo {
				lo = v
			}
			if i == 0 || v > hi {
				hi = v
			}
		}
		b := &Baseline{Freqs: freqs, MaxPower: powers}

		targets := make([]float64, rapid.IntRange(1, 10).Draw(rt, "targetCount"))
		for i := range targets {
			targets[i] = rapid.Float64Range(-100, float64(n)*10+100).Draw(rt, "target")
		}

		out := b.InterpolateTo(targets)
		for _, v := range out {
			assert.GreaterOrEqual(rt, v, lo-1e-9)
			assert.LessOrEqual(rt, v, hi+1e-9)
		}
	})
}
