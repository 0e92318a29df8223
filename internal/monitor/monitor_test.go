package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/hackrf-sweepd/internal/baseline"
	"github.com/cwsl/hackrf-sweepd/internal/frame"
	"github.com/cwsl/hackrf-sweepd/internal/sweeperr"
)

func testBaseline() *baseline.Baseline {
	return &baseline.Baseline{
		Freqs:    []float64{100, 101, 102, 103},
		MaxPower: []float32{-80, -80, -80, -80},
	}
}

func TestNew_RejectsInsufficientCoverage(t *testing.T) {
	_, err := New(testBaseline(), 50, 200, 10, 0)
	require.Error(t, err)
	var se *sweeperr.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, sweeperr.KindCoverageInsufficient, se.Kind)
}

func TestNew_AcceptsCoveringBaseline(t *testing.T) {
	c, err := New(testBaseline(), 100, 103, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 10.0, c.Threshold())
}

func TestIngest_CreatesNewAlertOnCrossing(t *testing.T) {
	c, err := New(testBaseline(), 100, 103, 10, 0)
	require.NoError(t, err)

	fr := frame.Frame{Freqs: []float64{100, 101, 102, 103}, Powers: []float64{-80, -85, -60, -80}}
	events := c.Ingest(fr)

	require.Len(t, events, 1, "only index 2 exceeds baseline(-80)+threshold(10)=-70")
	ev := events[0]
	assert.True(t, ev.IsNew)
	assert.InDelta(t, 102, ev.Alert.FreqMHz, 1e-9)
	assert.InDelta(t, 20, ev.DeltaBase, 1e-9)  // -60 - (-80)
	assert.InDelta(t, 10, ev.DeltaThresh, 1e-9) // -60 - (-70)
	assert.Len(t, c.ActiveAlerts(), 1)
}

func TestIngest_UpdatesExistingAlertOnRepeatCrossing(t *testing.T) {
	c, err := New(testBaseline(), 100, 103, 10, 0)
	require.NoError(t, err)
	fr := frame.Frame{Freqs: []float64{100, 101, 102, 103}, Powers: []float64{-80, -80, -60, -80}}

	first := c.Ingest(fr)
	require.Len(t, first, 1)
	require.True(t, first[0].IsNew)

	fr.Powers[2] = -55 // stronger signal, same key
	second := c.Ingest(fr)
	require.Len(t, second, 1)
	assert.False(t, second[0].IsNew)
	assert.Equal(t, 2, second[0].Alert.Count)
	assert.Equal(t, -55.0, second[0].Alert.MaxPowerDB)
}

func TestIngest_NoEventsBelowThreshold(t *testing.T) {
	c, err := New(testBaseline(), 100, 103, 10, 0)
	require.NoError(t, err)
	fr := frame.Frame{Freqs: []float64{100, 101, 102, 103}, Powers: []float64{-80, -80, -75, -80}}
	events := c.Ingest(fr)
	assert.Empty(t, events, "power -75 does not exceed baseline(-80)+threshold(10)=-70")
}

func TestUpdateThreshold_AffectsSubsequentIngest(t *testing.T) {
	c, err := New(testBaseline(), 100, 103, 10, 0)
	require.NoError(t, err)
	c.UpdateThreshold(2) // now crossing threshold is baseline+2=-78

	fr := frame.Frame{Freqs: []float64{100, 101, 102, 103}, Powers: []float64{-80, -80, -75, -80}}
	events := c.Ingest(fr)
	require.Len(t, events, 1, "-75 now exceeds the lowered threshold of -78")

	c.ResetThreshold()
	assert.Equal(t, 10.0, c.Threshold())
}

// fakeNow lets tests control retirement timing deterministically.
func fakeNow(start time.Time) func() time.Time {
	t := start
	return func() time.Time { return t }
}

func TestRetireStale_PromotesToHistoryWhenDurationMet(t *testing.T) {
	c, err := New(testBaseline(), 100, 103, 10, 1 /* minDetectionS */)
	require.NoError(t, err)

	start := time.Unix(1000, 0)
	c.now = func() time.Time { return start }
	fr := frame.Frame{Freqs: []float64{100, 101, 102, 103}, Powers: []float64{-80, -80, -60, -80}}
	c.Ingest(fr)

	// second crossing 2s later extends LastSeen and satisfies minDetectionS
	t2 := start.Add(2 * time.Second)
	c.now = func() time.Time { return t2 }
	c.Ingest(fr)

	// third call long after RetireAfter with no crossings: nothing exceeds
	// threshold, so the stale alert is retired and checked against duration.
	t3 := t2.Add(RetireAfter + time.Second)
	c.now = func() time.Time { return t3 }
	quiet := frame.Frame{Freqs: []float64{100, 101, 102, 103}, Powers: []float64{-80, -80, -80, -80}}
	c.Ingest(quiet)

	assert.Empty(t, c.ActiveAlerts())
	require.Len(t, c.History(), 1)
	assert.Equal(t, 1, c.TotalAlerts())
	assert.InDelta(t, 2, c.History()[0].Duration().Seconds(), 1e-9)
}

func TestRetireStale_DropsAlertsShorterThanMinDuration(t *testing.T) {
	c, err := New(testBaseline(), 100, 103, 10, 5 /* minDetectionS */)
	require.NoError(t, err)

	start := time.Unix(2000, 0)
	c.now = func() time.Time { return start }
	fr := frame.Frame{Freqs: []float64{100, 101, 102, 103}, Powers: []float64{-80, -80, -60, -80}}
	c.Ingest(fr) // FirstSeen == LastSeen == start, Duration() == 0 < minDetectionS

	c.now = func() time.Time { return start.Add(RetireAfter + time.Second) }
	quiet := frame.Frame{Freqs: []float64{100, 101, 102, 103}, Powers: []float64{-80, -80, -80, -80}}
	c.Ingest(quiet)

	assert.Empty(t, c.ActiveAlerts())
	assert.Empty(t, c.History(), "alert lived 0s, below the 5s minimum, so it must not be promoted")
	assert.Equal(t, 0, c.TotalAlerts())
}
