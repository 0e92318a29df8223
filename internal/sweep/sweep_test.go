package sweep

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/hackrf-sweepd/internal/bus"
	"github.com/cwsl/hackrf-sweepd/internal/radio"
	"github.com/cwsl/hackrf-sweepd/internal/sweepcfg"
)

func openFakeFast(serial string) (radio.Device, error) {
	dev := radio.NewFake()
	dev.HopInterval = time.Millisecond
	return dev, nil
}

func smallConfig() sweepcfg.SweepConfig {
	return sweepcfg.SweepConfig{
		FreqMinMHz:          100,
		FreqMaxMHz:          120,
		RequestedBinWidthHz: 1_000_000,
		Plan:                sweepcfg.PlanEstimate,
	}
}

func TestEngine_StartTransitionsToRunningThenStopToIdle(t *testing.T) {
	e := New(bus.New(), openFakeFast)
	assert.Equal(t, StateIdle, e.State())

	require.NoError(t, e.Start(smallConfig()))
	assert.Equal(t, StateRunning, e.State())

	require.NoError(t, e.Stop())
	assert.Equal(t, StateIdle, e.State())
}

func TestEngine_StartRejectsWhenNotIdle(t *testing.T) {
	e := New(bus.New(), openFakeFast)
	require.NoError(t, e.Start(smallConfig()))
	defer e.Stop()

	err := e.Start(smallConfig())
	require.Error(t, err)
}

func TestEngine_StopIsIdempotent(t *testing.T) {
	e := New(bus.New(), openFakeFast)
	require.NoError(t, e.Start(smallConfig()))
	require.NoError(t, e.Stop())
	assert.NoError(t, e.Stop(), "a second Stop on an already-idle engine must be a no-op")
}

func TestEngine_StopOnNeverStartedEngineIsNoOp(t *testing.T) {
	e := New(bus.New(), openFakeFast)
	assert.NoError(t, e.Stop())
	assert.Equal(t, StateIdle, e.State())
}

func TestEngine_PublishesFramesOntoBus(t *testing.T) {
	b := bus.New()
	e := New(b, openFakeFast)
	frames := b.Subscribe()
	defer b.Unsubscribe(frames)

	// Wide range so at least one hop's tiles overlap the requested window.
	cfg := sweepcfg.SweepConfig{
		FreqMinMHz:          0,
		FreqMaxMHz:          200,
		RequestedBinWidthHz: 1_000_000,
		Plan:                sweepcfg.PlanEstimate,
	}
	require.NoError(t, e.Start(cfg))
	defer e.Stop()

	select {
	case fr := <-frames:
		assert.Greater(t, fr.Len(), 0)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame published within timeout")
	}
}

func TestEngine_SweepCountIncreasesWhileRunning(t *testing.T) {
	b := bus.New()
	e := New(b, openFakeFast)
	frames := b.Subscribe()
	defer b.Unsubscribe(frames)

	cfg := sweepcfg.SweepConfig{
		FreqMinMHz:          0,
		FreqMaxMHz:          200,
		RequestedBinWidthHz: 1_000_000,
		Plan:                sweepcfg.PlanEstimate,
	}
	require.NoError(t, e.Start(cfg))
	defer e.Stop()

	select {
	case <-frames:
	case <-time.After(2 * time.Second):
		t.Fatal("no frame published within timeout")
	}
	assert.Greater(t, e.SweepCount(), int64(0))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "IDLE", StateIdle.String())
	assert.Equal(t, "CONFIGURING", StateConfiguring.String())
	assert.Equal(t, "RUNNING", StateRunning.String())
	assert.Equal(t, "STOPPING", StateStopping.String())
}
