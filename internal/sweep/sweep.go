// Package sweep implements the Sweep Engine (SE): it owns the sweep
// session lifecycle, drives the hop schedule, and invokes the Tile
// Reassembler on each captured IQ block (spec.md §4.2).
package sweep

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwsl/hackrf-sweepd/internal/bus"
	"github.com/cwsl/hackrf-sweepd/internal/fftctx"
	"github.com/cwsl/hackrf-sweepd/internal/radio"
	"github.com/cwsl/hackrf-sweepd/internal/sweepcfg"
	"github.com/cwsl/hackrf-sweepd/internal/sweeperr"
	"github.com/cwsl/hackrf-sweepd/internal/tile"
	"github.com/cwsl/hackrf-sweepd/internal/tuning"
	"github.com/cwsl/hackrf-sweepd/internal/wisdom"
)

// Debug enables verbose per-callback logging, mirroring the teacher's
// package-level DebugMode gate.
var Debug bool

// WatchdogTimeout bounds how long Stop waits for the streaming thread to
// exit cleanly before force-closing resources (spec.md §5).
const WatchdogTimeout = 2 * time.Second

// State is a Sweep Engine lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConfiguring
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConfiguring:
		return "CONFIGURING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}

// OpenFunc claims a Device, allowing tests to substitute radio.NewFake.
type OpenFunc func(serial string) (radio.Device, error)

// Engine drives one sweep session at a time. Transitions are
// single-threaded: the caller holds exclusive access.
type Engine struct {
	open OpenFunc
	bus  *bus.Bus

	mu    sync.Mutex
	state State
	dev   radio.Device
	cfg   sweepcfg.SweepConfig
	fft   *fftctx.Context

	sweepCount       int64
	lastCallbackTime time.Time
	sweepRateHz      float64

	streamErr atomic.Value // error
}

// New creates an Engine publishing reassembled frames onto b. open
// defaults to radio.Open; pass radio.NewFake's constructor in tests.
func New(b *bus.Bus, open OpenFunc) *Engine {
	if open == nil {
		open = radio.Open
	}
	return &Engine{bus: b, open: open, state: StateIdle}
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start configures and begins a sweep session per spec.md §4.2.
func (e *Engine) Start(cfg sweepcfg.SweepConfig) error {
	const op = "Engine.Start"

	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return sweeperr.New(sweeperr.KindConfigInvalid, op, "start only permitted from IDLE")
	}
	e.state = StateConfiguring
	e.cfg = cfg
	e.mu.Unlock()

	dev, err := e.open(cfg.SerialNumber)
	if err != nil {
		e.toIdle()
		return sweeperr.Wrap(sweeperr.KindRadioUnavailable, op, "open device", err)
	}

	if err := applyRadioConfig(dev, cfg); err != nil {
		dev.Close()
		e.toIdle()
		return sweeperr.Wrap(sweeperr.KindRadioSetupFailed, op, "apply gains/filters/bias", err)
	}

	plan := tuning.Derive(cfg)
	n, weff := tuning.EffectiveBinWidth(cfg.RequestedBinWidthHz)
	fft := fftctx.New(n, weff, cfg.Plan)

	if err := dev.SweepInit(tuning.SampleRateHz, tuning.TuneStepHz); err != nil {
		dev.Close()
		e.toIdle()
		return sweeperr.Wrap(sweeperr.KindRadioSetupFailed, op, "sweep_init", err)
	}
	if err := dev.SweepSetOutput(radio.OutputModeNOP); err != nil {
		dev.Close()
		e.toIdle()
		return sweeperr.Wrap(sweeperr.KindRadioSetupFailed, op, "sweep_set_output", err)
	}

	ranges := make([]radio.TuneRange, len(plan.Ranges))
	for i, r := range plan.Ranges {
		ranges[i] = radio.TuneRange{LoMHz: r.LoMHz, HiMHz: r.HiMHz}
	}
	if err := dev.SweepSetRange(ranges); err != nil {
		dev.Close()
		e.toIdle()
		return sweeperr.Wrap(sweeperr.KindRadioSetupFailed, op, "sweep_set_range", err)
	}

	if err := wisdom.ImportIfPresent(dev, cfg.WisdomPath); err != nil && Debug {
		log.Printf("DEBUG: wisdom import skipped: %v", err)
	}

	if err := dev.SweepSetupFFT(string(cfg.Plan), cfg.RequestedBinWidthHz); err != nil {
		dev.Close()
		e.toIdle()
		return sweeperr.Wrap(sweeperr.KindRadioSetupFailed, op, "sweep_setup_fft", err)
	}

	e.mu.Lock()
	e.dev = dev
	e.fft = fft
	e.sweepCount = 0
	e.lastCallbackTime = time.Time{}
	e.mu.Unlock()

	dev.SweepSetFFTReadyCallback(e.onFFTReady)

	maxSweeps := 0
	if cfg.OneShot {
		maxSweeps = 1
	}
	if err := dev.SweepStart(maxSweeps); err != nil {
		dev.Close()
		e.toIdle()
		return sweeperr.Wrap(sweeperr.KindRadioSetupFailed, op, "sweep_start", err)
	}

	e.mu.Lock()
	e.state = StateRunning
	e.mu.Unlock()
	return nil
}

func applyRadioConfig(dev radio.Device, cfg sweepcfg.SweepConfig) error {
	if err := dev.SetSampleRate(tuning.SampleRateHz); err != nil {
		return err
	}
	if err := dev.SetBasebandFilter(tuning.BasebandFilterHz); err != nil {
		return err
	}
	if err := dev.SetLNAGain(cfg.LNAGainDB); err != nil {
		return err
	}
	if err := dev.SetVGAGain(cfg.VGAGainDB); err != nil {
		return err
	}
	if err := dev.SetAmpEnable(cfg.AmpEnable); err != nil {
		return err
	}
	if err := dev.SetAntennaEnable(cfg.AntennaBiasEnable); err != nil {
		return err
	}
	return nil
}

// onFFTReady runs on the native streaming thread (or, for the fake device,
// its goroutine). It must never block on consumer progress (spec.md §5).
func (e *Engine) onFFTReady(xfer radio.Transfer) int {
	e.mu.Lock()
	cfg := e.cfg
	now := time.Now()
	if !e.lastCallbackTime.IsZero() {
		dt := now.Sub(e.lastCallbackTime).Seconds()
		if dt > 0 {
			e.sweepRateHz = 1 / dt
		}
	}
	e.lastCallbackTime = now
	e.sweepCount++
	e.mu.Unlock()

	dcHalfWidth := -1
	if cfg.DCSpikeRemoval {
		dcHalfWidth = cfg.DCSpikeHalfWidth
	}

	fr := tile.Reassemble(xfer.Power, xfer.CentreFreqHz, tuning.SampleRateHz, dcHalfWidth, cfg.FreqMinMHz, cfg.FreqMaxMHz)
	if fr.Len() > 0 && e.bus != nil {
		e.bus.Publish(fr)
	}

	if v := e.streamErr.Load(); v != nil {
		return 1
	}
	return 0
}

// SweepCount returns the number of FFT-ready callbacks processed this session.
func (e *Engine) SweepCount() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sweepCount
}

// SweepRateHz returns the reciprocal of the most recent inter-callback
// wall interval (no smoothing beyond last-sample, per spec.md §4.2).
func (e *Engine) SweepRateHz() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sweepRateHz
}

// Stop halts the session, per spec.md §4.2 and §5. It is idempotent.
func (e *Engine) Stop() error {
	e.mu.Lock()
	switch e.state {
	case StateIdle, StateStopping:
		e.mu.Unlock()
		return nil
	}
	e.state = StateStopping
	dev := e.dev
	e.mu.Unlock()

	if dev != nil {
		done := make(chan struct{})
		go func() {
			dev.SweepStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(WatchdogTimeout):
			log.Printf("Warning: sweep engine stop watchdog fired after %s, force-closing", WatchdogTimeout)
		}
		if err := wisdom.Export(dev, e.cfg.WisdomPath); err != nil && Debug {
			log.Printf("DEBUG: wisdom export skipped: %v", err)
		}
		dev.SweepClose()
		dev.Close()
	}

	e.toIdle()
	return nil
}

// SignalRuntimeError marks the current session as failed; the next
// FFT-ready callback observes it and stops the sweep (spec.md §5 and §7).
func (e *Engine) SignalRuntimeError(err error) {
	e.streamErr.Store(err)
}

func (e *Engine) toIdle() {
	e.mu.Lock()
	e.state = StateIdle
	e.dev = nil
	e.mu.Unlock()
}
