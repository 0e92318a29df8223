package radio

import (
	"math/rand"
	"sync"
	"time"

	"github.com/cwsl/hackrf-sweepd/internal/tuning"
)

// FakeGenerator produces the synthetic power buffer for one tuning. It
// exists so tests can inject deterministic spectra; the default generator
// returns flat noise.
type FakeGenerator func(centreFreqHz uint64, n int) []float64

// FakeDevice is a synthetic Device used by tests and, per spec.md §9's
// note on simulated sources, by anything that needs a source obeying the
// same Spectrum Bus contract as the real hardware. It is compiled into
// this package without a build tag; cmd/hackrf-sweepd never references
// it and always opens devices through Open.
type FakeDevice struct {
	mu sync.Mutex

	sampleRateHz int
	tuneStepHz   int
	ranges       []TuneRange
	plan         string
	reqBinWidth  float64

	n        int
	binWidth float64

	callback FFTReadyFunc
	streaming bool
	stopCh    chan struct{}
	wg        sync.WaitGroup

	// HopInterval paces synthetic hops; defaults to 5ms if zero.
	HopInterval time.Duration
	// Generate overrides the synthetic spectrum generator.
	Generate FakeGenerator
}

// NewFake constructs a ready-to-configure synthetic device.
func NewFake() *FakeDevice {
	return &FakeDevice{Generate: defaultFakeGenerator}
}

func defaultFakeGenerator(centreFreqHz uint64, n int) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = -90 + rand.Float64()*2
	}
	return p
}

func (f *FakeDevice) SetSampleRate(hz int) error        { f.mu.Lock(); f.sampleRateHz = hz; f.mu.Unlock(); return nil }
func (f *FakeDevice) SetBasebandFilter(hz int) error     { return nil }
func (f *FakeDevice) SetLNAGain(db int) error            { return nil }
func (f *FakeDevice) SetVGAGain(db int) error            { return nil }
func (f *FakeDevice) SetAmpEnable(on bool) error         { return nil }
func (f *FakeDevice) SetAntennaEnable(on bool) error     { return nil }

func (f *FakeDevice) SweepInit(sampleRateHz, tuneStepHz int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sampleRateHz = sampleRateHz
	f.tuneStepHz = tuneStepHz
	return nil
}

func (f *FakeDevice) SweepSetOutput(mode SweepOutputMode) error { return nil }

func (f *FakeDevice) SweepSetRange(ranges []TuneRange) error {
	f.mu.Lock()
	f.ranges = ranges
	f.mu.Unlock()
	return nil
}

func (f *FakeDevice) SweepSetupFFT(plan string, requestedBinWidthHz float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plan = plan
	f.reqBinWidth = requestedBinWidthHz
	f.n, f.binWidth = tuning.EffectiveBinWidth(requestedBinWidthHz)
	return nil
}

func (f *FakeDevice) SweepSetFFTReadyCallback(fn FFTReadyFunc) {
	f.mu.Lock()
	f.callback = fn
	f.mu.Unlock()
}

func (f *FakeDevice) SweepStart(maxSweeps int) error {
	f.mu.Lock()
	if f.streaming {
		f.mu.Unlock()
		return nil
	}
	f.streaming = true
	f.stopCh = make(chan struct{})
	interval := f.HopInterval
	if interval == 0 {
		interval = 5 * time.Millisecond
	}
	f.mu.Unlock()

	f.wg.Add(1)
	go f.stream(maxSweeps, interval)
	return nil
}

func (f *FakeDevice) stream(maxSweeps int, interval time.Duration) {
	defer f.wg.Done()
	sweeps := 0
	for {
		f.mu.Lock()
		ranges := f.ranges
		tuneStep := f.tuneStepHz
		n := f.n
		binWidth := f.binWidth
		cb := f.callback
		gen := f.Generate
		f.mu.Unlock()

		if len(ranges) == 0 || n == 0 || cb == nil {
			return
		}

		for _, r := range ranges {
			loHz := uint64(r.LoMHz) * 1_000_000
			hiHz := uint64(r.HiMHz) * 1_000_000
			for c := loHz + uint64(tuneStep)/2; c < hiHz; c += uint64(tuneStep) {
				select {
				case <-f.stopCh:
					return
				default:
				}
				xfer := Transfer{CentreFreqHz: c, Power: gen(c, n), BinWidthHz: binWidth}
				if cb(xfer) != 0 {
					return
				}
				time.Sleep(interval)
			}
		}
		sweeps++
		if maxSweeps != 0 && sweeps >= maxSweeps {
			return
		}
	}
}

func (f *FakeDevice) SweepStop() error {
	f.mu.Lock()
	if !f.streaming {
		f.mu.Unlock()
		return nil
	}
	close(f.stopCh)
	f.streaming = false
	f.mu.Unlock()
	f.wg.Wait()
	return nil
}

func (f *FakeDevice) SweepClose() error { return nil }

func (f *FakeDevice) ImportWisdom(path string) error { return nil }
func (f *FakeDevice) ExportWisdom(path string) error { return nil }

func (f *FakeDevice) IsStreaming() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streaming
}

func (f *FakeDevice) Close() error { return nil }
