// Package radio is the Radio Driver Facade (RDF): a narrow, strongly-typed
// binding over the native wideband-front-end sweep library described in
// spec.md §4.1 and §6. It hides the C ABI behind a Go interface so the rest
// of the core never touches cgo types directly.
package radio

import "github.com/cwsl/hackrf-sweepd/internal/sweeperr"

// StatusCode is the integer status every native call returns. Zero is
// success; negative values map to a failure category.
type StatusCode int

const (
	StatusSuccess StatusCode = 0

	statusErrInvalidParam    StatusCode = -2
	statusErrNotFound        StatusCode = -5
	statusErrBusy            StatusCode = -6
	statusErrNoMem           StatusCode = -11
	statusErrLibUSB          StatusCode = -1000
	statusErrThread          StatusCode = -1001
	statusErrStreamingThread StatusCode = -1002
	statusErrStreamingStopped StatusCode = -1003
	statusErrSweepRange      StatusCode = -9998
	statusErrOther           StatusCode = -9999
)

// AsError maps a native status code to the core's error taxonomy. It
// returns nil for StatusSuccess.
func AsError(op string, code StatusCode) error {
	if code == StatusSuccess {
		return nil
	}
	switch code {
	case statusErrNotFound, statusErrBusy, statusErrLibUSB:
		return sweeperr.New(sweeperr.KindRadioUnavailable, op, "device unavailable")
	case statusErrSweepRange, statusErrInvalidParam, statusErrNoMem:
		return sweeperr.New(sweeperr.KindRadioSetupFailed, op, "setup call rejected")
	case statusErrThread, statusErrStreamingThread, statusErrStreamingStopped:
		return sweeperr.New(sweeperr.KindSweepRuntimeFailed, op, "streaming thread failure")
	default:
		return sweeperr.New(sweeperr.KindRadioSetupFailed, op, "unknown native status")
	}
}

// SweepOutputMode selects how the native sweep delivers data. The core
// only ever uses binary/NOP: data is delivered exclusively through the
// FFT-ready callback, never through a file sink.
type SweepOutputMode int

const (
	OutputModeBinary SweepOutputMode = iota
	OutputModeNOP
)

// TuneRange is a 16-bit-MHz tuning bound, mirroring the native ABI layout.
type TuneRange struct {
	LoMHz uint16
	HiMHz uint16
}

// Transfer is the FFT-ready callback payload: a reference to the native
// power buffer plus the tuning's centre frequency. The core must copy
// Power before returning, since the native library owns and may mutate
// the buffer once the callback returns (spec.md §5).
type Transfer struct {
	CentreFreqHz uint64
	// Power holds N float64 dB values computed by the native library's
	// window+FFT stage. It mirrors the native struct fields `size`,
	// `bin_width`, `pwr` (spec.md §6).
	Power    []float64
	BinWidthHz float64
}

// FFTReadyFunc is invoked once per processed IQ block on the native
// streaming thread. Returning nonzero stops the sweep.
type FFTReadyFunc func(xfer Transfer) int

// Device is the typed sweep session surface the core drives. A concrete
// implementation wraps the native shared library (see hackrf_cgo.go,
// built only with the hackrf_cgo tag) or is a synthetic source for tests
// (see fake.go).
type Device interface {
	// SetSampleRate configures the IQ sample rate in Hz. It takes no
	// divisor; no output decimation is configured.
	SetSampleRate(hz int) error
	// SetBasebandFilter configures the baseband filter bandwidth.
	SetBasebandFilter(hz int) error
	// SetLNAGain sets the LNA gain in dB (0-40, step 8).
	SetLNAGain(db int) error
	// SetVGAGain sets the VGA gain in dB (0-62, step 2).
	SetVGAGain(db int) error
	// SetAmpEnable toggles the front-end amplifier.
	SetAmpEnable(on bool) error
	// SetAntennaEnable toggles antenna bias power.
	SetAntennaEnable(on bool) error

	// SweepInit initializes sweep state for the given sample rate and tune step.
	SweepInit(sampleRateHz, tuneStepHz int) error
	// SweepSetOutput selects binary/NOP output; data flows through the callback.
	SweepSetOutput(mode SweepOutputMode) error
	// SweepSetRange installs the tuning range list.
	SweepSetRange(ranges []TuneRange) error
	// SweepSetupFFT configures the FFT plan and requested bin width.
	SweepSetupFFT(plan string, requestedBinWidthHz float64) error
	// SweepSetFFTReadyCallback registers the per-block callback.
	SweepSetFFTReadyCallback(fn FFTReadyFunc)
	// SweepStart begins streaming. maxSweeps == 0 means infinite.
	SweepStart(maxSweeps int) error
	// SweepStop requests the streaming thread to exit.
	SweepStop() error
	// SweepClose releases sweep state.
	SweepClose() error

	// ImportWisdom loads precomputed FFT plan data from path, if present.
	ImportWisdom(path string) error
	// ExportWisdom saves FFT plan data to path.
	ExportWisdom(path string) error

	// IsStreaming reports whether the native streaming thread is active.
	IsStreaming() bool

	// Close releases the device handle.
	Close() error
}

// Open claims a device, optionally by serial number. init() + open() from
// spec.md §4.1 are folded into this single call; Close releases both the
// device and library state (deinit).
func Open(serial string) (Device, error) {
	return openNative(serial)
}
