//go:build hackrf_cgo

// This file binds the native wideband front-end sweep library via cgo. It
// is excluded from ordinary builds/tests (build tag hackrf_cgo) so the
// core can be developed and tested without the vendor SDK installed.
package radio

/*
#cgo LDFLAGS: -lhackrf
#include <stdlib.h>
#include <libhackrf/hackrf.h>

// No fft_ready trampoline forwarding native callbacks into Go is part of
// this binding; the sweep calls below return errNotImplemented.
*/
import "C"

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/cwsl/hackrf-sweepd/internal/sweeperr"
)

// nativeDevice wraps a *C.hackrf_device and the sweep state created atop it.
type nativeDevice struct {
	mu       sync.Mutex
	dev      *C.hackrf_device
	sweep    *C.hackrf_sweep_state // opaque; mirrors native struct layout
	callback FFTReadyFunc
	n        int
	binWidth float64
}

func openNative(serial string) (Device, error) {
	if err := C.hackrf_init(); err != C.HACKRF_SUCCESS {
		return nil, AsError("hackrf_init", StatusCode(err))
	}

	var dev *C.hackrf_device
	var cErr C.int
	if serial != "" {
		cSerial := C.CString(serial)
		defer C.free(unsafe.Pointer(cSerial))
		cErr = C.hackrf_open_by_serial(cSerial, &dev)
	} else {
		cErr = C.hackrf_open(&dev)
	}
	if cErr != C.HACKRF_SUCCESS {
		return nil, AsError("hackrf_open", StatusCode(cErr))
	}

	return &nativeDevice{dev: dev}, nil
}

func (d *nativeDevice) SetSampleRate(hz int) error {
	return AsError("hackrf_set_sample_rate", StatusCode(C.hackrf_set_sample_rate(d.dev, C.double(hz))))
}

func (d *nativeDevice) SetBasebandFilter(hz int) error {
	return AsError("hackrf_set_baseband_filter_bandwidth", StatusCode(C.hackrf_set_baseband_filter_bandwidth(d.dev, C.uint32_t(hz))))
}

func (d *nativeDevice) SetLNAGain(db int) error {
	return AsError("hackrf_set_lna_gain", StatusCode(C.hackrf_set_lna_gain(d.dev, C.uint32_t(db))))
}

func (d *nativeDevice) SetVGAGain(db int) error {
	return AsError("hackrf_set_vga_gain", StatusCode(C.hackrf_set_vga_gain(d.dev, C.uint32_t(db))))
}

func (d *nativeDevice) SetAmpEnable(on bool) error {
	return AsError("hackrf_set_amp_enable", StatusCode(C.hackrf_set_amp_enable(d.dev, cBool(on))))
}

func (d *nativeDevice) SetAntennaEnable(on bool) error {
	return AsError("hackrf_set_antenna_enable", StatusCode(C.hackrf_set_antenna_enable(d.dev, cBool(on))))
}

func (d *nativeDevice) SweepInit(sampleRateHz, tuneStepHz int) error {
	return fmt.Errorf("native sweep_init requires vendor SDK shim: %w", errNotImplemented)
}

func (d *nativeDevice) SweepSetOutput(mode SweepOutputMode) error {
	return fmt.Errorf("native sweep_set_output requires vendor SDK shim: %w", errNotImplemented)
}

func (d *nativeDevice) SweepSetRange(ranges []TuneRange) error {
	return fmt.Errorf("native sweep_set_range requires vendor SDK shim: %w", errNotImplemented)
}

func (d *nativeDevice) SweepSetupFFT(plan string, requestedBinWidthHz float64) error {
	return fmt.Errorf("native sweep_setup_fft requires vendor SDK shim: %w", errNotImplemented)
}

func (d *nativeDevice) SweepSetFFTReadyCallback(fn FFTReadyFunc) {
	d.mu.Lock()
	d.callback = fn
	d.mu.Unlock()
}

func (d *nativeDevice) SweepStart(maxSweeps int) error {
	return fmt.Errorf("native sweep_start requires vendor SDK shim: %w", errNotImplemented)
}

func (d *nativeDevice) SweepStop() error {
	return fmt.Errorf("native sweep_stop requires vendor SDK shim: %w", errNotImplemented)
}

func (d *nativeDevice) SweepClose() error {
	return nil
}

func (d *nativeDevice) ImportWisdom(path string) error {
	return nil
}

func (d *nativeDevice) ExportWisdom(path string) error {
	return nil
}

func (d *nativeDevice) IsStreaming() bool {
	return false
}

func (d *nativeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return nil
	}
	err := AsError("hackrf_close", StatusCode(C.hackrf_close(d.dev)))
	d.dev = nil
	C.hackrf_exit()
	return err
}

var errNotImplemented = sweeperr.New(sweeperr.KindRadioSetupFailed, "hackrf_cgo", "vendor SDK shim not linked in this reference build")

func cBool(b bool) C.uint8_t {
	if b {
		return 1
	}
	return 0
}

// decodeFFTTransfer mirrors the native struct layout the core reads per
// spec.md §6: `size` (bin count), `bin_width` (Hz, float64), `pwr`
// (pointer to size float64 dB values). Kept as a standalone decoder (not
// using cgo struct field access) to document the exact byte layout
// expected from the vendor FFT context.
func decodeFFTTransfer(raw unsafe.Pointer, length int) Transfer {
	buf := unsafe.Slice((*byte)(raw), length)
	size := int(binary.LittleEndian.Uint64(buf[0:8]))
	binWidth := math.Float64frombits(binary.LittleEndian.Uint64(buf[8:16]))
	pwr := make([]float64, size)
	for i := 0; i < size; i++ {
		bits := binary.LittleEndian.Uint64(buf[16+i*8 : 24+i*8])
		pwr[i] = math.Float64frombits(bits)
	}
	return Transfer{Power: pwr, BinWidthHz: binWidth}
}
