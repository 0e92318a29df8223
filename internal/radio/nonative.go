//go:build !hackrf_cgo

package radio

import "github.com/cwsl/hackrf-sweepd/internal/sweeperr"

func openNative(serial string) (Device, error) {
	return nil, sweeperr.New(sweeperr.KindRadioUnavailable, "radio.Open",
		"built without the hackrf_cgo tag; no native binding available")
}
