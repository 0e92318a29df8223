// Package wisdom wraps the Radio Driver Facade's FFT-plan wisdom
// import/export path handling (spec.md §4.1).
package wisdom

import (
	"os"

	"github.com/cwsl/hackrf-sweepd/internal/radio"
)

// ImportIfPresent loads wisdom from path into dev iff the file exists.
// A missing wisdom file is not an error: the native FFT planner simply
// plans from scratch.
func ImportIfPresent(dev radio.Device, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return dev.ImportWisdom(path)
}

// Export saves dev's current FFT plan wisdom to path, if a path is configured.
func Export(dev radio.Device, path string) error {
	if path == "" {
		return nil
	}
	return dev.ExportWisdom(path)
}
