// Package control implements the monitoring-mode keyboard control surface
// from spec.md §6: +/- adjust the threshold, r resets it, s snapshots
// statistics, q quits.
package control

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
)

// Action is one recognized keypress.
type Action int

const (
	ActionNone Action = iota
	ActionIncreaseThreshold
	ActionDecreaseThreshold
	ActionResetThreshold
	ActionStats
	ActionQuit
)

// Decode maps a single input byte to an Action.
func Decode(b byte) Action {
	switch b {
	case '+', '=':
		return ActionIncreaseThreshold
	case '-':
		return ActionDecreaseThreshold
	case 'r':
		return ActionResetThreshold
	case 's':
		return ActionStats
	case 'q':
		return ActionQuit
	default:
		return ActionNone
	}
}

// Watch reads single-byte keypresses from r and delivers decoded Actions
// to handle until ctx is cancelled or r returns EOF. It is meant to run
// as a detached daemon goroutine: the caller does not wait for it, and
// its exit must never block process shutdown (spec.md §5).
func Watch(ctx context.Context, r io.Reader, handle func(Action)) {
	reader := bufio.NewReader(r)
	actions := make(chan Action)

	go func() {
		defer close(actions)
		for {
			b, err := reader.ReadByte()
			if err != nil {
				return
			}
			if a := Decode(b); a != ActionNone {
				select {
				case actions <- a:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-actions:
			if !ok {
				return
			}
			handle(a)
		}
	}
}

// Apply mutates threshold per a +/-/r action, floored at 1 dB, and
// reports whether it recognized the action as a threshold change.
func Apply(a Action, current, configDefault float64) (next float64, handled bool) {
	switch a {
	case ActionIncreaseThreshold:
		return current + 1, true
	case ActionDecreaseThreshold:
		next = current - 1
		if next < 1 {
			next = 1
		}
		return next, true
	case ActionResetThreshold:
		return configDefault, true
	default:
		return current, false
	}
}

// PrintStatsHeader writes a one-line statistics snapshot, grounded on the
// teacher's plain log.Printf status lines.
func PrintStatsHeader(sweepCount int64, sweepRateHz, threshold float64, activeAlerts, totalAlerts int) {
	log.Printf("sweeps=%d rate=%.2f/s threshold=%.1fdB active_alerts=%d total_alerts=%d",
		sweepCount, sweepRateHz, threshold, activeAlerts, totalAlerts)
}

// FormatAlertLine renders an immediate alert line per spec.md §7.
func FormatAlertLine(freqMHz, signalDB, deltaBase, deltaThresh float64, precisionDigits int) string {
	format := fmt.Sprintf("%%.%df MHz: signal=%%.1fdB  +%%.1fdB over baseline  +%%.1fdB over threshold", precisionDigits)
	return fmt.Sprintf(format, freqMHz, signalDB, deltaBase, deltaThresh)
}
