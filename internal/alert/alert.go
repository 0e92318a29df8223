// Package alert defines the per-frequency-key alert record and its
// lifecycle, per spec.md §3.
package alert

import "time"

// Key quantizes a frequency to 0.01 MHz granularity, per spec.md §4.8.
type Key int64

// KeyFor quantizes fMHz to a Key.
func KeyFor(fMHz float64) Key {
	return Key(round(fMHz*100)) // 2 decimal places
}

func round(x float64) int64 {
	if x >= 0 {
		return int64(x + 0.5)
	}
	return int64(x - 0.5)
}

// MHz returns the quantized frequency represented by k.
func (k Key) MHz() float64 {
	return float64(k) / 100
}

// Alert is an ongoing or completed threshold crossing at one frequency key.
type Alert struct {
	Key Key

	FreqMHz         float64
	MaxPowerDB      float64 // running maximum observed power
	BaselineDB      float64 // baseline power at first detection
	ThresholdBufferDB float64 // threshold buffer in force at first detection

	FirstSeen time.Time
	LastSeen  time.Time
	Count     int
}

// Duration returns the alert's observed lifetime.
func (a Alert) Duration() time.Duration {
	return a.LastSeen.Sub(a.FirstSeen)
}
