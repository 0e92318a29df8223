// Package monitor implements the Monitoring Controller (MC): it compares
// each frame to baseline+threshold, tracks alert lifetimes, and emits
// alert events (spec.md §4.8).
package monitor

import (
	"sync"
	"time"

	"github.com/cwsl/hackrf-sweepd/internal/alert"
	"github.com/cwsl/hackrf-sweepd/internal/baseline"
	"github.com/cwsl/hackrf-sweepd/internal/frame"
	"github.com/cwsl/hackrf-sweepd/internal/sweeperr"
)

// RetireAfter is how long without a crossing before an active alert is
// retired (spec.md §3, §4.8).
const RetireAfter = 5 * time.Second

// Event is emitted immediately on every threshold crossing, independent
// of whether the alert will eventually qualify for history (spec.md §9's
// distinction between immediate display and history recording).
type Event struct {
	Alert        alert.Alert
	IsNew        bool
	DeltaBase    float64 // signal power above baseline
	DeltaThresh  float64 // signal power above threshold
}

// Controller drives one monitoring session against a loaded baseline.
type Controller struct {
	mu sync.Mutex

	base *baseline.Baseline

	defaultThresholdDB float64
	thresholdDB        float64
	minDetectionS       float64

	active  map[alert.Key]*alert.Alert
	history []alert.Alert
	total   int

	now func() time.Time
}

// New validates baseline coverage against [fMin, fMax] and returns a
// ready Controller, or CoverageInsufficient per spec.md §4.8.
func New(base *baseline.Baseline, fMin, fMax, defaultThresholdDB, minDetectionS float64) (*Controller, error) {
	if base == nil || !base.Covers(fMin, fMax) {
		return nil, sweeperr.New(sweeperr.KindCoverageInsufficient, "monitor.New", "baseline does not cover requested range")
	}
	return &Controller{
		base:               base,
		defaultThresholdDB: defaultThresholdDB,
		thresholdDB:        defaultThresholdDB,
		minDetectionS:      minDetectionS,
		active:             make(map[alert.Key]*alert.Alert),
		now:                time.Now,
	}, nil
}

// UpdateThreshold mutates the threshold buffer for all subsequent frames
// (spec.md §4.8, §5: visible no later than the next frame after return).
func (c *Controller) UpdateThreshold(db float64) {
	c.mu.Lock()
	c.thresholdDB = db
	c.mu.Unlock()
}

// ResetThreshold restores the configured default.
func (c *Controller) ResetThreshold() {
	c.mu.Lock()
	c.thresholdDB = c.defaultThresholdDB
	c.mu.Unlock()
}

// Threshold returns the currently effective threshold buffer.
func (c *Controller) Threshold() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thresholdDB
}

// Ingest evaluates fr against baseline+threshold, updates alert state,
// and returns the events raised by this frame (spec.md §4.8).
func (c *Controller) Ingest(fr frame.Frame) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	baseHere := c.base.InterpolateTo(fr.Freqs)

	var events []Event
	for k, p := range fr.Powers {
		thr := baseHere[k] + c.thresholdDB
		if p <= thr {
			continue
		}
		key := alert.KeyFor(fr.Freqs[k])
		a, exists := c.active[key]
		if !exists {
			a = &alert.Alert{
				Key:               key,
				FreqMHz:           fr.Freqs[k],
				MaxPowerDB:        p,
				BaselineDB:        baseHere[k],
				ThresholdBufferDB: c.thresholdDB,
				FirstSeen:         now,
				LastSeen:          now,
				Count:             1,
			}
			c.active[key] = a
		} else {
			if p > a.MaxPowerDB {
				a.MaxPowerDB = p
			}
			a.LastSeen = now
			a.Count++
		}
		events = append(events, Event{
			Alert:       *a,
			IsNew:       !exists,
			DeltaBase:   p - baseHere[k],
			DeltaThresh: p - thr,
		})
	}

	c.retireStale(now)
	return events
}

func (c *Controller) retireStale(now time.Time) {
	for key, a := range c.active {
		if now.Sub(a.LastSeen) >= RetireAfter {
			delete(c.active, key)
			if a.Duration().Seconds() >= c.minDetectionS {
				c.history = append(c.history, *a)
				c.total++
			}
		}
	}
}

// ActiveAlerts returns a snapshot of currently active alerts.
func (c *Controller) ActiveAlerts() []alert.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]alert.Alert, 0, len(c.active))
	for _, a := range c.active {
		out = append(out, *a)
	}
	return out
}

// History returns the retired alerts that met the minimum-duration policy.
func (c *Controller) History() []alert.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]alert.Alert(nil), c.history...)
}

// TotalAlerts returns the count of alerts promoted to history.
func (c *Controller) TotalAlerts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}
