// Package learn implements the Learning Controller (LC): it drives a
// learning session, merging incoming frames into a peak-hold baseline
// across a sweep session (spec.md §4.7).
package learn

import (
	"math"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/interp"

	"github.com/cwsl/hackrf-sweepd/internal/baseline"
	"github.com/cwsl/hackrf-sweepd/internal/frame"
	"github.com/cwsl/hackrf-sweepd/internal/sweepcfg"
)

var negInf = math.Inf(-1)

// historyEntry is one recorded snapshot of the evolving baseline grid.
type historyEntry struct {
	freqs []float64
	max   []float64
}

// Controller drives one learning session. Safe for the Spectrum Bus's
// single-consumer-goroutine contract only: Ingest must be called from one
// goroutine at a time.
type Controller struct {
	mu sync.Mutex

	maxHistory int

	baseFreqs []float64
	baseMax   []float64

	history []historyEntry

	sweepCount  int64
	lastFrame   time.Time
	sweepRateHz float64

	lastMergeNewMaxima int
}

// New creates a Controller that retains at most learningHistory snapshots.
func New(learningHistory int) *Controller {
	if learningHistory <= 0 {
		learningHistory = 1
	}
	return &Controller{maxHistory: learningHistory}
}

// Ingest merges fr into the running baseline, per spec.md §4.7.
func (c *Controller) Ingest(fr frame.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if !c.lastFrame.IsZero() {
		if dt := now.Sub(c.lastFrame).Seconds(); dt > 0 {
			c.sweepRateHz = 1 / dt
		}
	}
	c.lastFrame = now
	c.sweepCount++

	if c.baseFreqs == nil {
		c.baseFreqs = append([]float64(nil), fr.Freqs...)
		c.baseMax = append([]float64(nil), fr.Powers...)
		c.lastMergeNewMaxima = len(fr.Freqs)
	} else if sameGrid(c.baseFreqs, fr.Freqs) {
		newMax := 0
		for i, p := range fr.Powers {
			if p > c.baseMax[i] {
				c.baseMax[i] = p
				newMax++
			}
		}
		c.lastMergeNewMaxima = newMax
	} else {
		c.mergeUnion(fr)
	}

	entry := historyEntry{freqs: append([]float64(nil), c.baseFreqs...), max: append([]float64(nil), c.baseMax...)}
	c.history = append(c.history, entry)
	if len(c.history) > c.maxHistory {
		c.history = c.history[len(c.history)-c.maxHistory:]
	}
}

func sameGrid(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// mergeUnion builds the sorted union of base and incoming frequencies,
// interpolates both onto the union with -inf outside their own support,
// takes the elementwise max, and retains only positions where at least
// one input had finite support (spec.md §4.7).
func (c *Controller) mergeUnion(fr frame.Frame) {
	union := sortedUnion(c.baseFreqs, fr.Freqs)

	baseOnUnion := interpOrNegInf(c.baseFreqs, c.baseMax, union)
	frameOnUnion := interpOrNegInf(fr.Freqs, fr.Powers, union)

	newMax := 0
	outFreqs := make([]float64, 0, len(union))
	outMax := make([]float64, 0, len(union))
	for i, f := range union {
		bv, fv := baseOnUnion[i], frameOnUnion[i]
		if math.IsInf(bv, -1) && math.IsInf(fv, -1) {
			continue
		}
		m := bv
		if fv > m {
			m = fv
			newMax++
		}
		outFreqs = append(outFreqs, f)
		outMax = append(outMax, m)
	}

	c.baseFreqs = outFreqs
	c.baseMax = outMax
	c.lastMergeNewMaxima = newMax
}

func sortedUnion(a, b []float64) []float64 {
	set := make(map[float64]struct{}, len(a)+len(b))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		set[v] = struct{}{}
	}
	out := make([]float64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

// interpOrNegInf linearly interpolates (x, y) onto targets, returning
// -inf for any target outside [x[0], x[len-1]].
func interpOrNegInf(x, y, targets []float64) []float64 {
	out := make([]float64, len(targets))
	n := len(x)
	if n == 0 {
		for i := range out {
			out[i] = negInf
		}
		return out
	}
	if n == 1 {
		for i, t := range targets {
			if t < x[0] || t > x[0] {
				out[i] = negInf
			} else {
				out[i] = y[0]
			}
		}
		return out
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(x, y); err != nil {
		panic(err)
	}
	for i, t := range targets {
		if t < x[0] || t > x[n-1] {
			out[i] = negInf
			continue
		}
		out[i] = pl.Predict(t)
	}
	return out
}

// LastMergeNewMaxima returns how many positions the most recent Ingest
// call raised above the previous baseline.
func (c *Controller) LastMergeNewMaxima() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastMergeNewMaxima
}

// HistoryFull reports whether the rolling history has reached its cap.
func (c *Controller) HistoryFull() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history) >= c.maxHistory
}

// ShouldStop reports the auto-termination condition from spec.md §4.7:
// history full and the last merge produced zero new maxima.
func (c *Controller) ShouldStop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history) >= c.maxHistory && c.lastMergeNewMaxima == 0
}

// SweepCount returns the number of frames ingested this session.
func (c *Controller) SweepCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepCount
}

// SweepRateHz returns the reciprocal of the most recent inter-frame interval.
func (c *Controller) SweepRateHz() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepRateHz
}

// Save persists the learned baseline via the Baseline Store, resampling
// every recorded history snapshot onto the final frequency grid so the
// archive's history rows share a uniform width (spec.md §4.6).
func (c *Controller) Save(path string, radioConfig sweepcfg.SweepConfig, learnDuration time.Duration) error {
	c.mu.Lock()
	freqs := append([]float64(nil), c.baseFreqs...)
	rows := make([][]float64, len(c.history))
	for i, e := range c.history {
		rows[i] = interpClamped(e.freqs, e.max, freqs)
	}
	sweepCount := int(c.sweepCount)
	c.mu.Unlock()

	var stats baseline.Stats
	if len(rows) > 0 {
		stats = statsOf(rows[len(rows)-1])
	}

	meta := baseline.Metadata{
		CreatedAt:      time.Now(),
		RadioConfig:    radioConfig,
		SweepCount:     sweepCount,
		LearnDurationS: learnDuration.Seconds(),
		Stats:          stats,
	}

	return baseline.Save(path, freqs, rows, meta)
}


func interpClamped(x, y, targets []float64) []float64 {
	out := make([]float64, len(targets))
	n := len(x)
	if n == 0 {
		return out
	}
	if n == 1 {
		for i := range out {
			out[i] = y[0]
		}
		return out
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(x, y); err != nil {
		panic(err)
	}
	for i, t := range targets {
		switch {
		case t <= x[0]:
			out[i] = y[0]
		case t >= x[n-1]:
			out[i] = y[n-1]
		default:
			out[i] = pl.Predict(t)
		}
	}
	return out
}

func statsOf(xs []float64) baseline.Stats {
	if len(xs) == 0 {
		return baseline.Stats{}
	}
	min, max, sum := xs[0], xs[0], 0.0
	for _, x := range xs {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
		sum += x
	}
	return baseline.Stats{MinDB: min, MaxDB: max, MeanDB: sum / float64(len(xs))}
}
