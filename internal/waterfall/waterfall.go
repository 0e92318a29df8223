// Package waterfall implements the Waterfall Engine (WE): it ingests
// spectrum frames at one cadence and emits time-averaged display rows at
// another, scrolling a [H][T] pixel grid (spec.md §4.5).
package waterfall

import (
	"math"
	"sync"
	"time"
)

// Engine owns a [H][T] grid of f32 power values. H is the frequency axis
// (display rows), T is the time axis (display columns); the newest
// committed row lives at column T-1.
type Engine struct {
	mu sync.Mutex

	h, t           int
	historySeconds float64
	updateRateHz   float64
	deltaT         time.Duration

	grid [][]float32 // grid[row][col]

	accum []float64
	count int

	lastRowTime   time.Time
	rowsCommitted int

	levelMin, levelMax float64

	now func() time.Time
}

// New creates an Engine sized from the available display area, per
// spec.md §4.5: H = displayHeightPx - margin, T = round(historySeconds *
// updateRateHz).
func New(displayHeightPx, margin int, historySeconds, updateRateHz float64) *Engine {
	e := &Engine{now: time.Now}
	e.resize(displayHeightPx, margin, historySeconds, updateRateHz)
	return e
}

func (e *Engine) resize(displayHeightPx, margin int, historySeconds, updateRateHz float64) {
	h := displayHeightPx - margin
	if h < 1 {
		h = 1
	}
	t := int(math.Round(historySeconds * updateRateHz))
	if t < 1 {
		t = 1
	}

	e.h = h
	e.t = t
	e.historySeconds = historySeconds
	e.updateRateHz = updateRateHz
	e.deltaT = time.Duration(historySeconds / float64(h) * float64(time.Second))

	newGrid := make([][]float32, h)
	for i := range newGrid {
		newGrid[i] = make([]float32, t)
	}

	if e.grid != nil {
		copyRows := min(len(e.grid), h)
		copyCols := min(len(e.grid[0]), t)
		for r := 0; r < copyRows; r++ {
			oldRow := e.grid[r]
			srcStart := len(oldRow) - copyCols
			dstStart := t - copyCols
			copy(newGrid[r][dstStart:], oldRow[srcStart:])
		}
	}

	e.grid = newGrid
	e.accum = make([]float64, h)
	e.count = 0
}

// Reconfigure resizes the grid when H, T, history or update rate change,
// preserving the rightmost min(T_old, T_new) columns of the top
// min(H_old, H_new) rows (spec.md §4.5).
func (e *Engine) Reconfigure(displayHeightPx, margin int, historySeconds, updateRateHz float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resize(displayHeightPx, margin, historySeconds, updateRateHz)
	e.lastRowTime = e.now()
}

// Dimensions returns the current grid size.
func (e *Engine) Dimensions() (h, t int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.h, e.t
}

// Ingest resamples powers to H and accumulates it into the in-progress
// row; when enough wall time has elapsed it commits and scrolls a row.
func (e *Engine) Ingest(powers []float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(powers) == 0 {
		return
	}
	resampled := resample(powers, e.h)
	for i, v := range resampled {
		e.accum[i] += v
	}
	e.count++

	if e.lastRowTime.IsZero() {
		e.lastRowTime = e.now()
		return
	}

	if e.now().Sub(e.lastRowTime) >= e.deltaT {
		e.commitRow()
	}
}

func (e *Engine) commitRow() {
	row := make([]float32, e.h)
	if e.count > 0 {
		for i := range row {
			row[i] = float32(e.accum[i] / float64(e.count))
		}
	}

	for r := 0; r < e.h; r++ {
		copy(e.grid[r], e.grid[r][1:])
		e.grid[r][e.t-1] = row[r]
	}

	for i := range e.accum {
		e.accum[i] = 0
	}
	e.count = 0
	e.lastRowTime = e.now()
	e.rowsCommitted++

	if e.rowsCommitted%20 == 0 {
		e.recomputeLevels()
	}
}

func (e *Engine) recomputeLevels() {
	window := min(50, e.t)
	if window == 0 {
		return
	}
	start := e.t - window
	min32 := float32(math.Inf(1))
	max32 := float32(math.Inf(-1))
	for r := 0; r < e.h; r++ {
		for c := start; c < e.t; c++ {
			v := e.grid[r][c]
			if v < min32 {
				min32 = v
			}
			if v > max32 {
				max32 = v
			}
		}
	}
	e.levelMin = float64(min32) - 5
	e.levelMax = float64(max32) + 5
}

// Levels returns the current auto-ranged colour levels.
func (e *Engine) Levels() (min, max float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.levelMin, e.levelMax
}

// Snapshot returns a defensive copy of the grid, row-major [H][T].
func (e *Engine) Snapshot() [][]float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]float32, e.h)
	for r := range out {
		out[r] = append([]float32(nil), e.grid[r]...)
	}
	return out
}

// resample maps src (length len(src)) onto dst of length n using
// idx[i] = round(i*(len-1)/(n-1)), per spec.md §4.5.
func resample(src []float64, n int) []float64 {
	out := make([]float64, n)
	srcLen := len(src)
	if srcLen == 0 {
		return out
	}
	if n == 1 {
		out[0] = src[srcLen-1]
		return out
	}
	for i := 0; i < n; i++ {
		idx := int(math.Round(float64(i) * float64(srcLen-1) / float64(n-1)))
		if idx < 0 {
			idx = 0
		}
		if idx > srcLen-1 {
			idx = srcLen - 1
		}
		out[i] = src[idx]
	}
	return out
}
