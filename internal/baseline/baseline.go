// Package baseline implements the Baseline Store (BS): loading, saving,
// and interpolating per-bin peak-hold baselines with metadata
// (spec.md §4.6).
package baseline

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/interp"

	"github.com/cwsl/hackrf-sweepd/internal/sweepcfg"
	"github.com/cwsl/hackrf-sweepd/internal/sweeperr"
)

// Metadata accompanies a baseline archive, per spec.md §3.
type Metadata struct {
	CreatedAt      time.Time
	RadioConfig    sweepcfg.SweepConfig
	SweepCount     int
	LearnDurationS float64 // wall-clock duration of the learning session, seconds
	Stats          Stats
}

// Stats summarizes a learning session's final baseline.
type Stats struct {
	MinDB, MaxDB, MeanDB float64
}

// Baseline is a loaded, read-only-until-next-learn peak-hold spectrum.
type Baseline struct {
	Freqs    []float64 // sorted ascending, MHz
	MaxPower []float32 // dB, same length as Freqs
	Meta     Metadata
	Loaded   bool

	path string // source file, used by CreateBackup
}

type archive struct {
	Freqs    []float64
	MaxPower []float32
	History  [][]float32 // optional, shape sweeps x bins, for re-analysis
	Meta     Metadata
}

// Save computes max_power = max_over_axis_0(history) and persists freqs,
// max_power, the full history, and meta as a zstd-compressed archive
// (spec.md §4.6, §6).
func Save(path string, freqs []float64, history [][]float64, meta Metadata) error {
	const op = "baseline.Save"

	if len(history) == 0 {
		return sweeperr.New(sweeperr.KindIOWriteFailed, op, "history must have at least one sweep")
	}
	k := len(freqs)
	maxPower := make([]float32, k)
	for i := range maxPower {
		maxPower[i] = float32(negInf)
	}
	for _, sweep := range history {
		for i := 0; i < k && i < len(sweep); i++ {
			if float32(sweep[i]) > maxPower[i] {
				maxPower[i] = float32(sweep[i])
			}
		}
	}

	histF32 := make([][]float32, len(history))
	for i, sweep := range history {
		row := make([]float32, len(sweep))
		for j, v := range sweep {
			row[j] = float32(v)
		}
		histF32[i] = row
	}

	arc := archive{Freqs: freqs, MaxPower: maxPower, History: histF32, Meta: meta}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(arc); err != nil {
		return sweeperr.Wrap(sweeperr.KindIOWriteFailed, op, "encode archive", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return sweeperr.Wrap(sweeperr.KindIOWriteFailed, op, "create zstd encoder", err)
	}
	compressed := enc.EncodeAll(buf.Bytes(), nil)
	enc.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && filepath.Dir(path) != "." {
		return sweeperr.Wrap(sweeperr.KindIOWriteFailed, op, "create directory", err)
	}
	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		return sweeperr.Wrap(sweeperr.KindIOWriteFailed, op, "write archive", err)
	}
	return nil
}

const negInf = -1e300

// Load restores a baseline archive from path.
func Load(path string) (*Baseline, error) {
	const op = "baseline.Load"

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sweeperr.Wrap(sweeperr.KindBaselineMissing, op, "archive not found", err)
		}
		return nil, sweeperr.Wrap(sweeperr.KindBaselineCorrupt, op, "read archive", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, sweeperr.Wrap(sweeperr.KindBaselineCorrupt, op, "create zstd decoder", err)
	}
	defer dec.Close()
	plain, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, sweeperr.Wrap(sweeperr.KindBaselineCorrupt, op, "decompress archive", err)
	}

	var arc archive
	if err := gob.NewDecoder(bytes.NewReader(plain)).Decode(&arc); err != nil {
		return nil, sweeperr.Wrap(sweeperr.KindBaselineCorrupt, op, "decode archive", err)
	}
	if len(arc.Freqs) == 0 || len(arc.Freqs) != len(arc.MaxPower) {
		return nil, sweeperr.New(sweeperr.KindBaselineCorrupt, op, "archive missing required fields")
	}

	return &Baseline{
		Freqs:    arc.Freqs,
		MaxPower: arc.MaxPower,
		Meta:     arc.Meta,
		Loaded:   true,
		path:     path,
	}, nil
}

// jsonExport mirrors archive but with plain numeric lists, for the
// optional side-car export (spec.md §6).
type jsonExport struct {
	Frequencies    []float64 `json:"frequencies"`
	MaxPowerLevels []float32 `json:"max_power_levels"`
	Metadata       Metadata  `json:"metadata"`
}

// ExportJSON writes a plain-JSON side-car with the same frequency and
// power arrays plus metadata.
func (b *Baseline) ExportJSON(path string) error {
	const op = "Baseline.ExportJSON"
	data, err := json.MarshalIndent(jsonExport{Frequencies: b.Freqs, MaxPowerLevels: b.MaxPower, Metadata: b.Meta}, "", "  ")
	if err != nil {
		return sweeperr.Wrap(sweeperr.KindIOWriteFailed, op, "marshal json", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return sweeperr.Wrap(sweeperr.KindIOWriteFailed, op, "write json side-car", err)
	}
	return nil
}

// At returns the nearest-bin baseline value for fMHz iff within two bin
// widths; otherwise ok is false (spec.md §4.6 baseline_at).
func (b *Baseline) At(fMHz float64) (value float64, ok bool) {
	if len(b.Freqs) == 0 {
		return 0, false
	}
	bw := binWidth(b.Freqs)
	idx := nearestIndex(b.Freqs, fMHz)
	if absf(b.Freqs[idx]-fMHz) > 2*bw {
		return 0, false
	}
	return float64(b.MaxPower[idx]), true
}

// InterpolateTo linearly interpolates MaxPower onto target, clamping to
// the nearest endpoint outside the baseline's span (spec.md §4.6).
func (b *Baseline) InterpolateTo(target []float64) []float64 {
	out := make([]float64, len(target))
	n := len(b.Freqs)
	if n == 0 {
		return out
	}
	if n == 1 {
		for i := range out {
			out[i] = float64(b.MaxPower[0])
		}
		return out
	}

	ys := make([]float64, n)
	for i, p := range b.MaxPower {
		ys[i] = float64(p)
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(b.Freqs, ys); err != nil {
		// Freqs is guaranteed strictly increasing by the Tile Reassembler;
		// a Fit failure here means a corrupt archive slipped past Load.
		panic(err)
	}

	for i, tf := range target {
		switch {
		case tf <= b.Freqs[0]:
			out[i] = float64(b.MaxPower[0])
		case tf >= b.Freqs[n-1]:
			out[i] = float64(b.MaxPower[n-1])
		default:
			out[i] = pl.Predict(tf)
		}
	}
	return out
}

// Covers reports whether the baseline's span covers [fMin, fMax] within
// one bin's tolerance (spec.md §4.6).
func (b *Baseline) Covers(fMin, fMax float64) bool {
	n := len(b.Freqs)
	if n < 2 {
		return false
	}
	tol := (b.Freqs[n-1] - b.Freqs[0]) / float64(n-1)
	return (b.Freqs[0]-fMin) <= tol && (fMax-b.Freqs[n-1]) <= tol
}

// CreateBackup duplicates the baseline's source file with a
// timestamp-derived suffix (or the given suffix, if non-empty),
// per spec.md §4.6 and §6.
func (b *Baseline) CreateBackup(suffix string) (string, error) {
	const op = "Baseline.CreateBackup"
	if b.path == "" {
		return "", sweeperr.New(sweeperr.KindIOWriteFailed, op, "baseline has no source path")
	}
	if suffix == "" {
		suffix = time.Now().Format("20060102_150405")
	}
	ext := filepath.Ext(b.path)
	base := strings.TrimSuffix(b.path, ext)
	dst := fmt.Sprintf("%s_backup_%s%s", base, suffix, ext)

	data, err := os.ReadFile(b.path)
	if err != nil {
		return "", sweeperr.Wrap(sweeperr.KindIOWriteFailed, op, "read source", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", sweeperr.Wrap(sweeperr.KindIOWriteFailed, op, "write backup", err)
	}
	return dst, nil
}

func binWidth(freqs []float64) float64 {
	if len(freqs) < 2 {
		return 0
	}
	return (freqs[len(freqs)-1] - freqs[0]) / float64(len(freqs)-1)
}

func nearestIndex(freqs []float64, f float64) int {
	j := sort.Search(len(freqs), func(k int) bool { return freqs[k] >= f })
	if j == 0 {
		return 0
	}
	if j == len(freqs) {
		return len(freqs) - 1
	}
	if absf(freqs[j]-f) < absf(freqs[j-1]-f) {
		return j
	}
	return j - 1
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
