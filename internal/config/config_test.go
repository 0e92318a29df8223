package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalValidYAML = `
spectrum:
  freq_min_mhz: 100
  freq_max_mhz: 200
  bin_width: 1000000
hackrf:
  lna_gain: 16
  vga_gain: 20
`

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, minimalValidYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "measure", cfg.HackRF.PlanStrategy)
	assert.Equal(t, 1.0, cfg.Monitoring.UpdateRateHz)
	assert.Equal(t, 100, cfg.Storage.LearningHistory)
	assert.Equal(t, "baseline.bin", cfg.Storage.BaselineFile)
	assert.Equal(t, 3, cfg.Display.PrecisionDigits)
	assert.Equal(t, 2048, cfg.Performance.MaxDisplayPoints)
	assert.Equal(t, 1, cfg.Performance.ProcessingThreads)
}

func TestLoad_CreatesDataDirectory(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data", "nested")
	body := minimalValidYAML + "storage:\n  data_directory: " + dataDir + "\n"
	path := writeConfig(t, body)

	_, err := Load(path)
	require.NoError(t, err)
	info, err := os.Stat(dataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "spectrum: [this is not a mapping")
	_, err := Load(path)
	require.Error(t, err)
}

func validConfig() Config {
	return Config{
		Spectrum: SpectrumConfig{FreqMinMHz: 100, FreqMaxMHz: 200, BinWidth: 1_000_000},
		HackRF:   HackRFConfig{LNAGainDB: 16, VGAGainDB: 20, PlanStrategy: "measure"},
		Monitoring: MonitoringConfig{
			ThresholdBufferDB: 10, UpdateRateHz: 1, MinDetectionDurationS: 0,
		},
		Storage:     StorageConfig{LearningHistory: 100},
		Performance: PerformanceConfig{MaxDisplayPoints: 2048, ProcessingThreads: 1},
	}
}

func TestValidate_AcceptsValidConfig(t *testing.T) {
	c := validConfig()
	assert.NoError(t, c.Validate())
}

func TestValidate_RejectsFreqRange(t *testing.T) {
	c := validConfig()
	c.Spectrum.FreqMaxMHz = c.Spectrum.FreqMinMHz
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Spectrum.FreqMaxMHz = 8000
	assert.Error(t, c.Validate(), "above the 7250 MHz HackRF ceiling")

	c = validConfig()
	c.Spectrum.FreqMinMHz = -1
	assert.Error(t, c.Validate())
}

func TestValidate_RejectsBinWidthOutOfRange(t *testing.T) {
	c := validConfig()
	c.Spectrum.BinWidth = 100_000 // below 245kHz floor
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Spectrum.BinWidth = 6_000_000 // above 5MHz ceiling
	assert.Error(t, c.Validate())
}

func TestValidate_GainMustAlignToStep(t *testing.T) {
	c := validConfig()
	c.HackRF.LNAGainDB = 5 // not a multiple of 8
	assert.Error(t, c.Validate())

	c = validConfig()
	c.HackRF.VGAGainDB = 3 // not a multiple of 2
	assert.Error(t, c.Validate())

	c = validConfig()
	c.HackRF.LNAGainDB = 48 // above the 40dB ceiling
	assert.Error(t, c.Validate())
}

func TestValidate_RejectsUnknownPlanStrategy(t *testing.T) {
	c := validConfig()
	c.HackRF.PlanStrategy = "bogus"
	assert.Error(t, c.Validate())
}

func TestValidate_RejectsNonPositiveRates(t *testing.T) {
	c := validConfig()
	c.Monitoring.UpdateRateHz = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Storage.LearningHistory = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Performance.MaxDisplayPoints = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Performance.ProcessingThreads = 0
	assert.Error(t, c.Validate())
}

func TestValidateGainStep(t *testing.T) {
	assert.NoError(t, validateGainStep(16, 0, 40, 8))
	assert.NoError(t, validateGainStep(0, 0, 40, 8))
	assert.NoError(t, validateGainStep(40, 0, 40, 8))
	assert.Error(t, validateGainStep(-8, 0, 40, 8))
	assert.Error(t, validateGainStep(41, 0, 40, 8))
	assert.Error(t, validateGainStep(5, 0, 40, 8))
}
