// Package config loads and validates the YAML configuration document
// described in spec.md §6.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwsl/hackrf-sweepd/internal/sweeperr"
)

// Config is the top-level configuration document.
type Config struct {
	Spectrum    SpectrumConfig    `yaml:"spectrum"`
	HackRF      HackRFConfig      `yaml:"hackrf"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
	Storage     StorageConfig     `yaml:"storage"`
	Display     DisplayConfig     `yaml:"display"`
	Performance PerformanceConfig `yaml:"performance"`
	Prometheus  PrometheusConfig  `yaml:"prometheus"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
}

// SpectrumConfig is the `spectrum` section.
type SpectrumConfig struct {
	FreqMinMHz float64 `yaml:"freq_min_mhz"`
	FreqMaxMHz float64 `yaml:"freq_max_mhz"`
	BinWidth   float64 `yaml:"bin_width"`
}

// HackRFConfig is the `hackrf` section.
type HackRFConfig struct {
	LNAGainDB      int    `yaml:"lna_gain"`
	VGAGainDB      int    `yaml:"vga_gain"`
	AmpEnable      bool   `yaml:"amp_enable"`
	AntennaEnable  bool   `yaml:"antenna_enable"`
	OneShot        bool   `yaml:"one_shot"`
	SerialNumber   string `yaml:"serial_number"`
	DCSpikeRemoval bool   `yaml:"dc_spike_removal"`
	DCSpikeWidth   int    `yaml:"dc_spike_width"`
	PlanStrategy   string `yaml:"plan_strategy"`
	WisdomPath     string `yaml:"wisdom_path"`
}

// MonitoringConfig is the `monitoring` section.
type MonitoringConfig struct {
	ThresholdBufferDB     float64 `yaml:"threshold_buffer_db"`
	UpdateRateHz          float64 `yaml:"update_rate_hz"`
	MinDetectionDurationS float64 `yaml:"min_detection_duration_s"`
}

// StorageConfig is the `storage` section.
type StorageConfig struct {
	BaselineFile    string `yaml:"baseline_file"`
	LearningHistory int    `yaml:"learning_history"`
	DataDirectory   string `yaml:"data_directory"`
}

// DisplayConfig is the `display` section.
type DisplayConfig struct {
	ShowFrequencyMHz bool `yaml:"show_frequency_mhz"`
	PrecisionDigits  int  `yaml:"precision_digits"`
	PowerPrecision   int  `yaml:"power_precision"`
	AlertBeep        bool `yaml:"alert_beep"`
}

// PerformanceConfig is the `performance` section.
type PerformanceConfig struct {
	MaxDisplayPoints int `yaml:"max_display_points"`
	ProcessingThreads int `yaml:"processing_threads"`
}

// PrometheusConfig enables/points metrics export. Not named in spec.md §6
// but carried per the ambient-stack requirement; absent entirely disables it.
type PrometheusConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
	PushGateway string `yaml:"push_gateway"`
	Job         string `yaml:"job"`
}

// MQTTConfig enables/points optional alert publication.
type MQTTConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Broker     string `yaml:"broker"`
	ClientID   string `yaml:"client_id"`
	TopicAlert string `yaml:"topic_alert"`
	TopicStatus string `yaml:"topic_status"`
}

// Load reads and validates a configuration document from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sweeperr.Wrap(sweeperr.KindConfigInvalid, "config.Load", "read config file", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, sweeperr.Wrap(sweeperr.KindConfigInvalid, "config.Load", "parse yaml", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.DataDirectory != "" {
		if err := os.MkdirAll(cfg.Storage.DataDirectory, 0o755); err != nil {
			return nil, sweeperr.Wrap(sweeperr.KindConfigInvalid, "config.Load", "create data directory", err)
		}
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HackRF.PlanStrategy == "" {
		cfg.HackRF.PlanStrategy = "measure"
	}
	if cfg.Monitoring.UpdateRateHz == 0 {
		cfg.Monitoring.UpdateRateHz = 1
	}
	if cfg.Storage.LearningHistory == 0 {
		cfg.Storage.LearningHistory = 100
	}
	if cfg.Storage.DataDirectory == "" {
		cfg.Storage.DataDirectory = "."
	}
	if cfg.Storage.BaselineFile == "" {
		cfg.Storage.BaselineFile = "baseline.bin"
	}
	if cfg.Display.PrecisionDigits == 0 {
		cfg.Display.PrecisionDigits = 3
	}
	if cfg.Performance.MaxDisplayPoints == 0 {
		cfg.Performance.MaxDisplayPoints = 2048
	}
	if cfg.Performance.ProcessingThreads == 0 {
		cfg.Performance.ProcessingThreads = 1
	}
}

// Validate enforces the range and step constraints from spec.md §6.
func (c *Config) Validate() error {
	const op = "Config.Validate"

	if c.Spectrum.FreqMinMHz < 0 {
		return sweeperr.New(sweeperr.KindConfigInvalid, op, "freq_min_mhz must be >= 0")
	}
	if c.Spectrum.FreqMaxMHz <= c.Spectrum.FreqMinMHz {
		return sweeperr.New(sweeperr.KindConfigInvalid, op, "freq_max_mhz must be > freq_min_mhz")
	}
	if c.Spectrum.FreqMaxMHz > 7250 {
		return sweeperr.New(sweeperr.KindConfigInvalid, op, "freq_max_mhz must be <= 7250")
	}
	if c.Spectrum.BinWidth < 245_000 || c.Spectrum.BinWidth > 5_000_000 {
		return sweeperr.New(sweeperr.KindConfigInvalid, op, fmt.Sprintf("bin_width %.0f out of [245000, 5000000]", c.Spectrum.BinWidth))
	}

	if err := validateGainStep(c.HackRF.LNAGainDB, 0, 40, 8); err != nil {
		return sweeperr.Wrap(sweeperr.KindConfigInvalid, op, "lna_gain", err)
	}
	if err := validateGainStep(c.HackRF.VGAGainDB, 0, 62, 2); err != nil {
		return sweeperr.Wrap(sweeperr.KindConfigInvalid, op, "vga_gain", err)
	}
	if c.HackRF.DCSpikeWidth < 0 || c.HackRF.DCSpikeWidth > 10 {
		return sweeperr.New(sweeperr.KindConfigInvalid, op, "dc_spike_width must be in [0, 10]")
	}
	switch c.HackRF.PlanStrategy {
	case "estimate", "measure", "patient", "exhaustive":
	default:
		return sweeperr.New(sweeperr.KindConfigInvalid, op, "plan_strategy must be one of estimate|measure|patient|exhaustive")
	}

	if c.Monitoring.ThresholdBufferDB < 0 {
		return sweeperr.New(sweeperr.KindConfigInvalid, op, "threshold_buffer_db must be >= 0")
	}
	if c.Monitoring.UpdateRateHz <= 0 {
		return sweeperr.New(sweeperr.KindConfigInvalid, op, "update_rate_hz must be > 0")
	}
	if c.Monitoring.MinDetectionDurationS < 0 {
		return sweeperr.New(sweeperr.KindConfigInvalid, op, "min_detection_duration_s must be >= 0")
	}

	if c.Storage.LearningHistory <= 0 {
		return sweeperr.New(sweeperr.KindConfigInvalid, op, "learning_history must be > 0")
	}
	if c.Display.PrecisionDigits < 0 || c.Display.PowerPrecision < 0 {
		return sweeperr.New(sweeperr.KindConfigInvalid, op, "precision fields must be >= 0")
	}
	if c.Performance.MaxDisplayPoints <= 0 {
		return sweeperr.New(sweeperr.KindConfigInvalid, op, "max_display_points must be > 0")
	}
	if c.Performance.ProcessingThreads <= 0 {
		return sweeperr.New(sweeperr.KindConfigInvalid, op, "processing_threads must be > 0")
	}

	return nil
}

func validateGainStep(v, min, max, step int) error {
	if v < min || v > max {
		return fmt.Errorf("%d out of [%d, %d]", v, min, max)
	}
	if (v-min)%step != 0 {
		return fmt.Errorf("%d is not a multiple of %d steps from %d", v, step, min)
	}
	return nil
}
