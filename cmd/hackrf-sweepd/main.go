// Command hackrf-sweepd is the process entry point: it loads configuration,
// builds the component graph, and runs a learning or monitoring session
// against a wideband front end (spec.md §1, §6).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/cwsl/hackrf-sweepd/internal/baseline"
	"github.com/cwsl/hackrf-sweepd/internal/bus"
	"github.com/cwsl/hackrf-sweepd/internal/config"
	"github.com/cwsl/hackrf-sweepd/internal/control"
	"github.com/cwsl/hackrf-sweepd/internal/learn"
	"github.com/cwsl/hackrf-sweepd/internal/metrics"
	"github.com/cwsl/hackrf-sweepd/internal/monitor"
	"github.com/cwsl/hackrf-sweepd/internal/mqttpub"
	"github.com/cwsl/hackrf-sweepd/internal/sweep"
	"github.com/cwsl/hackrf-sweepd/internal/sweepcfg"
	"github.com/cwsl/hackrf-sweepd/internal/waterfall"
)

// Version is the build version, overridden by -ldflags in release builds.
var Version = "dev"

const (
	exitOK        = 0
	exitFailure   = 1
	exitInterrupt = 130
)

// colorEnabled gates ANSI colour on console output; set from --no-color.
var colorEnabled = true

func colorize(code, s string) string {
	if !colorEnabled {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = pflag.StringP("config", "c", "hackrf-sweepd.yaml", "configuration file")
		mode        = pflag.StringP("mode", "m", "auto", "operating mode: learning|monitoring|auto")
		baselineOv  = pflag.String("baseline-file", "", "override storage.baseline_file")
		thresholdOv = pflag.Float64("threshold", -1, "override monitoring.threshold_buffer_db (negative = use config)")
		freqMinOv   = pflag.Float64("freq-min", -1, "override spectrum.freq_min_mhz (negative = use config)")
		freqMaxOv   = pflag.Float64("freq-max", -1, "override spectrum.freq_max_mhz (negative = use config)")
		verbose     = pflag.BoolP("verbose", "v", false, "enable debug logging")
		noColor     = pflag.Bool("no-color", false, "disable ANSI colour in console output")
		showVersion = pflag.Bool("version", false, "print version and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Printf("hackrf-sweepd %s\n", Version)
		return exitOK
	}
	colorEnabled = !*noColor

	sweep.Debug = *verbose

	sessionID := uuid.New().String()
	log.Printf("hackrf-sweepd %s starting (session %s)", Version, sessionID)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logErr(err)
		return exitFailure
	}

	if *baselineOv != "" {
		cfg.Storage.BaselineFile = *baselineOv
	}
	if *thresholdOv >= 0 {
		cfg.Monitoring.ThresholdBufferDB = *thresholdOv
	}
	if *freqMinOv >= 0 {
		cfg.Spectrum.FreqMinMHz = *freqMinOv
	}
	if *freqMaxOv >= 0 {
		cfg.Spectrum.FreqMaxMHz = *freqMaxOv
	}
	if err := cfg.Validate(); err != nil {
		logErr(err)
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Prometheus.Enabled && cfg.Prometheus.PushGateway != "" {
		m.EnablePush(cfg.Prometheus.PushGateway, cfg.Prometheus.Job)
		go m.RunPushLoop(ctx, 15*time.Second)
	}

	var pub *mqttpub.Publisher
	if cfg.MQTT.Enabled {
		p, err := mqttpub.New(cfg.MQTT.Broker, cfg.MQTT.TopicAlert, cfg.MQTT.TopicStatus)
		if err != nil {
			log.Printf("Warning: MQTT disabled: %v", err)
		} else {
			pub = p
			defer pub.Close()
		}
	}

	sweepCfg := sweepConfigFrom(cfg)

	resolvedMode := *mode
	if resolvedMode == "auto" {
		resolvedMode = resolveAutoMode(cfg, sweepCfg)
	}

	switch resolvedMode {
	case "learning":
		return runLearning(ctx, cfg, sweepCfg, m)
	case "monitoring":
		return runMonitoring(ctx, cfg, sweepCfg, m, pub)
	default:
		log.Printf("Error: unknown mode %q (want learning, monitoring, or auto)", resolvedMode)
		return exitFailure
	}
}

// resolveAutoMode picks learning when no usable baseline exists yet,
// monitoring otherwise, per spec.md §1's "auto" dispatch.
func resolveAutoMode(cfg *config.Config, sweepCfg sweepcfg.SweepConfig) string {
	b, err := baseline.Load(cfg.Storage.BaselineFile)
	if err != nil || !b.Covers(sweepCfg.FreqMinMHz, sweepCfg.FreqMaxMHz) {
		return "learning"
	}
	return "monitoring"
}

func sweepConfigFrom(cfg *config.Config) sweepcfg.SweepConfig {
	return sweepcfg.SweepConfig{
		FreqMinMHz:          cfg.Spectrum.FreqMinMHz,
		FreqMaxMHz:          cfg.Spectrum.FreqMaxMHz,
		RequestedBinWidthHz: cfg.Spectrum.BinWidth,
		LNAGainDB:           cfg.HackRF.LNAGainDB,
		VGAGainDB:           cfg.HackRF.VGAGainDB,
		AmpEnable:           cfg.HackRF.AmpEnable,
		AntennaBiasEnable:   cfg.HackRF.AntennaEnable,
		Plan:                sweepcfg.PlanStrategy(cfg.HackRF.PlanStrategy),
		OneShot:             cfg.HackRF.OneShot,
		DCSpikeRemoval:      cfg.HackRF.DCSpikeRemoval,
		DCSpikeHalfWidth:    cfg.HackRF.DCSpikeWidth,
		SerialNumber:        cfg.HackRF.SerialNumber,
		WisdomPath:          cfg.HackRF.WisdomPath,
	}
}

// runLearning drives a learning session to auto-termination or
// interruption, then saves the baseline (spec.md §4.7).
func runLearning(ctx context.Context, cfg *config.Config, sweepCfg sweepcfg.SweepConfig, m *metrics.Metrics) int {
	b := bus.New()
	eng := sweep.New(b, nil)

	if err := eng.Start(sweepCfg); err != nil {
		logErr(err)
		return exitFailure
	}

	lc := learn.New(cfg.Storage.LearningHistory)
	frames := b.Subscribe()
	defer b.Unsubscribe(frames)

	start := time.Now()
	log.Printf("learning session started: freq=[%.1f,%.1f]MHz history=%d",
		sweepCfg.FreqMinMHz, sweepCfg.FreqMaxMHz, cfg.Storage.LearningHistory)

	interrupted := false
loop:
	for {
		select {
		case <-ctx.Done():
			interrupted = true
			break loop
		case fr, ok := <-frames:
			if !ok {
				break loop
			}
			lc.Ingest(fr)
			m.SetSweepRate(eng.SweepRateHz())
			m.SetFrameRate(lc.SweepRateHz())
			if lc.ShouldStop() {
				log.Printf("learning converged after %d sweeps", lc.SweepCount())
				break loop
			}
		}
	}

	if err := eng.Stop(); err != nil {
		log.Printf("Warning: sweep stop: %v", err)
	}

	if err := lc.Save(cfg.Storage.BaselineFile, sweepCfg, time.Since(start)); err != nil {
		logErr(err)
		return exitFailure
	}
	log.Printf("baseline saved to %s", cfg.Storage.BaselineFile)

	if interrupted {
		return exitInterrupt
	}
	return exitOK
}

// runMonitoring drives a monitoring session against a previously learned
// baseline, printing alerts as they cross threshold (spec.md §4.8, §7).
func runMonitoring(ctx context.Context, cfg *config.Config, sweepCfg sweepcfg.SweepConfig, m *metrics.Metrics, pub *mqttpub.Publisher) int {
	b, err := baseline.Load(cfg.Storage.BaselineFile)
	if err != nil {
		logErr(err)
		return exitFailure
	}
	m.SetBaselineAge(time.Since(b.Meta.CreatedAt))

	mc, err := monitor.New(b, sweepCfg.FreqMinMHz, sweepCfg.FreqMaxMHz, cfg.Monitoring.ThresholdBufferDB, cfg.Monitoring.MinDetectionDurationS)
	if err != nil {
		logErr(err)
		return exitFailure
	}

	busB := bus.New()
	eng := sweep.New(busB, nil)
	if err := eng.Start(sweepCfg); err != nil {
		logErr(err)
		return exitFailure
	}
	defer eng.Stop()

	wf := waterfall.New(cfg.Performance.MaxDisplayPoints, 4, 10, cfg.Monitoring.UpdateRateHz)

	frames := busB.Subscribe()
	defer busB.Unsubscribe(frames)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go control.Watch(ctx, os.Stdin, func(a control.Action) {
		switch a {
		case control.ActionQuit:
			cancel()
		case control.ActionStats:
			lo, hi := wf.Levels()
			control.PrintStatsHeader(eng.SweepCount(), eng.SweepRateHz(), mc.Threshold(), len(mc.ActiveAlerts()), mc.TotalAlerts())
			log.Printf("waterfall levels: [%.1f, %.1f] dB", lo, hi)
		default:
			if next, handled := control.Apply(a, mc.Threshold(), cfg.Monitoring.ThresholdBufferDB); handled {
				mc.UpdateThreshold(next)
				log.Printf("threshold buffer now %.1f dB", next)
			}
		}
	})

	statusTicker := time.NewTicker(10 * time.Second)
	defer statusTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return exitInterrupt
		case <-statusTicker.C:
			if pub != nil {
				pub.PublishStatus(eng.SweepCount(), eng.SweepRateHz(), len(mc.ActiveAlerts()))
			}
			m.SetActiveAlerts(len(mc.ActiveAlerts()))
			m.SetSweepRate(eng.SweepRateHz())
		case fr, ok := <-frames:
			if !ok {
				return exitOK
			}
			wf.Ingest(fr.Powers)
			handleEvents(mc.Ingest(fr), cfg, pub, m)
		}
	}
}

// handleEvents prints a console line for every crossing the Monitoring
// Controller reports. Per spec.md §9, immediate display is unconditional
// on every crossing; only promotion to the alert history (and the
// Controller's TotalAlerts counter) is gated by min_detection_duration_s,
// and that gating already happens inside monitor.Controller.Ingest. The
// alerts_total metric counts every new alert, ungated.
func handleEvents(events []monitor.Event, cfg *config.Config, pub *mqttpub.Publisher, m *metrics.Metrics) {
	for _, ev := range events {
		line := control.FormatAlertLine(ev.Alert.FreqMHz, ev.Alert.MaxPowerDB, ev.DeltaBase, ev.DeltaThresh, cfg.Display.PrecisionDigits)
		if ev.IsNew {
			log.Printf("%s %s", colorize("33;1", "ALERT:"), line)
			m.IncAlertsTotal()
		} else {
			log.Printf("update: %s", line)
		}
		if pub != nil {
			pub.PublishAlert(ev.Alert, ev.IsNew)
		}
	}
}

// logErr prints an error with the teacher's "Error: " console prefix
// convention (spec.md §7). sweeperr.Error.Error already embeds the Kind.
func logErr(err error) {
	log.Printf("%s %v", colorize("31", "Error:"), err)
}
