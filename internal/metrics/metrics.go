// Package metrics exports Prometheus gauges/counters for the sweep
// pipeline, grounded on the teacher's PrometheusMetrics registration style
// (promauto-registered GaugeVec, optional Pushgateway push).
package metrics

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds every collector the sweep pipeline exposes.
type Metrics struct {
	registry *prometheus.Registry

	sweepRateHz      prometheus.Gauge
	frameRateHz      prometheus.Gauge
	busDropsTotal    prometheus.Counter
	activeAlerts     prometheus.Gauge
	alertsTotal      prometheus.Counter
	baselineAgeSecs  prometheus.Gauge
	sweepEngineState prometheus.Gauge

	pusher *push.Pusher
}

// New constructs and registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		sweepRateHz: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "hackrf_sweepd_sweep_rate_hz",
			Help: "Reciprocal of the most recent inter-callback wall interval.",
		}),
		frameRateHz: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "hackrf_sweepd_frame_rate_hz",
			Help: "Spectrum frames published per second.",
		}),
		busDropsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "hackrf_sweepd_bus_drops_total",
			Help: "Frames replaced before a slow consumer drained them.",
		}),
		activeAlerts: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "hackrf_sweepd_active_alerts",
			Help: "Currently active (not yet retired) alerts.",
		}),
		alertsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "hackrf_sweepd_alerts_total",
			Help: "Alerts raised (first threshold crossing at a new frequency key).",
		}),
		baselineAgeSecs: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "hackrf_sweepd_baseline_age_seconds",
			Help: "Age of the loaded baseline in seconds.",
		}),
		sweepEngineState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "hackrf_sweepd_sweep_engine_state",
			Help: "Sweep Engine lifecycle state (0=IDLE,1=CONFIGURING,2=RUNNING,3=STOPPING).",
		}),
	}
	return m
}

// Registry exposes the underlying registry, e.g. for an HTTP /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) SetSweepRate(hz float64)   { m.sweepRateHz.Set(hz) }
func (m *Metrics) SetFrameRate(hz float64)   { m.frameRateHz.Set(hz) }
func (m *Metrics) IncBusDrop()               { m.busDropsTotal.Inc() }
func (m *Metrics) SetActiveAlerts(n int)     { m.activeAlerts.Set(float64(n)) }
func (m *Metrics) IncAlertsTotal()           { m.alertsTotal.Inc() }
func (m *Metrics) SetBaselineAge(age time.Duration) { m.baselineAgeSecs.Set(age.Seconds()) }
func (m *Metrics) SetEngineState(state int)  { m.sweepEngineState.Set(float64(state)) }

// EnablePush configures periodic push to a Prometheus Pushgateway, as the
// teacher's instance reporter does for its own metrics.
func (m *Metrics) EnablePush(gatewayURL, job string) {
	m.pusher = push.New(gatewayURL, job).Gatherer(m.registry)
}

// RunPushLoop pushes metrics to the configured Pushgateway every interval
// until ctx is cancelled. A no-op if EnablePush was never called.
func (m *Metrics) RunPushLoop(ctx context.Context, interval time.Duration) {
	if m.pusher == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.pusher.Push(); err != nil {
				log.Printf("Warning: metrics push failed: %v", err)
			}
		}
	}
}
