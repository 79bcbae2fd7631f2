// Package metrics exposes Prometheus metrics for the klaxon daemon.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jmylchreest/klaxon/internal/bridge"
	"github.com/jmylchreest/klaxon/internal/model"
)

const namespace = "klaxon"

// Metrics contains all Prometheus metrics for the daemon. Each instance owns
// its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	// Session metrics
	SessionEvents   *prometheus.CounterVec
	PlaybackActive  prometheus.Gauge
	SessionDuration prometheus.Histogram

	// Bridge metrics
	BridgeCalls        *prometheus.CounterVec
	BridgeCallDuration *prometheus.HistogramVec

	// Daemon metrics
	ChannelsRegistered prometheus.Gauge
	ConfigReloads      *prometheus.CounterVec
	AssetInvalidations prometheus.Counter

	mu      sync.Mutex
	started map[string]time.Time
}

// New creates and registers all metrics on a fresh registry, together with
// the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		SessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Total number of playback session lifecycle events",
		}, []string{"kind"}),
		PlaybackActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_active",
			Help:      "1 while the alert tone is playing",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Time from playback start to stop",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		}),

		BridgeCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_calls_total",
			Help:      "Total number of bridge commands dispatched",
		}, []string{"method", "status"}),
		BridgeCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bridge_call_duration_seconds",
			Help:      "Duration of bridge command dispatch",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8), // 100us to ~1.6s
		}, []string{"method"}),

		ChannelsRegistered: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels_registered",
			Help:      "Number of registered notification channels",
		}),
		ConfigReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Total number of configuration reloads",
		}, []string{"result"}),
		AssetInvalidations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_invalidations_total",
			Help:      "Total number of alert asset cache invalidations",
		}),

		started: make(map[string]time.Time),
	}
}

// RecordSessionEvent records a controller lifecycle event.
func (m *Metrics) RecordSessionEvent(e model.SessionEvent) {
	m.SessionEvents.WithLabelValues(e.Kind.String()).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()

	switch e.Kind {
	case model.SessionStarted:
		if _, ok := m.started[e.SessionID]; !ok {
			m.started[e.SessionID] = e.At
		}
		m.PlaybackActive.Set(1)
	case model.SessionStopped, model.SessionFailed:
		if at, ok := m.started[e.SessionID]; ok {
			m.SessionDuration.Observe(e.At.Sub(at).Seconds())
			delete(m.started, e.SessionID)
		}
		m.PlaybackActive.Set(0)
	}
}

// RecordBridgeCall records a dispatched bridge command. Unknown method names
// share a single label value.
func (m *Metrics) RecordBridgeCall(method string, status bridge.Status, elapsed time.Duration) {
	label := method
	if status == bridge.StatusNotImplemented {
		label = "unknown"
	}
	m.BridgeCalls.WithLabelValues(label, status.String()).Inc()
	m.BridgeCallDuration.WithLabelValues(label).Observe(elapsed.Seconds())
}

// SetChannelsRegistered sets the registered channel count.
func (m *Metrics) SetChannelsRegistered(count int) {
	m.ChannelsRegistered.Set(float64(count))
}

// RecordConfigReload records a configuration reload attempt.
func (m *Metrics) RecordConfigReload(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.ConfigReloads.WithLabelValues(result).Inc()
}

// RecordAssetInvalidation increments the asset invalidation counter.
func (m *Metrics) RecordAssetInvalidation() {
	m.AssetInvalidations.Inc()
}
