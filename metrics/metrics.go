// Package metrics exposes Prometheus metrics for the sandbox coordinator.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wippyai/wasm-surface/resource"
)

// Metrics holds the sandbox collectors. Each instance owns its registry so
// several coordinators (or tests) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	// Session metrics
	SessionsSpawned prometheus.Counter
	SessionsActive  prometheus.Gauge
	SpawnFailures   *prometheus.CounterVec
	SpawnDuration   prometheus.Histogram
	GuestExits      *prometheus.CounterVec

	// Pump and input metrics
	FramesTicked    prometheus.Counter
	EventsForwarded prometheus.Counter
	EventsDropped   prometheus.Counter

	// Handoff metrics
	HandoffViolations prometheus.Counter

	// UI dispatch metrics
	UITasks prometheus.Counter

	// Capability table metrics
	Capabilities *prometheus.GaugeVec
}

// New creates collectors registered on a fresh registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SessionsSpawned: f.NewCounter(prometheus.CounterOpts{
			Name: "sandbox_sessions_spawned_total",
			Help: "Guest sessions that reached Running",
		}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "sandbox_sessions_active",
			Help: "Guest sessions currently running (0 or 1)",
		}),
		SpawnFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sandbox_spawn_failures_total",
			Help: "Spawn attempts that failed, by error kind",
		}, []string{"kind"}),
		SpawnDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sandbox_spawn_duration_seconds",
			Help:    "Time from spawn request to running guest",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		GuestExits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sandbox_guest_exits_total",
			Help: "Guest executions that finished, by result",
		}, []string{"result"}),
		FramesTicked: f.NewCounter(prometheus.CounterOpts{
			Name: "sandbox_frames_ticked_total",
			Help: "Frame ticks delivered by the animation pump",
		}),
		EventsForwarded: f.NewCounter(prometheus.CounterOpts{
			Name: "sandbox_events_forwarded_total",
			Help: "Input events delivered to the guest",
		}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "sandbox_events_dropped_total",
			Help: "Input events dropped by rate limit or full queue",
		}),
		HandoffViolations: f.NewCounter(prometheus.CounterOpts{
			Name: "sandbox_handoff_violations_total",
			Help: "Surfaces requested from an empty handoff slot",
		}),
		UITasks: f.NewCounter(prometheus.CounterOpts{
			Name: "sandbox_ui_tasks_total",
			Help: "Tasks run on the UI goroutine",
		}),
		Capabilities: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sandbox_capabilities_live",
			Help: "Capability handles held by guests, by kind",
		}, []string{"kind"}),
	}
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSpawn records a successful spawn that took d.
func (m *Metrics) ObserveSpawn(d time.Duration) {
	m.SessionsSpawned.Inc()
	m.SessionsActive.Set(1)
	m.SpawnDuration.Observe(d.Seconds())
}

// SpawnFailed records a failed spawn of the given error kind.
func (m *Metrics) SpawnFailed(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.SpawnFailures.WithLabelValues(kind).Inc()
}

// GuestExited records how a guest finished.
func (m *Metrics) GuestExited(result string) {
	m.GuestExits.WithLabelValues(result).Inc()
}

// Stopped records the end of the active session.
func (m *Metrics) Stopped() {
	m.SessionsActive.Set(0)
}

// OnResourceEvent tracks live capability handles. It implements
// resource.Observer.
func (m *Metrics) OnResourceEvent(e resource.Event) {
	switch e.Type {
	case resource.EventCreated:
		m.Capabilities.WithLabelValues(e.Kind.String()).Inc()
	case resource.EventDropped:
		m.Capabilities.WithLabelValues(e.Kind.String()).Dec()
	}
}
