// Package metrics exports process lifecycle metrics in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/devup/internal/events"
	"github.com/smazurov/devup/internal/process"
)

const namespace = "devup"

// phases are exported as labels of the state gauge, one series per phase.
var phases = []process.Phase{
	process.PhaseStarting,
	process.PhaseReady,
	process.PhaseStopping,
	process.PhaseStopped,
	process.PhaseFailed,
}

// Metrics holds the collectors for managed processes on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	state          *prometheus.GaugeVec
	readySeconds   *prometheus.GaugeVec
	launchFailures *prometheus.CounterVec
	watchErrors    *prometheus.CounterVec
	forcedKills    *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, including the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		state: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "process",
			Name:      "state",
			Help:      "Current lifecycle phase of a managed process (1 for the active phase)",
		}, []string{"name", "phase"}),
		readySeconds: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "process",
			Name:      "ready_seconds",
			Help:      "Seconds from launch until the readiness marker was seen",
		}, []string{"name"}),
		launchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launch_failures_total",
			Help:      "Processes that could not be started",
		}, []string{"name"}),
		watchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_errors_total",
			Help:      "Output read errors outside shutdown",
		}, []string{"name"}),
		forcedKills: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forced_kills_total",
			Help:      "Processes that needed SIGKILL after the stop timeout",
		}, []string{"name"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SetState marks phase as the active phase of the named process.
func (m *Metrics) SetState(name string, phase process.Phase) {
	for _, p := range phases {
		v := 0.0
		if p == phase {
			v = 1
		}
		m.state.WithLabelValues(name, string(p)).Set(v)
	}
}

// Attach feeds the collectors from lifecycle events on bus.
// Returns a function that unsubscribes all handlers.
func (m *Metrics) Attach(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.StateChangedEvent) {
			m.SetState(e.Name, process.Phase(e.To))
		}),
		bus.Subscribe(func(e events.ReadyEvent) {
			m.readySeconds.WithLabelValues(e.Name).Set(e.Seconds)
		}),
		bus.Subscribe(func(e events.LaunchFailedEvent) {
			m.launchFailures.WithLabelValues(e.Name).Inc()
		}),
		bus.Subscribe(func(e events.WatchErrorEvent) {
			m.watchErrors.WithLabelValues(e.Name).Inc()
		}),
		bus.Subscribe(func(e events.StoppedEvent) {
			if e.Forced {
				m.forcedKills.WithLabelValues(e.Name).Inc()
			}
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
