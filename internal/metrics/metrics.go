// Package metrics exposes the ledger engine's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smartsplit"

// Metrics groups the collectors updated by the engine. Each instance owns its
// registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	commands            *prometheus.CounterVec
	persistenceFailures prometheus.Counter
	entities            *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands applied to the ledger, by kind and result.",
		}, []string{"kind", "result"}),
		persistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Snapshot saves or loads that failed.",
		}),
		entities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_entities",
			Help:      "Entities held by the current snapshot, by kind.",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		m.commands,
		m.persistenceFailures,
		m.entities,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// CommandApplied counts one command. result is "ok" or an error class.
func (m *Metrics) CommandApplied(kind, result string) {
	m.commands.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) PersistenceFailed() {
	m.persistenceFailures.Inc()
}

// SetEntities records the size of each snapshot collection.
func (m *Metrics) SetEntities(counts map[string]int) {
	for kind, n := range counts {
		m.entities.WithLabelValues(kind).Set(float64(n))
	}
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
