package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "drug_registry"

// Registration outcomes
const (
	OutcomeRegistered = "registered"
	OutcomeRejected   = "rejected"
	OutcomeConflict   = "conflict"
	OutcomeError      = "error"
)

// Notification outcomes
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
)

// Metrics holds the registry's prometheus collectors on a private registry.
// All methods are safe on a nil receiver so metrics stay optional.
type Metrics struct {
	registry      *prometheus.Registry
	registrations *prometheus.CounterVec
	notifications *prometheus.CounterVec
	records       prometheus.Gauge
}

// New creates the collectors and registers them with a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Registration event notifications by sink and outcome.",
		}, []string{"sink", "outcome"}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Number of registered drugs.",
		}),
	}

	m.registry.MustRegister(
		m.registrations,
		m.notifications,
		m.records,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveRegistration counts a registration attempt
func (m *Metrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

// ObserveNotification counts a notification for a sink
func (m *Metrics) ObserveNotification(sink, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(sink, outcome).Inc()
}

// SetRecords sets the registered drug gauge
func (m *Metrics) SetRecords(n uint64) {
	if m == nil {
		return
	}
	m.records.Set(float64(n))
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
