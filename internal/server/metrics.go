package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the Prometheus side of chat.Observer. Each Metrics owns its
// registry, so several hubs can live in one process.
type Metrics struct {
	registry  *prometheus.Registry
	connected prometheus.Gauge
	bound     prometheus.Gauge
	delivered *prometheus.CounterVec
	failed    *prometheus.CounterVec
	rejected  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gochat",
			Name:      "sessions_connected",
			Help:      "Sessions currently registered, joined or not.",
		}),
		bound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gochat",
			Name:      "sessions_joined",
			Help:      "Sessions currently visible in the roster.",
		}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gochat",
			Name:      "events_delivered_total",
			Help:      "Outbound events queued for a session.",
		}, []string{"event"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gochat",
			Name:      "delivery_failures_total",
			Help:      "Outbound events that could not be queued; the session is dropped.",
		}, []string{"event"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gochat",
			Name:      "actions_rejected_total",
			Help:      "Inbound actions ignored by validation or state checks.",
		}, []string{"action", "reason"}),
	}

	m.registry.MustRegister(m.connected, m.bound, m.delivered, m.failed, m.rejected)
	return m
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) EventDelivered(eventType string) {
	m.delivered.WithLabelValues(eventType).Inc()
}

func (m *Metrics) DeliveryFailed(eventType string) {
	m.failed.WithLabelValues(eventType).Inc()
}

func (m *Metrics) ActionRejected(actionType, reason string) {
	m.rejected.WithLabelValues(actionType, reason).Inc()
}

func (m *Metrics) RosterChanged(connected, bound int) {
	m.connected.Set(float64(connected))
	m.bound.Set(float64(bound))
}
