package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors. A nil *Metrics is a valid no-op receiver
// so components can run without instrumentation in tests.
type Metrics struct {
	registry *prometheus.Registry

	eventsAccepted    prometheus.Counter
	eventsRejected    *prometheus.CounterVec
	broadcasts        prometheus.Counter
	openSubscriptions prometheus.Gauge
	folds             *prometheus.CounterVec
	watermark         prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_events_accepted_total",
			Help: "Events accepted and broadcast by the relay.",
		}),
		eventsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_events_rejected_total",
			Help: "Events rejected by the relay, by reason class.",
		}, []string{"reason"}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_broadcasts_total",
			Help: "Event frames pushed to matching subscriptions.",
		}),
		openSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_open_subscriptions",
			Help: "Currently registered subscriptions.",
		}),
		folds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indexer_folds_total",
			Help: "Events folded into materialized views, by kind.",
		}, []string{"kind"}),
		watermark: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indexer_watermark_seconds",
			Help: "Highest created_at timestamp processed by the indexer.",
		}),
	}
	m.registry.MustRegister(
		m.eventsAccepted,
		m.eventsRejected,
		m.broadcasts,
		m.openSubscriptions,
		m.folds,
		m.watermark,
	)
	return m
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) EventAccepted() {
	if m != nil {
		m.eventsAccepted.Inc()
	}
}

func (m *Metrics) EventRejected(reason string) {
	if m != nil {
		m.eventsRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Broadcast() {
	if m != nil {
		m.broadcasts.Inc()
	}
}

func (m *Metrics) SubscriptionOpened() {
	if m != nil {
		m.openSubscriptions.Inc()
	}
}

func (m *Metrics) SubscriptionClosed() {
	if m != nil {
		m.openSubscriptions.Dec()
	}
}

func (m *Metrics) Folded(kind string) {
	if m != nil {
		m.folds.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) SetWatermark(ts int64) {
	if m != nil {
		m.watermark.Set(float64(ts))
	}
}
