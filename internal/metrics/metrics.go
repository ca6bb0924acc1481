// Package metrics exposes the calendar's Prometheus metrics. A nil *Metrics
// records nothing, so components can run without it.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sharedcal"

const (
	SourceLocal = "local"
	SourceFeed  = "feed"

	ResultApplied = "applied"
	ResultIgnored = "ignored"
)

type Metrics struct {
	registry        *prometheus.Registry
	notifications   *prometheus.CounterVec
	sessions        prometheus.Gauge
	requests        *prometheus.HistogramVec
	publishFailures *prometheus.CounterVec
	retention       prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_applies_total",
			Help:      "Changes applied to calendar sessions by source, kind and result.",
		}, []string{"source", "kind", "result"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_sessions",
			Help:      "Calendar sessions currently open.",
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request latency by transport, method and code.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"transport", "method", "code"}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_publish_failures_total",
			Help:      "Notifications that could not be published by kind.",
		}, []string{"kind"}),
		retention: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_removed_events_total",
			Help:      "Events removed by the retention job.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.notifications,
		m.sessions,
		m.requests,
		m.publishFailures,
		m.retention,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) Applied(source, kind string, applied bool) {
	if m == nil {
		return
	}
	result := ResultIgnored
	if applied {
		result = ResultApplied
	}
	m.notifications.WithLabelValues(source, kind, result).Inc()
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.sessions.Dec()
	}
}

func (m *Metrics) ObserveRequest(transport, method, code string, elapsed time.Duration) {
	if m != nil {
		m.requests.WithLabelValues(transport, method, code).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) PublishFailed(kind string) {
	if m != nil {
		m.publishFailures.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) RetentionRemoved(n int) {
	if m != nil {
		m.retention.Add(float64(n))
	}
}
