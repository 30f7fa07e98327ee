// Package metrics holds the service's Prometheus collectors.
//
// Registers:
//
//	#marketboard_upstream_requests_total{provider,outcome}
//	#marketboard_upstream_request_seconds{provider}
//	#marketboard_http_requests_total{route,method,status}
//	#marketboard_http_request_seconds{route}
//	#marketboard_orders_total{result}
//	#marketboard_dedup_skipped_total
//	#go_* and process_* system metrics
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketboard"

// Metrics is a dedicated registry and its collectors
type Metrics struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	orders           *prometheus.CounterVec
	dedupSkipped     prometheus.Counter
}

// New builds and registers every collector on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream market API calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_seconds",
			Help:      "Upstream market API latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Handled HTTP requests",
		}, []string{"route", "method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_seconds",
			Help:      "HTTP handler latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Order placement attempts by result",
		}, []string{"result"}),
		dedupSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_skipped_total",
			Help:      "Upstream records dropped as duplicates or missing an id",
		}),
	}

	m.registry.MustRegister(
		m.upstreamRequests,
		m.upstreamLatency,
		m.httpRequests,
		m.httpLatency,
		m.orders,
		m.dedupSkipped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveUpstream records one upstream call. Nil-safe.
func (m *Metrics) ObserveUpstream(provider string, took time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.upstreamRequests.WithLabelValues(provider, outcome).Inc()
	m.upstreamLatency.WithLabelValues(provider).Observe(took.Seconds())
}

// ObserveHTTP records one handled request. Nil-safe.
func (m *Metrics) ObserveHTTP(route, method string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(route).Observe(took.Seconds())
}

// IncOrder counts an order attempt by result kind. Nil-safe.
func (m *Metrics) IncOrder(result string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(result).Inc()
}

// AddDedupSkipped counts dropped upstream records. Nil-safe.
func (m *Metrics) AddDedupSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.dedupSkipped.Add(float64(n))
}
