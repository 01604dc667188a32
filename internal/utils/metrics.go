package utils

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tracks performance metrics across the system
type MetricsCollector struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	latencies *prometheus.HistogramVec
	cache     *prometheus.CounterVec
	storeOps  *prometheus.HistogramVec

	systemStartTime time.Time
}

// NewMetricsCollector builds a collector on a private registry so that
// several servers (tests) can coexist in one process.
func NewMetricsCollector() *MetricsCollector {
	mc := &MetricsCollector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yatube",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		latencies: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "yatube",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yatube",
			Name:      "page_cache_lookups_total",
			Help:      "Page cache lookups by result.",
		}, []string{"result"}),
		storeOps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "yatube",
			Name:      "store_operation_duration_seconds",
			Help:      "Latency of storage operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		systemStartTime: time.Now(),
	}

	mc.registry.MustRegister(
		mc.requests,
		mc.latencies,
		mc.cache,
		mc.storeOps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return mc
}

func (mc *MetricsCollector) ObserveRequest(route, method string, status int, duration time.Duration) {
	mc.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	mc.latencies.WithLabelValues(route).Observe(duration.Seconds())
}

func (mc *MetricsCollector) CacheHit() {
	mc.cache.WithLabelValues("hit").Inc()
}

func (mc *MetricsCollector) CacheMiss() {
	mc.cache.WithLabelValues("miss").Inc()
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.storeOps.WithLabelValues(operationName).Observe(duration.Seconds())
}

func (mc *MetricsCollector) Uptime() time.Duration {
	return time.Since(mc.systemStartTime)
}

// Handler exposes the registry in the Prometheus text format.
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}
