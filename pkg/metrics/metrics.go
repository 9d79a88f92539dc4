// Package metrics exposes the Prometheus metrics of the course client.
//
// Client, cache and rate limit metrics are defined in their own packages
// (promauto, default registry) to avoid import cycles. This package adds the
// proxy HTTP metrics and the /metrics handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every course client metric is registered with.
var Registry = prometheus.DefaultRegisterer

// Proxy HTTP metrics.
var (
	ProxyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "course_proxy_requests_total",
		Help: "Total proxy requests by route and response code",
	}, []string{"route", "code"})

	ProxyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "course_proxy_request_duration_seconds",
		Help:    "Proxy request duration in seconds by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	ProxyInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "course_proxy_in_flight_requests",
		Help: "Proxy requests currently being served",
	})
)

// Handler returns the /metrics handler for the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument wraps h with the proxy metrics under the given route label.
func Instrument(route string, h http.Handler) http.Handler {
	counter := ProxyRequests.MustCurryWith(prometheus.Labels{"route": route})
	duration := ProxyDuration.MustCurryWith(prometheus.Labels{"route": route})

	return promhttp.InstrumentHandlerInFlight(ProxyInFlight,
		promhttp.InstrumentHandlerDuration(duration,
			promhttp.InstrumentHandlerCounter(counter, h)))
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - course_cache_hits_total{store} (Counter): Fresh entries served
//   - course_cache_misses_total{store} (Counter): Absent or stale lookups
//   - course_cache_shared_fetches_total (Counter): Callers that joined an in-flight fetch
//   - course_cache_fetch_errors_total (Counter): Failed fetches (never cached)
//   - course_cache_errors_total{store, operation} (Counter): Store errors
//   - course_cache_evictions_total (Counter): Memory store LRU evictions
//   - course_cache_entries (Gauge): Memory store size
//
// Request Metrics (pkg/client):
//   - course_client_requests_total{method, status} (Counter)
//   - course_client_request_duration_seconds{method} (Histogram)
//   - course_client_errors_total{class} (Counter): client, server, rate_limit, network, canceled
//   - course_client_retries_total{error_class} (Counter)
//   - course_client_retry_exhausted_total{error_class} (Counter)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - course_rate_limit_waits_total (Counter): Requests delayed before sending
//   - course_rate_limit_pauses_total (Counter): Retry-After pause windows
//
// Proxy Metrics (this package):
//   - course_proxy_requests_total{route, code} (Counter)
//   - course_proxy_request_duration_seconds{route} (Histogram)
//   - course_proxy_in_flight_requests (Gauge)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(course_cache_hits_total[5m])) /
//   (sum(rate(course_cache_hits_total[5m])) + sum(rate(course_cache_misses_total[5m])))
//
//   # Deduplicated share of misses
//   rate(course_cache_shared_fetches_total[5m]) / sum(rate(course_cache_misses_total[5m]))
//
//   # P95 Backend Latency
//   histogram_quantile(0.95, rate(course_client_request_duration_seconds_bucket[5m]))
