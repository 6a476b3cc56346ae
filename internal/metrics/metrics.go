// Package metrics exposes Prometheus collectors for the schedule
// aggregation pipeline and the HTTP boundary.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rinkcal"

// Dedicated registry so the exposition carries only our collectors.
var registry = prometheus.NewRegistry()

var (
	refreshTotal = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_cycles_total",
		Help:      "Aggregation cycles run, by outcome.",
	}, []string{"outcome"})

	sourceFailures = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_failures_total",
		Help:      "Feed fetch/parse failures, by team.",
	}, []string{"team"})

	cacheHits = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Reads served from a fresh cached aggregate.",
	})

	staleServed = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_served_total",
		Help:      "Reads served from a stale aggregate after a failed refresh.",
	})

	aggregateSize = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "aggregate_events",
		Help:      "Event count of the most recently built aggregate.",
	})

	httpRequests = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests, by path and status code.",
	}, []string{"path", "status"})

	httpDuration = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by path.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"path"})
)

// RecordRefresh counts one aggregation cycle by outcome.
func RecordRefresh(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	refreshTotal.WithLabelValues(outcome).Inc()
}

// RecordSourceFailure counts a degraded feed for one cycle.
func RecordSourceFailure(team string) {
	sourceFailures.WithLabelValues(team).Inc()
}

// RecordCacheHit counts a read served from a fresh cache entry.
func RecordCacheHit() {
	cacheHits.Inc()
}

// RecordStaleServed counts a read served from the stale fallback.
func RecordStaleServed() {
	staleServed.Inc()
}

// ObserveAggregate records the size of a freshly built aggregate.
func ObserveAggregate(events int) {
	aggregateSize.Set(float64(events))
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(path, status string, seconds float64) {
	httpRequests.WithLabelValues(path, status).Inc()
	httpDuration.WithLabelValues(path).Observe(seconds)
}

// Handler returns the Prometheus exposition handler for /metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
