package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion
	EventsTracked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_events_tracked_total",
			Help: "Tracking events by type and outcome",
		},
		[]string{"event_type", "outcome"}, // accepted, skipped, rejected, failed
	)

	DedupLookupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_dedup_lookup_failures_total",
			Help: "Dedup lookups that failed and were accepted without a check",
		},
	)

	// Counter projection
	ProjectionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_projection_failures_total",
			Help: "Best-effort counter and rollup updates that failed",
		},
		[]string{"stage"}, // counter, rollup
	)

	ProjectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storefront_projection_duration_seconds",
			Help:    "Duration of the async counter projection",
			Buckets: prometheus.DefBuckets,
		},
	)

	ProjectionBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storefront_projection_breaker_state",
			Help: "Projection circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"breaker"},
	)

	// Aggregation
	AggregationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_aggregation_duration_seconds",
			Help:    "Duration of dashboard aggregation queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	DashboardCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_dashboard_cache_hits_total",
			Help: "Dashboard responses served from cache",
		},
	)

	DashboardCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_dashboard_cache_misses_total",
			Help: "Dashboard responses computed from the event store",
		},
	)

	RollupRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_rollup_rebuilds_total",
			Help: "Nightly rollup rebuild runs by result",
		},
		[]string{"result"},
	)

	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	LiveFeedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_live_feed_clients",
			Help: "Connected admin live feed clients",
		},
	)
)

// RecordAPIRequest records one HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveAggregation returns a func that records the elapsed time for query.
func ObserveAggregation(query string) func() {
	start := time.Now()
	return func() {
		AggregationDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	}
}
