package metrics

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Create a custom registry
var registry = prometheus.NewRegistry()

// Create a registerer that uses our registry
var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	// Latency buckets in milliseconds
	latencyBuckets = []float64{
		5, 10, 25,
		50, 100, 250,
		500, 1000, 2500,
		5000, 10000, 30000,
	}

	GatewayRequestTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "travelgw_requests_total",
			Help: "Total number of requests processed",
		},
		[]string{"route", "method", "status"},
	)

	GatewayRequestLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "travelgw_latency_ms",
			Help:    "Request latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"route"},
	)

	GatewayUpstreamLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "travelgw_upstream_latency_ms",
			Help:    "Upstream service latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"upstream", "outcome"},
	)

	CacheLookups = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "travelgw_cache_lookups_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"},
	)

	CacheStores = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "travelgw_cache_stores_total",
			Help: "Responses written to the response cache",
		},
	)

	RateLimitRejections = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "travelgw_ratelimit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"tier"},
	)
)

// MetricsConfig holds configuration for which metrics to enable
type MetricsConfig struct {
	EnableDetailedStatus bool // Detailed status codes (vs. status classes)
}

// Config holds the current metrics configuration
var Config MetricsConfig

// Initialize registers the process and runtime collectors
func Initialize(cfg MetricsConfig) {
	Config = cfg
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler serves the private registry
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// GetStatusClass returns either the specific status code or its class (e.g., "2xx")
func GetStatusClass(status int) string {
	if !Config.EnableDetailedStatus {
		return fmt.Sprintf("%dxx", status/100)
	}
	return strconv.Itoa(status)
}
