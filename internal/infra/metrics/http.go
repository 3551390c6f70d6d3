package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(rateLimitedTotal, httpRequestDuration) }

var rateLimitedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by the per-user rate limiter, by route.",
	},
	[]string{"route"},
)

var httpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "API request latency by route pattern and status code.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

func IncRateLimited(route string) {
	rateLimitedTotal.WithLabelValues(norm(route)).Inc()
}

func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
