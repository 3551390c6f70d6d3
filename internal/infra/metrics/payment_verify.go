package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		paymentVerifyRequests,
		paymentVerifyDuration,
		gatewayCallsTotal,
		gatewayCallDuration,
		paymentEventsTotal,
	)
}

var (
	// Count of verify triggers grouped by result and bounded reason.
	// result: completed|already_verified|cancelled|failed|error
	paymentVerifyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verify_requests_total",
			Help: "Count of payment verification triggers by provider and result.",
		},
		[]string{"provider", "result"},
	)

	paymentVerifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_verify_duration_seconds",
			Help:    "End-to-end duration of payment verification in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"result"},
	)

	// outcome: ok|rejected|unavailable
	gatewayCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_calls_total",
			Help: "Outbound payment gateway calls by provider, operation and outcome.",
		},
		[]string{"provider", "op", "outcome"},
	)

	gatewayCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_call_duration_seconds",
			Help:    "Latency of outbound payment gateway calls in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "op"},
	)

	// status: sent|error|skipped
	paymentEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_events_total",
			Help: "Payment events handed to the notification fan-out by type and delivery status.",
		},
		[]string{"type", "status"},
	)
)

func ObserveVerify(provider, result string, d time.Duration) {
	paymentVerifyRequests.WithLabelValues(norm(provider), norm(result)).Inc()
	paymentVerifyDuration.WithLabelValues(norm(result)).Observe(d.Seconds())
}

func ObserveGatewayCall(provider, op, outcome string, d time.Duration) {
	gatewayCallsTotal.WithLabelValues(norm(provider), norm(op), norm(outcome)).Inc()
	gatewayCallDuration.WithLabelValues(norm(provider), norm(op)).Observe(d.Seconds())
}

func IncPaymentEvent(eventType, status string) {
	paymentEventsTotal.WithLabelValues(norm(eventType), norm(status)).Inc()
}
