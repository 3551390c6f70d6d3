package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(paymentTransitions, paidAmount, discountApplications) }

var (
	// status: pending|completed|failed|cancelled|request_failed
	paymentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_transitions_total",
			Help: "Payment rows entering a status, by gateway.",
		},
		[]string{"provider", "status"},
	)

	// Amounts are in the smallest unit of currency (IRR rials).
	paidAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_paid_amount_total",
			Help: "Sum of final amounts of completed payments.",
		},
		[]string{"currency"},
	)

	// result: ok|not_found|not_usable|exhausted
	discountApplications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discount_applications_total",
			Help: "Discount code applications during pricing, by result.",
		},
		[]string{"result"},
	)
)

func IncPayment(provider, status string) {
	paymentTransitions.WithLabelValues(norm(provider), norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	if amount <= 0 {
		return
	}
	paidAmount.WithLabelValues(norm(currency)).Add(float64(amount))
}

func IncDiscountRedemption(result string) {
	discountApplications.WithLabelValues(norm(result)).Inc()
}
