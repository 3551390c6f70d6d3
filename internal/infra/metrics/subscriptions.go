package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(subscriptionsFinalizedTotal)
}

// kind: activated|extended
var subscriptionsFinalizedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "subscriptions_finalized_total",
		Help: "Verified purchases applied to subscriptions, by kind.",
	},
	[]string{"kind"},
)

func IncSubscriptionFinalized(kind string) {
	subscriptionsFinalizedTotal.WithLabelValues(norm(kind)).Inc()
}
