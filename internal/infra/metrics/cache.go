package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(cacheLookupsTotal) }

// cache: quote|plan|plan_list
var cacheLookupsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Redis-backed lookups by cache and result (hit/miss).",
	},
	[]string{"cache", "result"},
)

func ObserveCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(norm(cache), result).Inc()
}
