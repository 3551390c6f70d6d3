package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolConns, dbPoolEmptyAcquires) }

var (
	// state: max|total|idle|in_use
	dbPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_connections",
			Help: "Postgres pool connections by state.",
		},
		[]string{"state"},
	)

	dbPoolEmptyAcquires = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_pool_empty_acquires",
			Help: "Cumulative acquires that had to wait for a free connection.",
		},
	)
)

// PoolSnapshot is a driver-neutral copy of connection pool counters.
type PoolSnapshot struct {
	Max, Total, Idle, InUse int32
	EmptyAcquires           int64
}

func SetDBPool(s PoolSnapshot) {
	dbPoolConns.WithLabelValues("max").Set(float64(s.Max))
	dbPoolConns.WithLabelValues("total").Set(float64(s.Total))
	dbPoolConns.WithLabelValues("idle").Set(float64(s.Idle))
	dbPoolConns.WithLabelValues("in_use").Set(float64(s.InUse))
	dbPoolEmptyAcquires.Set(float64(s.EmptyAcquires))
}
