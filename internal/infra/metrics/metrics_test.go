//go:build !integration

package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNorm(t *testing.T) {
	t.Run("should lower-case and trim label values", func(t *testing.T) {
		assert.Equal(t, "zarinpal", norm("  ZarinPal "))
	})

	t.Run("should never emit an empty label", func(t *testing.T) {
		assert.Equal(t, "unknown", norm("   "))
	})

	t.Run("should bound label length", func(t *testing.T) {
		assert.Len(t, norm(strings.Repeat("x", 200)), maxLabelLen)
	})
}

func TestCounters(t *testing.T) {
	t.Run("should count cache hits and misses separately", func(t *testing.T) {
		hits := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("quote", "hit"))
		misses := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("quote", "miss"))

		ObserveCacheLookup("Quote", true)
		ObserveCacheLookup("quote", false)
		ObserveCacheLookup("quote", false)

		assert.Equal(t, hits+1, testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("quote", "hit")))
		assert.Equal(t, misses+2, testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("quote", "miss")))
	})

	t.Run("should ignore non-positive revenue", func(t *testing.T) {
		before := testutil.ToFloat64(paidAmount.WithLabelValues("irr"))

		AddPaymentRevenue("IRR", 0)
		AddPaymentRevenue("IRR", 150000)

		assert.Equal(t, before+150000, testutil.ToFloat64(paidAmount.WithLabelValues("irr")))
	})

	t.Run("should report pool gauges", func(t *testing.T) {
		SetDBPool(PoolSnapshot{Max: 10, Total: 4, Idle: 1, InUse: 3, EmptyAcquires: 7})

		assert.Equal(t, float64(3), testutil.ToFloat64(dbPoolConns.WithLabelValues("in_use")))
		assert.Equal(t, float64(7), testutil.ToFloat64(dbPoolEmptyAcquires))
	})
}

func TestMustRegister(t *testing.T) {
	t.Run("should register every queued collector once", func(t *testing.T) {
		reg := prometheus.NewRegistry()

		MustRegister(reg)
		MustRegister(reg)

		ObserveCacheLookup("plan", true)
		families, err := reg.Gather()
		require.NoError(t, err)
		names := map[string]bool{}
		for _, f := range families {
			names[f.GetName()] = true
		}
		assert.True(t, names["cache_lookups_total"])
		assert.True(t, names["db_pool_empty_acquires"])
	})
}
