package badge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the badge path counters.
type Metrics struct {
	BadgesIssued prometheus.Counter
	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter
}

// NewMetrics registers badge metrics on the default registerer.
func NewMetrics() *Metrics {
	return newMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsForTesting registers on a private registry.
func NewMetricsForTesting() *Metrics {
	return newMetricsWith(prometheus.NewRegistry())
}

func newMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BadgesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "hookwarden_badges_issued_total",
			Help: "Total number of trust badges created in the catalog",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "hookwarden_badge_cache_hits_total",
			Help: "Approval cache hits on the badge path",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "hookwarden_badge_cache_misses_total",
			Help: "Approval cache misses on the badge path",
		}),
	}
}

func (m *Metrics) IncrementBadgesIssued() { m.BadgesIssued.Inc() }
func (m *Metrics) IncrementCacheHits()    { m.CacheHits.Inc() }
func (m *Metrics) IncrementCacheMisses()  { m.CacheMisses.Inc() }
