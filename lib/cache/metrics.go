package cache

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// cacheMetrics are the counters of one cache instance.
type cacheMetrics struct {
	hits      *metrics.Counter
	misses    *metrics.Counter
	evictions *metrics.Counter
}

func newCacheMetrics(name string) cacheMetrics {
	return cacheMetrics{
		hits:      metrics.GetOrCreateCounter(fmt.Sprintf(`cache_requests_total{cache=%q,result="hit"}`, name)),
		misses:    metrics.GetOrCreateCounter(fmt.Sprintf(`cache_requests_total{cache=%q,result="miss"}`, name)),
		evictions: metrics.GetOrCreateCounter(fmt.Sprintf(`cache_evictions_total{cache=%q}`, name)),
	}
}

func (m cacheMetrics) record(loaded bool) {
	if loaded {
		m.hits.Inc()
	} else {
		m.misses.Inc()
	}
}
