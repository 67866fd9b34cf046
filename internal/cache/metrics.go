package cache

import "github.com/prometheus/client_golang/prometheus"

type cacheMetrics struct {
	fragmentsReceived prometheus.Counter
	duplicatesDropped prometheus.Counter
	liveEntries       prometheus.Gauge
}

func newCacheMetrics(reg prometheus.Registerer) (*cacheMetrics, error) {
	m := &cacheMetrics{
		fragmentsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharethings_cache_fragments_received_total",
			Help: "Fragments stored in the content cache.",
		}),
		duplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharethings_cache_duplicate_fragments_total",
			Help: "Duplicate fragments dropped by the content cache.",
		}),
		liveEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sharethings_cache_content_entries",
			Help: "Content items currently held in the metadata store.",
		}),
	}

	for _, c := range []prometheus.Collector{m.fragmentsReceived, m.duplicatesDropped, m.liveEntries} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *cacheMetrics) recordFragment()     { m.fragmentsReceived.Inc() }
func (m *cacheMetrics) recordDuplicate()    { m.duplicatesDropped.Inc() }
func (m *cacheMetrics) updateEntries(n int) { m.liveEntries.Set(float64(n)) }
