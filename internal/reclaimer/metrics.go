package reclaimer

import "github.com/prometheus/client_golang/prometheus"

type reclaimerMetrics struct {
	reclaims *prometheus.CounterVec
}

func newReclaimerMetrics(reg prometheus.Registerer) (*reclaimerMetrics, error) {
	m := &reclaimerMetrics{
		reclaims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sharethings_reclaims_total",
			Help: "Cache reclaims by trigger.",
		}, []string{"trigger"}),
	}
	if err := reg.Register(m.reclaims); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *reclaimerMetrics) recordReclaim(trigger string) {
	m.reclaims.WithLabelValues(trigger).Inc()
}
