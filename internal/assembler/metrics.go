package assembler

import "github.com/prometheus/client_golang/prometheus"

type engineMetrics struct {
	assemblies *prometheus.CounterVec
}

func newEngineMetrics(reg prometheus.Registerer) (*engineMetrics, error) {
	m := &engineMetrics{
		assemblies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sharethings_assemblies_total",
			Help: "Assembly runs by outcome.",
		}, []string{"outcome"}),
	}
	if err := reg.Register(m.assemblies); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *engineMetrics) recordAssembly(outcome string) {
	m.assemblies.WithLabelValues(outcome).Inc()
}
