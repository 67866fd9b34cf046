package reclaimer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	interval   time.Duration
	metricsReg prometheus.Registerer
}

// Option configures a Reclaimer.
type Option func(*options)

// WithInterval overrides the sweep interval.
func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithMetrics exposes reclaim counters on the given registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.metricsReg = reg }
}
