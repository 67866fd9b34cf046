package assembler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	retryDelay time.Duration
	metricsReg prometheus.Registerer
}

// Option configures an Engine.
type Option func(*options)

// WithRetryDelay overrides the delay before the single metadata retry.
// Mostly useful in tests.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) { o.retryDelay = d }
}

// WithMetrics exposes assembly outcome counters on the given registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.metricsReg = reg }
}
