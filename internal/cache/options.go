package cache

import "github.com/prometheus/client_golang/prometheus"

type options struct {
	reconcileIDs bool
	onChange     func(contentID string)
	metricsReg   prometheus.Registerer
}

// Option configures a ContentCache.
type Option func(*options)

// WithIDReconciliation enables the best-effort prefix matching of fragment
// ids against known metadata ids. Off by default; mismatched ids are then
// treated as distinct content items.
func WithIDReconciliation() Option {
	return func(o *options) { o.reconcileIDs = true }
}

// WithOnChange registers a hook fired after every effective mutation of a
// content item (new metadata, new fragment). Duplicate fragments do not fire
// it. The hook runs on the caller's goroutine and must not block.
//
// The hook is for callers that mutate the cache directly. The ContentService
// facade does not use it: it drives the progress recompute itself after each
// mutation. Use one or the other, not both, or every mutation is recomputed
// twice.
func WithOnChange(fn func(contentID string)) Option {
	return func(o *options) { o.onChange = fn }
}

// WithMetrics exposes cache counters on the given registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.metricsReg = reg }
}
