// Package reclaimer frees cache entries once a content item no longer needs
// them: immediately after a terminal transition, and via a periodic sweep
// that collects orphaned fragment stores.
package reclaimer

import (
	"context"
	"time"

	"github.com/jsbattig/share-things-sub002/internal/cache"
	"github.com/jsbattig/share-things-sub002/internal/logging"
	"github.com/jsbattig/share-things-sub002/internal/progress"
)

// DisplayTracker is the external collaborator that knows whether every
// fragment of a content id has already been processed and displayed. The
// sweep only reclaims ids it confirms.
type DisplayTracker interface {
	AllFragmentsProcessed(contentID string) bool
}

// AssemblyGuard reports whether an assembly for a content id is running.
// An id with an assembly in flight is never swept.
type AssemblyGuard interface {
	InFlight(contentID string) bool
}

// Reclaimer removes cache entries on two triggers: an explicit call after a
// terminal transition, and a periodic sweep over fragment stores that never
// got a metadata record.
type Reclaimer struct {
	cache   *cache.ContentCache
	tracker *progress.Tracker
	display DisplayTracker
	guard   AssemblyGuard
	logger  logging.Logger
	metrics *reclaimerMetrics

	interval time.Duration
}

func New(c *cache.ContentCache, t *progress.Tracker, display DisplayTracker,
	guard AssemblyGuard, logger logging.Logger, opts ...Option) (*Reclaimer, error) {

	r := &Reclaimer{
		cache:    c,
		tracker:  t,
		display:  display,
		guard:    guard,
		logger:   logger,
		interval: time.Minute,
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.interval > 0 {
		r.interval = o.interval
	}
	if o.metricsReg != nil {
		m, err := newReclaimerMetrics(o.metricsReg)
		if err != nil {
			return nil, err
		}
		r.metrics = m
	}

	return r, nil
}

// ReclaimContent frees both cache stores and the progress entry for id.
// Idempotent.
func (r *Reclaimer) ReclaimContent(ctx context.Context, id string) {
	r.tracker.Forget(id)
	r.cache.Remove(ctx, id)
	r.record("terminal")
	r.logger.Debug(ctx, "content reclaimed", "contentId", id)
}

// Run executes the periodic sweep until ctx is cancelled.
func (r *Reclaimer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info(ctx, "reclaimer sweep started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info(ctx, "reclaimer sweep stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep reclaims fragment stores that have no metadata record, are not being
// assembled, and whose fragments the display tracker confirms as processed.
// Returns the number of ids reclaimed.
func (r *Reclaimer) Sweep(ctx context.Context) int {
	reclaimed := 0
	for _, id := range r.cache.FragmentOnlyIDs() {
		if r.guard != nil && r.guard.InFlight(id) {
			continue
		}
		if r.display == nil || !r.display.AllFragmentsProcessed(id) {
			continue
		}

		r.tracker.Forget(id)
		r.cache.Remove(ctx, id)
		r.record("sweep")
		reclaimed++
		r.logger.Info(ctx, "orphaned fragment store reclaimed", "contentId", id)
	}
	return reclaimed
}

func (r *Reclaimer) record(trigger string) {
	if r.metrics != nil {
		r.metrics.recordReclaim(trigger)
	}
}
