// Package progress derives a per-content status from the content cache and
// is the single source of truth for "is this content complete". It detects
// the transition into the ready state and schedules exactly one assembly for
// it.
package progress

import (
	"context"
	"sync"

	"github.com/jsbattig/share-things-sub002/internal/cache"
	"github.com/jsbattig/share-things-sub002/internal/logging"
	"github.com/jsbattig/share-things-sub002/internal/models"
)

// Scheduler is invoked once per transition into models.StatusReady. It must
// not block; kicking the assembly onto another goroutine is the caller's
// responsibility.
type Scheduler func(contentID string)

// Observer receives every derived progress update, e.g. for UI refresh.
type Observer func(models.ContentProgress)

type override struct {
	status models.Status
	detail string
}

// Tracker computes ContentProgress as a pure function of the cache stores,
// layered with the engine's assembling/terminal transitions.
type Tracker struct {
	mu         sync.Mutex
	overrides  map[string]override
	lastStatus map[string]models.Status

	cache    *cache.ContentCache
	schedule Scheduler
	observer Observer
	logger   logging.Logger
}

func NewTracker(c *cache.ContentCache, logger logging.Logger) *Tracker {
	return &Tracker{
		overrides:  make(map[string]override),
		lastStatus: make(map[string]models.Status),
		cache:      c,
		logger:     logger,
	}
}

// SetScheduler wires the assembly trigger. Set once during startup, before
// messages flow; the tracker and engine reference each other, so this cannot
// happen in the constructor.
func (t *Tracker) SetScheduler(s Scheduler) { t.schedule = s }

// SetObserver wires the progress observer (UI refresh hook).
func (t *Tracker) SetObserver(o Observer) { t.observer = o }

// Recompute derives the current progress for id after a cache mutation and
// fires the scheduler when the item just became ready. Safe to call from the
// cache change hook.
func (t *Tracker) Recompute(ctx context.Context, id string) models.ContentProgress {
	t.mu.Lock()

	// A failed attempt parks the item in the error state; fresh evidence
	// (this mutation) clears it so the item can become ready again.
	if ov, ok := t.overrides[id]; ok && ov.status == models.StatusError {
		delete(t.overrides, id)
	}

	p := t.derive(id)
	prev := t.lastStatus[id]
	t.lastStatus[id] = p.Status

	shouldSchedule := p.Status == models.StatusReady && prev != models.StatusReady
	t.mu.Unlock()

	t.notify(p)

	if shouldSchedule && t.schedule != nil {
		t.logger.Debug(ctx, "content ready, scheduling assembly", "contentId", id)
		t.schedule(id)
	}

	return p
}

// Progress returns the current progress without side effects. The second
// return value is false when nothing at all is known about the id.
func (t *Tracker) Progress(id string) (models.ContentProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, hasMeta := t.cache.GetMetadata(id)
	known := hasMeta || t.cache.FragmentCount(id) > 0
	if _, ok := t.overrides[id]; ok {
		known = true
	}
	if !known {
		return models.ContentProgress{}, false
	}
	return t.derive(id), true
}

// MarkAssembling records that the engine started assembling id. Subsequent
// recomputes will not schedule another assembly until the run finishes.
func (t *Tracker) MarkAssembling(ctx context.Context, id string) {
	t.mu.Lock()
	t.overrides[id] = override{status: models.StatusAssembling}
	t.lastStatus[id] = models.StatusAssembling
	p := t.derive(id)
	t.mu.Unlock()

	t.notify(p)
}

// MarkDone records a successful assembly and deletes the progress entry; the
// content item's lifecycle here is over.
func (t *Tracker) MarkDone(ctx context.Context, id string) {
	t.mu.Lock()
	expected := t.expectedCount(id)
	delete(t.overrides, id)
	delete(t.lastStatus, id)
	t.mu.Unlock()

	if expected == models.ExpectedCountUnknown {
		expected = 0
	}
	t.notify(models.ContentProgress{
		ContentID:     id,
		Status:        models.StatusDone,
		ReceivedCount: expected,
		ExpectedCount: expected,
	})
}

// Forget drops all tracked state for id without emitting a progress update.
// Used when the content item is removed outright.
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	delete(t.overrides, id)
	delete(t.lastStatus, id)
	t.mu.Unlock()
}

// MarkError records a failed assembly. A terminal failure (unusable bytes)
// also deletes the progress entry after notifying; a non-terminal one parks
// the item in the error state so a late fragment can re-trigger assembly.
func (t *Tracker) MarkError(ctx context.Context, id, detail string, terminal bool) {
	t.mu.Lock()
	if terminal {
		delete(t.overrides, id)
		delete(t.lastStatus, id)
	} else {
		t.overrides[id] = override{status: models.StatusError, detail: detail}
		t.lastStatus[id] = models.StatusError
	}
	received := t.cache.FragmentCount(id)
	expected := t.expectedCount(id)
	t.mu.Unlock()

	t.logger.Warn(ctx, "assembly failed", "contentId", id, "detail", detail, "terminal", terminal)
	t.notify(models.ContentProgress{
		ContentID:     id,
		Status:        models.StatusError,
		ReceivedCount: received,
		ExpectedCount: expected,
		ErrorDetail:   detail,
	})
}

// derive computes the progress from the two cache stores. Caller holds t.mu.
func (t *Tracker) derive(id string) models.ContentProgress {
	if ov, ok := t.overrides[id]; ok {
		return models.ContentProgress{
			ContentID:     id,
			Status:        ov.status,
			ReceivedCount: t.cache.FragmentCount(id),
			ExpectedCount: t.expectedCount(id),
			ErrorDetail:   ov.detail,
		}
	}

	meta, hasMeta := t.cache.GetMetadata(id)
	frags, _ := t.cache.GetFragments(id)
	received := len(frags)
	expected := t.expectedCount(id)

	p := models.ContentProgress{
		ContentID:     id,
		Status:        models.StatusReceiving,
		ReceivedCount: received,
		ExpectedCount: expected,
	}

	if hasMeta {
		// Non-chunked and large-external content is complete the instant
		// its record exists; no fragments are expected.
		if !meta.IsChunked || meta.IsLargeExternal {
			p.Status = models.StatusReady
			p.ReceivedCount = 1
			p.ExpectedCount = 1
			return p
		}
	}

	if expected != models.ExpectedCountUnknown && received == expected && covered(frags, expected) {
		// Ready even without metadata: the engine synthesizes a fallback
		// record, so completeness must not depend on metadata arrival order.
		p.Status = models.StatusReady
	}

	return p
}

// expectedCount resolves the declared fragment count from metadata first,
// then from any received fragment's own declaration. A chunked record whose
// declared count is zero or negative is malformed; its count is treated as
// unknown so the id cannot derive READY with no fragments.
func (t *Tracker) expectedCount(id string) int {
	if meta, ok := t.cache.GetMetadata(id); ok && meta.IsChunked && meta.DeclaredFragmentCount > 0 {
		return meta.DeclaredFragmentCount
	}
	frags, ok := t.cache.GetFragments(id)
	if !ok {
		return models.ExpectedCountUnknown
	}
	for _, f := range frags {
		if f.FragmentCount > 0 {
			return f.FragmentCount
		}
	}
	return models.ExpectedCountUnknown
}

// covered reports whether every index in [0, expected) is present.
func covered(frags map[int]*models.FragmentRecord, expected int) bool {
	for i := 0; i < expected; i++ {
		if _, ok := frags[i]; !ok {
			return false
		}
	}
	return true
}

func (t *Tracker) notify(p models.ContentProgress) {
	if t.observer != nil {
		t.observer(p)
	}
}
