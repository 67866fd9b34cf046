// Package cache implements the receiver-side content cache: a metadata store
// (one record per content item) and a fragment store (per content item, a
// sparse index→fragment map). The two stores have decoupled lifecycles
// because either side may arrive first.
//
// The cache is the single authoritative copy of this state. Interested
// parties observe it through the change notification hook instead of holding
// their own mirror.
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jsbattig/share-things-sub002/internal/logging"
	"github.com/jsbattig/share-things-sub002/internal/models"
)

// ContentCache accumulates metadata and fragments as they arrive from the
// transport, in any order. All per-id mutations are serialized by a lock per
// content id, so unrelated content items never contend.
type ContentCache struct {
	// mu guards the three maps below. Held only for short map accesses;
	// logical per-id sequences are serialized by the per-id locks.
	mu        sync.RWMutex
	metadata  map[string]*models.ContentRecord
	fragments map[string]map[int]*models.FragmentRecord
	locks     map[string]*sync.Mutex

	reconcileIDs bool
	onChange     func(contentID string)
	metrics      *cacheMetrics
	logger       logging.Logger
}

// NewContentCache builds an empty cache. See the Option functions for
// reconciliation, notification and metrics hooks.
func NewContentCache(logger logging.Logger, opts ...Option) (*ContentCache, error) {
	c := &ContentCache{
		metadata:  make(map[string]*models.ContentRecord),
		fragments: make(map[string]map[int]*models.FragmentRecord),
		locks:     make(map[string]*sync.Mutex),
		logger:    logger,
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	c.reconcileIDs = o.reconcileIDs
	c.onChange = o.onChange

	if o.metricsReg != nil {
		m, err := newCacheMetrics(o.metricsReg)
		if err != nil {
			return nil, err
		}
		c.metrics = m
	}

	return c, nil
}

// idLock returns the mutex serializing mutations for one content id.
func (c *ContentCache) idLock(id string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	return l
}

// PutMetadata stores or updates the metadata record for a content item.
// Idempotent: a second record for the same id overwrites progress inputs but
// never discards a fragment store that already started accumulating.
func (c *ContentCache) PutMetadata(ctx context.Context, rec *models.ContentRecord) {
	l := c.idLock(rec.ContentID)
	l.Lock()

	c.mu.Lock()
	_, existed := c.metadata[rec.ContentID]
	c.metadata[rec.ContentID] = rec
	live := len(c.metadata)
	c.mu.Unlock()

	l.Unlock()

	if existed {
		c.logger.Debug(ctx, "metadata updated", "contentId", rec.ContentID)
	} else {
		c.logger.Debug(ctx, "metadata stored", "contentId", rec.ContentID,
			"chunked", rec.IsChunked, "fragments", rec.DeclaredFragmentCount)
	}

	if c.metrics != nil {
		c.metrics.updateEntries(live)
	}
	c.notify(rec.ContentID)
}

// PutFragment stores one fragment. Duplicates on (contentId, fragmentIndex)
// are dropped without touching the received counter and without firing the
// change notification. Returns true when the fragment was actually stored.
func (c *ContentCache) PutFragment(ctx context.Context, rec *models.FragmentRecord) bool {
	id := rec.ContentID
	if c.reconcileIDs {
		if resolved := c.resolveID(id); resolved != id {
			c.logger.Warn(ctx, "fragment id reconciled by prefix match",
				"received", id, "resolved", resolved)
			id = resolved
			rec.ContentID = resolved
		}
	}

	l := c.idLock(id)
	l.Lock()

	c.mu.Lock()
	frags, ok := c.fragments[id]
	if !ok {
		frags = make(map[int]*models.FragmentRecord)
		c.fragments[id] = frags
	}
	if _, dup := frags[rec.Index]; dup {
		c.mu.Unlock()
		l.Unlock()
		c.logger.Debug(ctx, "duplicate fragment dropped",
			"contentId", id, "index", rec.Index)
		if c.metrics != nil {
			c.metrics.recordDuplicate()
		}
		return false
	}
	frags[rec.Index] = rec
	received := len(frags)
	c.mu.Unlock()

	l.Unlock()

	c.logger.Debug(ctx, "fragment stored", "contentId", id,
		"index", rec.Index, "received", received, "total", rec.FragmentCount)

	if c.metrics != nil {
		c.metrics.recordFragment()
	}
	c.notify(id)
	return true
}

// GetMetadata returns the metadata record for id. The second return value
// distinguishes "not yet arrived" from any zero value.
func (c *ContentCache) GetMetadata(id string) (*models.ContentRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.metadata[id]
	return rec, ok
}

// GetFragments returns a snapshot of the fragment map for id. The snapshot is
// safe to iterate while new fragments keep arriving; absence is reported
// explicitly.
func (c *ContentCache) GetFragments(id string) (map[int]*models.FragmentRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	frags, ok := c.fragments[id]
	if !ok {
		return nil, false
	}
	snapshot := make(map[int]*models.FragmentRecord, len(frags))
	for k, v := range frags {
		snapshot[k] = v
	}
	return snapshot, true
}

// FragmentCount returns the number of distinct fragments stored for id.
func (c *ContentCache) FragmentCount(id string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.fragments[id])
}

// Remove deletes both the metadata and fragment entries for id. Idempotent;
// safe to call while an assembly for the same id is in flight.
func (c *ContentCache) Remove(ctx context.Context, id string) {
	l := c.idLock(id)
	l.Lock()
	defer l.Unlock()

	c.mu.Lock()
	_, hadMeta := c.metadata[id]
	_, hadFrags := c.fragments[id]
	delete(c.metadata, id)
	delete(c.fragments, id)
	delete(c.locks, id)
	live := len(c.metadata)
	c.mu.Unlock()

	if hadMeta || hadFrags {
		c.logger.Debug(ctx, "content entry removed", "contentId", id)
	}
	if c.metrics != nil {
		c.metrics.updateEntries(live)
	}
}

// RemoveFragments purges only the fragment store for id, keeping metadata.
// Used when decryption failed and the accumulated bytes are unusable.
func (c *ContentCache) RemoveFragments(ctx context.Context, id string) {
	l := c.idLock(id)
	l.Lock()
	defer l.Unlock()

	c.mu.Lock()
	delete(c.fragments, id)
	c.mu.Unlock()

	c.logger.Debug(ctx, "fragment store purged", "contentId", id)
}

// IDs returns all content ids known to either store, sorted for determinism.
func (c *ContentCache) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{}, len(c.metadata)+len(c.fragments))
	for id := range c.metadata {
		seen[id] = struct{}{}
	}
	for id := range c.fragments {
		seen[id] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FragmentOnlyIDs returns ids that have accumulated fragments but no
// metadata record. These are the sweep candidates for the reclaimer.
func (c *ContentCache) FragmentOnlyIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var ids []string
	for id := range c.fragments {
		if _, ok := c.metadata[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// resolveID performs the best-effort prefix reconciliation between an
// incoming fragment id and known metadata ids. It tolerates id-formatting
// mismatches between senders and receivers observed in the original system;
// it is a compatibility workaround, not a protocol feature, and is only
// active when the cache was built with WithIDReconciliation.
func (c *ContentCache) resolveID(id string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.metadata[id]; ok {
		return id
	}
	for known := range c.metadata {
		if strings.HasPrefix(id, known) || strings.HasPrefix(known, id) {
			return known
		}
	}
	return id
}

func (c *ContentCache) notify(id string) {
	if c.onChange != nil {
		c.onChange(id)
	}
}
