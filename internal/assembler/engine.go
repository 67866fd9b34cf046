// Package assembler implements the reassembly engine: once a content item is
// ready, its fragments are decrypted in index order, concatenated, type-checked
// and turned into a rendered artifact. At most one assembly runs per content
// id at any time.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/jsbattig/share-things-sub002/internal/cache"
	"github.com/jsbattig/share-things-sub002/internal/common"
	"github.com/jsbattig/share-things-sub002/internal/cryptox"
	"github.com/jsbattig/share-things-sub002/internal/logging"
	"github.com/jsbattig/share-things-sub002/internal/models"
	"github.com/jsbattig/share-things-sub002/internal/progress"
	"github.com/jsbattig/share-things-sub002/internal/sniffx"
	"github.com/jsbattig/share-things-sub002/internal/storage"
)

// ArtifactSink receives the rendered artifact; in the full application this
// is the presentation layer.
type ArtifactSink interface {
	Present(ctx context.Context, artifact *models.RenderedArtifact) error
}

// KeyProvider returns the current session key. Indirection rather than a
// fixed key, so a corrected passphrase applies to content that failed before.
type KeyProvider func() []byte

// Engine drives the RECEIVING → READY → ASSEMBLING → {DONE | ERROR} state
// machine for each content item.
type Engine struct {
	// mu guards inflight and removed.
	mu       sync.Mutex
	inflight map[string]struct{}
	removed  map[string]struct{}

	cache   *cache.ContentCache
	tracker *progress.Tracker
	key     KeyProvider
	sink    ArtifactSink
	blobs   storage.BlobStore
	logger  logging.Logger
	metrics *engineMetrics

	// retryDelay is the single delayed retry applied when metadata is still
	// in flight while all fragments have already arrived.
	retryDelay time.Duration
}

func NewEngine(c *cache.ContentCache, t *progress.Tracker, key KeyProvider,
	sink ArtifactSink, blobs storage.BlobStore, logger logging.Logger, opts ...Option) (*Engine, error) {

	e := &Engine{
		inflight:   make(map[string]struct{}),
		removed:    make(map[string]struct{}),
		cache:      c,
		tracker:    t,
		key:        key,
		sink:       sink,
		blobs:      blobs,
		logger:     logger,
		retryDelay: 500 * time.Millisecond,
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.retryDelay > 0 {
		e.retryDelay = o.retryDelay
	}
	if o.metricsReg != nil {
		m, err := newEngineMetrics(o.metricsReg)
		if err != nil {
			return nil, err
		}
		e.metrics = m
	}

	return e, nil
}

// Assemble runs one assembly for id. A request for an id already in flight is
// a silent no-op: logically concurrent triggers (a fragment arrival and a
// delayed retry timer) may both land here, and exactly one must win.
func (e *Engine) Assemble(ctx context.Context, id string) error {
	e.mu.Lock()
	if _, busy := e.inflight[id]; busy {
		e.mu.Unlock()
		e.logger.Debug(ctx, "assembly already in flight", "contentId", id)
		return nil
	}
	e.inflight[id] = struct{}{}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.inflight, id)
		delete(e.removed, id)
		e.mu.Unlock()
	}()

	e.tracker.MarkAssembling(ctx, id)

	err := e.assemble(ctx, id)
	if err != nil {
		e.record(outcomeFor(err))
		return err
	}
	e.record("done")
	return nil
}

// MarkRemoved flags id as removed while an assembly may be in flight. The
// assembly then finishes quietly without presenting the artifact, leaving
// the system as if the content had been fully removed.
func (e *Engine) MarkRemoved(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[id]; busy {
		e.removed[id] = struct{}{}
	}
}

// InFlight reports whether an assembly for id is currently running.
func (e *Engine) InFlight(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, busy := e.inflight[id]
	return busy
}

func (e *Engine) isRemoved(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, gone := e.removed[id]
	return gone
}

func (e *Engine) assemble(ctx context.Context, id string) error {
	meta, err := e.resolveMetadata(ctx, id)
	if err != nil {
		e.fail(ctx, id, "metadata unresolved: no usable record or fragment", false)
		return err
	}

	// Large-external content never travels as fragments; its bytes already
	// live in the external store under the content id.
	if meta.IsLargeExternal {
		return e.finish(ctx, id, &models.RenderedArtifact{
			ContentID:   id,
			ContentType: meta.ContentType,
			MimeType:    meta.MimeType,
			SenderName:  meta.SenderName,
			Size:        meta.DeclaredSize,
			Pinned:      meta.IsPinned,
			StorageKey:  id,
		})
	}

	var payload []byte
	if meta.IsChunked {
		payload, err = e.decryptFragments(ctx, id, meta)
		if err != nil {
			return err
		}
	} else {
		payload, err = e.decryptInline(ctx, id, meta)
		if err != nil {
			return err
		}
	}

	contentType, mimeType := meta.ContentType, meta.MimeType
	if contentType == "" || contentType == models.ContentTypeOther || meta.SenderID == "" {
		if ct, mime, ok := sniffx.Detect(payload); ok {
			contentType, mimeType = ct, mime
		} else if contentType == "" || contentType == models.ContentTypeOther {
			contentType, mimeType = models.ContentTypeText, "text/plain"
		}
	}

	artifact := &models.RenderedArtifact{
		ContentID:   id,
		ContentType: contentType,
		MimeType:    mimeType,
		SenderName:  meta.SenderName,
		Size:        int64(len(payload)),
		Pinned:      meta.IsPinned,
	}

	if contentType == models.ContentTypeText {
		artifact.Text = string(payload)
	} else {
		if err := e.blobs.Store(ctx, id, payload); err != nil {
			e.fail(ctx, id, fmt.Sprintf("storing artifact: %v", err), false)
			return fmt.Errorf("store artifact %s: %w", id, err)
		}
		artifact.StorageKey = id
	}

	return e.finish(ctx, id, artifact)
}

// resolveMetadata returns the metadata record for id, synthesizing a minimal
// fallback one when none has arrived: content integrity must not depend on
// metadata arrival order. One delayed retry absorbs the race where metadata
// is still in flight.
func (e *Engine) resolveMetadata(ctx context.Context, id string) (*models.ContentRecord, error) {
	var meta *models.ContentRecord

	backoff := retry.WithMaxRetries(1, retry.NewConstant(e.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if rec, ok := e.cache.GetMetadata(id); ok {
			meta = rec
			return nil
		}
		if rec, ok := e.synthesizeMetadata(ctx, id); ok {
			meta = rec
			return nil
		}
		return retry.RetryableError(common.ErrUnresolvedMetadata)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve metadata %s: %w", id, common.ErrUnresolvedMetadata)
	}
	return meta, nil
}

// synthesizeMetadata builds a fallback record from the fragments alone:
// sender unknown, content type sniffed from the first decrypted fragment.
func (e *Engine) synthesizeMetadata(ctx context.Context, id string) (*models.ContentRecord, bool) {
	frags, ok := e.cache.GetFragments(id)
	if !ok || len(frags) == 0 {
		return nil, false
	}
	first, ok := frags[0]
	if !ok {
		return nil, false
	}

	rec := &models.ContentRecord{
		ContentID:             id,
		SenderName:            "unknown",
		IsChunked:             true,
		DeclaredFragmentCount: first.FragmentCount,
	}
	if rec.DeclaredFragmentCount <= 0 {
		rec.DeclaredFragmentCount = len(frags)
	}

	// Type sniffing is best-effort here; a wrong key will surface as a
	// decryption failure in the main pass anyway.
	if head, err := cryptox.DecryptFragment(e.key(), first.Ciphertext, first.IV); err == nil {
		rec.ContentType, rec.MimeType = sniffx.DetectOrText(head)
	}

	e.logger.Info(ctx, "metadata synthesized from fragments",
		"contentId", id, "fragments", rec.DeclaredFragmentCount, "contentType", rec.ContentType)
	return rec, true
}

// decryptFragments verifies coverage and decrypts the fragments in index
// order. The two failure modes differ deliberately: a coverage mismatch keeps
// the fragment store (a late fragment can retry), a decryption failure purges
// it (the bytes are unusable).
func (e *Engine) decryptFragments(ctx context.Context, id string, meta *models.ContentRecord) ([]byte, error) {
	frags, ok := e.cache.GetFragments(id)
	if !ok {
		e.fail(ctx, id, "missing fragment: store is empty", false)
		return nil, fmt.Errorf("content %s: %w", id, common.ErrMissingFragment)
	}

	// A chunked record without a usable declared count defers to what the
	// fragments themselves declare.
	expected := meta.DeclaredFragmentCount
	if expected <= 0 {
		for _, f := range frags {
			if f.FragmentCount > 0 {
				expected = f.FragmentCount
				break
			}
		}
	}
	if expected <= 0 {
		expected = len(frags)
	}

	for i := 0; i < expected; i++ {
		if _, present := frags[i]; !present {
			e.fail(ctx, id, fmt.Sprintf("missing fragment %d of %d", i, expected), false)
			return nil, fmt.Errorf("content %s fragment %d: %w", id, i, common.ErrMissingFragment)
		}
	}

	var payload []byte
	for i := 0; i < expected; i++ {
		f := frags[i]
		plaintext, err := cryptox.DecryptFragment(e.key(), f.Ciphertext, f.IV)
		if err != nil {
			detail := fmt.Sprintf("decryption failed at fragment %d: wrong passphrase or corrupted data", f.Index)
			e.fail(ctx, id, detail, true)
			e.cache.RemoveFragments(ctx, id)
			return nil, fmt.Errorf("content %s: %w", id, err)
		}
		payload = append(payload, plaintext...)
	}
	if payload == nil {
		payload = []byte{}
	}
	return payload, nil
}

// decryptInline decrypts small non-chunked content carried inline in the
// metadata message.
func (e *Engine) decryptInline(ctx context.Context, id string, meta *models.ContentRecord) ([]byte, error) {
	if len(meta.InlineData) == 0 {
		return []byte{}, nil
	}
	payload, err := cryptox.DecryptFragment(e.key(), meta.InlineData, meta.EncryptionIV)
	if err != nil {
		e.fail(ctx, id, "decryption failed: wrong passphrase or corrupted data", true)
		return nil, fmt.Errorf("content %s inline: %w", id, err)
	}
	return payload, nil
}

// finish presents the artifact (unless the content was removed mid-flight),
// records the terminal transition and frees the cache entries.
func (e *Engine) finish(ctx context.Context, id string, artifact *models.RenderedArtifact) error {
	if e.isRemoved(id) {
		e.logger.Info(ctx, "content removed during assembly, discarding artifact", "contentId", id)
		e.tracker.Forget(id)
		e.cache.Remove(ctx, id)
		return fmt.Errorf("content %s: %w", id, common.ErrContentRemoved)
	}

	artifact.Touch()
	if err := e.sink.Present(ctx, artifact); err != nil {
		e.fail(ctx, id, fmt.Sprintf("presenting artifact: %v", err), false)
		return fmt.Errorf("present artifact %s: %w", id, err)
	}

	e.tracker.MarkDone(ctx, id)
	e.cache.Remove(ctx, id)
	e.logger.Info(ctx, "content assembled", "contentId", id,
		"contentType", artifact.ContentType, "size", artifact.Size)
	return nil
}

// fail records an assembly failure. When the content was removed while the
// run was in flight, or the cache no longer knows the id at all, tracker
// state must not be re-created for it: the id is forgotten instead, leaving
// the system as if the content had been fully removed.
func (e *Engine) fail(ctx context.Context, id, detail string, terminal bool) {
	_, hasMeta := e.cache.GetMetadata(id)
	known := hasMeta || e.cache.FragmentCount(id) > 0

	if e.isRemoved(id) || !known {
		e.logger.Debug(ctx, "assembly failed for removed content, dropping state",
			"contentId", id, "detail", detail)
		e.tracker.Forget(id)
		e.cache.Remove(ctx, id)
		return
	}

	e.tracker.MarkError(ctx, id, detail, terminal)
}

func (e *Engine) record(outcome string) {
	if e.metrics != nil {
		e.metrics.recordAssembly(outcome)
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, common.ErrDecryptionFailed):
		return "decryption_error"
	case errors.Is(err, common.ErrMissingFragment):
		return "missing_fragment"
	case errors.Is(err, common.ErrUnresolvedMetadata):
		return "unresolved_metadata"
	case errors.Is(err, common.ErrContentRemoved):
		return "removed"
	default:
		return "error"
	}
}
