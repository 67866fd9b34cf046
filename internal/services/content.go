// Package services exposes the content engine as one facade: inbound wire
// messages in, rendered artifacts out, plus the sender-side split/encrypt
// path and snapshot restore.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jsbattig/share-things-sub002/internal/assembler"
	"github.com/jsbattig/share-things-sub002/internal/cache"
	"github.com/jsbattig/share-things-sub002/internal/codec"
	"github.com/jsbattig/share-things-sub002/internal/common"
	"github.com/jsbattig/share-things-sub002/internal/cryptox"
	"github.com/jsbattig/share-things-sub002/internal/logging"
	"github.com/jsbattig/share-things-sub002/internal/models"
	"github.com/jsbattig/share-things-sub002/internal/netx"
	"github.com/jsbattig/share-things-sub002/internal/progress"
	"github.com/jsbattig/share-things-sub002/internal/reclaimer"
	"github.com/jsbattig/share-things-sub002/internal/sniffx"
	"github.com/jsbattig/share-things-sub002/internal/snapshot"
)

// Publisher pushes wire messages onto the session feed. Implemented by
// transport.Sender.
type Publisher interface {
	SendMetadata(ctx context.Context, msg models.MetadataMessage) error
	SendFragments(ctx context.Context, fragments []models.FragmentRecord) error
}

// Presigner issues upload URLs for large-external content. Implemented by
// s3store.S3Store.
type Presigner interface {
	PresignedPutURL(ctx context.Context, key string) (string, error)
}

// Test seam.
var uploadToPresignedURL = netx.UploadToPresignedURL

// ContentService is the facade over the cache, tracker, engine and reclaimer.
// It is the only mutation path for inbound messages, so every cache change
// goes through exactly one progress recompute.
type ContentService struct {
	senderID   string
	senderName string

	cache     *cache.ContentCache
	tracker   *progress.Tracker
	engine    *assembler.Engine
	reclaimer *reclaimer.Reclaimer
	key       assembler.KeyProvider
	logger    logging.Logger

	snap      *snapshot.Store
	publisher Publisher
	presigner Presigner
}

func NewContentService(senderID, senderName string, c *cache.ContentCache,
	tr *progress.Tracker, eng *assembler.Engine, rec *reclaimer.Reclaimer,
	key assembler.KeyProvider, logger logging.Logger, opts ...Option) *ContentService {

	s := &ContentService{
		senderID:   senderID,
		senderName: senderName,
		cache:      c,
		tracker:    tr,
		engine:     eng,
		reclaimer:  rec,
		key:        key,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	// A transition into the ready state kicks the assembly onto its own
	// goroutine; the scheduler itself must not block.
	tr.SetScheduler(func(id string) {
		go func() {
			if err := eng.Assemble(context.Background(), id); err != nil {
				logger.Warn(context.Background(), "scheduled assembly failed",
					"contentId", id, "error", err)
			}
		}()
	})

	return s
}

// HandleMetadata stores an inbound metadata record and recomputes progress.
func (s *ContentService) HandleMetadata(ctx context.Context, msg models.MetadataMessage) error {
	rec := msg.Record()
	s.cache.PutMetadata(ctx, rec)

	if s.snap != nil {
		// Chunked content is snapshotted as a placeholder until its bytes
		// exist somewhere durable; inline and large-external content carries
		// or references its bytes already.
		hasData := len(rec.InlineData) > 0 || rec.IsLargeExternal
		if err := s.snap.Save(ctx, rec, hasData); err != nil {
			s.logger.Warn(ctx, "snapshot save failed", "contentId", rec.ContentID, "error", err)
		}
	}

	s.tracker.Recompute(ctx, rec.ContentID)
	return nil
}

// HandleFragment stores an inbound fragment and recomputes progress.
// Duplicates are dropped by the cache and cause no recompute.
func (s *ContentService) HandleFragment(ctx context.Context, msg models.FragmentMessage) error {
	rec := msg.Record()
	if stored := s.cache.PutFragment(ctx, rec); !stored {
		return nil
	}
	s.tracker.Recompute(ctx, rec.ContentID)
	return nil
}

// RemoveContent removes a content item outright. Safe to call while an
// assembly for the same id is in flight: the finished artifact is then
// discarded instead of presented. Idempotent.
func (s *ContentService) RemoveContent(ctx context.Context, id string) {
	s.engine.MarkRemoved(id)
	s.reclaimer.ReclaimContent(ctx, id)

	if s.snap != nil {
		if err := s.snap.Remove(ctx, id); err != nil {
			s.logger.Warn(ctx, "snapshot remove failed", "contentId", id, "error", err)
		}
	}
	s.logger.Info(ctx, "content removed", "contentId", id)
}

// SendOptions selects the declared type of an outbound payload. Zero values
// mean "sniff it".
type SendOptions struct {
	ContentType models.ContentType
	MimeType    string
	Pinned      bool
}

// Send encrypts and publishes one payload on the session feed, picking the
// path by size: inline for anything that fits one fragment, presigned
// external upload past the large-content threshold, chunked fragments in
// between. Returns the new content id.
func (s *ContentService) Send(ctx context.Context, payload []byte, opts SendOptions) (string, error) {
	if s.publisher == nil {
		return "", fmt.Errorf("send: %w: no publisher configured", common.ErrInternal)
	}

	id := uuid.NewString()
	contentType, mimeType := opts.ContentType, opts.MimeType
	if contentType == "" {
		contentType, mimeType = sniffx.DetectOrText(payload)
	}

	meta := models.MetadataMessage{
		ContentID:   id,
		SenderID:    s.senderID,
		SenderName:  s.senderName,
		ContentType: contentType,
		MimeType:    mimeType,
		Timestamp:   time.Now().UnixMilli(),
		Size:        int64(len(payload)),
		TotalSize:   int64(len(payload)),
		IsPinned:    opts.Pinned,
	}

	switch {
	case len(payload) >= common.LargeContentThreshold && s.presigner != nil:
		ciphertext, iv, err := cryptox.EncryptFragment(s.key(), payload)
		if err != nil {
			return "", fmt.Errorf("encrypt large content %s: %w", id, err)
		}
		url, err := s.presigner.PresignedPutURL(ctx, id)
		if err != nil {
			return "", fmt.Errorf("presign upload %s: %w", id, err)
		}
		if err := uploadToPresignedURL(ctx, url, ciphertext); err != nil {
			return "", fmt.Errorf("upload large content %s: %w", id, err)
		}
		meta.IsLargeExternal = true
		meta.EncryptionIV = iv
		if err := s.publisher.SendMetadata(ctx, meta); err != nil {
			return "", err
		}
		s.logger.Info(ctx, "large content sent", "contentId", id, "size", len(payload))

	case len(payload) <= common.FragmentSize:
		ciphertext, iv, err := cryptox.EncryptFragment(s.key(), payload)
		if err != nil {
			return "", fmt.Errorf("encrypt inline content %s: %w", id, err)
		}
		meta.EncryptionIV = iv
		meta.InlineData = ciphertext
		if err := s.publisher.SendMetadata(ctx, meta); err != nil {
			return "", err
		}
		s.logger.Info(ctx, "inline content sent", "contentId", id, "size", len(payload))

	default:
		fragments, err := codec.EncryptPayload(s.key(), payload, common.FragmentSize, id)
		if err != nil {
			return "", fmt.Errorf("encrypt chunked content %s: %w", id, err)
		}
		meta.IsChunked = true
		meta.TotalFragments = len(fragments)
		if err := s.publisher.SendMetadata(ctx, meta); err != nil {
			return "", err
		}
		if err := s.publisher.SendFragments(ctx, fragments); err != nil {
			return "", err
		}
		s.logger.Info(ctx, "chunked content sent", "contentId", id,
			"size", len(payload), "fragments", len(fragments))
	}

	return id, nil
}

// Restore reloads the snapshot into the cache. Rows persisted with their
// bytes resume normally; placeholder rows are returned as ids that must be
// re-requested from the session, never reconstructed locally.
func (s *ContentService) Restore(ctx context.Context) ([]string, error) {
	if s.snap == nil {
		return nil, nil
	}

	rows, err := s.snap.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}

	var refetch []string
	for i := range rows {
		row := &rows[i]
		if !row.HasData {
			refetch = append(refetch, row.Record.ContentID)
			continue
		}
		rec := row.Record
		s.cache.PutMetadata(ctx, &rec)
		s.tracker.Recompute(ctx, rec.ContentID)
	}

	s.logger.Info(ctx, "snapshot restored",
		"restored", len(rows)-len(refetch), "refetch", len(refetch))
	return refetch, nil
}
