package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsbattig/share-things-sub002/internal/assembler"
	"github.com/jsbattig/share-things-sub002/internal/cache"
	"github.com/jsbattig/share-things-sub002/internal/common"
	"github.com/jsbattig/share-things-sub002/internal/cryptox"
	"github.com/jsbattig/share-things-sub002/internal/logging"
	"github.com/jsbattig/share-things-sub002/internal/models"
	"github.com/jsbattig/share-things-sub002/internal/progress"
	"github.com/jsbattig/share-things-sub002/internal/reclaimer"
	"github.com/jsbattig/share-things-sub002/internal/snapshot"
)

type sinkRecorder struct {
	mu        sync.Mutex
	artifacts []*models.RenderedArtifact
}

func (s *sinkRecorder) Present(ctx context.Context, a *models.RenderedArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = append(s.artifacts, a)
	return nil
}

func (s *sinkRecorder) all() []*models.RenderedArtifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.RenderedArtifact(nil), s.artifacts...)
}

type memBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (m *memBlobStore) Store(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (m *memBlobStore) Retrieve(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return data, nil
}

func (m *memBlobStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

// loopback feeds published messages straight back into the same service, so
// the sender and receiver sides of one process exercise each other.
type loopback struct {
	svc *ContentService

	mu       sync.Mutex
	metadata []models.MetadataMessage
}

func (l *loopback) SendMetadata(ctx context.Context, msg models.MetadataMessage) error {
	l.mu.Lock()
	l.metadata = append(l.metadata, msg)
	l.mu.Unlock()
	return l.svc.HandleMetadata(ctx, msg)
}

func (l *loopback) SendFragments(ctx context.Context, fragments []models.FragmentRecord) error {
	for i := range fragments {
		f := &fragments[i]
		err := l.svc.HandleFragment(ctx, models.FragmentMessage{
			ContentID:      f.ContentID,
			FragmentIndex:  f.Index,
			TotalFragments: f.FragmentCount,
			Ciphertext:     f.Ciphertext,
			IV:             f.IV,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *loopback) sentMetadata() []models.MetadataMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.MetadataMessage(nil), l.metadata...)
}

type displayStub struct{}

func (displayStub) AllFragmentsProcessed(string) bool { return true }

type svcFixture struct {
	svc  *ContentService
	sink *sinkRecorder
	pub  *loopback
	snap *snapshot.Store
}

func newService(t *testing.T, withSnap bool, extra ...Option) *svcFixture {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	c, err := cache.NewContentCache(logger)
	require.NoError(t, err)
	tr := progress.NewTracker(c, logger)

	key := cryptox.DeriveSessionKey([]byte("passphrase"), []byte("session"))
	provider := func() []byte { return key }

	sink := &sinkRecorder{}
	blobs := &memBlobStore{blobs: make(map[string][]byte)}
	eng, err := assembler.NewEngine(c, tr, provider, sink, blobs, logger,
		assembler.WithRetryDelay(10*time.Millisecond))
	require.NoError(t, err)

	rec, err := reclaimer.New(c, tr, displayStub{}, eng, logger)
	require.NoError(t, err)

	pub := &loopback{}
	opts := append([]Option{WithPublisher(pub)}, extra...)

	var snap *snapshot.Store
	if withSnap {
		snap, err = snapshot.Open(filepath.Join(t.TempDir(), "snap.db"), logger)
		require.NoError(t, err)
		t.Cleanup(func() { snap.Close() })
		opts = append(opts, WithSnapshot(snap))
	}

	svc := NewContentService("sender-1", "alice", c, tr, eng, rec, provider, logger, opts...)
	pub.svc = svc

	return &svcFixture{svc: svc, sink: sink, pub: pub, snap: snap}
}

func (f *svcFixture) waitForArtifact(t *testing.T) *models.RenderedArtifact {
	t.Helper()
	require.Eventually(t, func() bool { return len(f.sink.all()) == 1 },
		2*time.Second, 10*time.Millisecond)
	return f.sink.all()[0]
}

func TestSend_ChunkedRoundTrip(t *testing.T) {
	f := newService(t, false)
	ctx := context.Background()

	payload := bytes.Repeat([]byte("chunked payload "), 10000) // ~160 KB, 3 fragments
	id, err := f.svc.Send(ctx, payload, SendOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	meta := f.pub.sentMetadata()
	require.Len(t, meta, 1)
	assert.True(t, meta[0].IsChunked)
	assert.Equal(t, 3, meta[0].TotalFragments)
	assert.Empty(t, meta[0].InlineData)

	artifact := f.waitForArtifact(t)
	assert.Equal(t, id, artifact.ContentID)
	assert.Equal(t, "alice", artifact.SenderName)
	assert.Equal(t, string(payload), artifact.Text)
}

func TestSend_InlineRoundTrip(t *testing.T) {
	f := newService(t, false)
	ctx := context.Background()

	id, err := f.svc.Send(ctx, []byte("a short note"), SendOptions{})
	require.NoError(t, err)

	meta := f.pub.sentMetadata()
	require.Len(t, meta, 1)
	assert.False(t, meta[0].IsChunked)
	assert.NotEmpty(t, meta[0].InlineData)
	// inline payloads never travel in the clear
	assert.NotContains(t, string(meta[0].InlineData), "short note")

	artifact := f.waitForArtifact(t)
	assert.Equal(t, id, artifact.ContentID)
	assert.Equal(t, "a short note", artifact.Text)
}

func TestSend_LargeExternalPath(t *testing.T) {
	uploads := 0
	orig := uploadToPresignedURL
	uploadToPresignedURL = func(ctx context.Context, url string, data []byte) error {
		uploads++
		assert.Equal(t, "https://store.example/put", url)
		assert.NotEmpty(t, data)
		return nil
	}
	defer func() { uploadToPresignedURL = orig }()

	presigner := presignStub{url: "https://store.example/put"}
	f := newService(t, false, WithPresigner(presigner))
	ctx := context.Background()

	payload := bytes.Repeat([]byte{0x5A}, common.LargeContentThreshold)
	id, err := f.svc.Send(ctx, payload, SendOptions{ContentType: models.ContentTypeFile})
	require.NoError(t, err)

	meta := f.pub.sentMetadata()
	require.Len(t, meta, 1)
	assert.True(t, meta[0].IsLargeExternal)
	assert.Empty(t, meta[0].InlineData)
	assert.Equal(t, 1, uploads)

	// the receiving side reports it complete immediately
	artifact := f.waitForArtifact(t)
	assert.Equal(t, id, artifact.StorageKey)
	assert.Equal(t, int64(len(payload)), artifact.Size)
}

type presignStub struct{ url string }

func (p presignStub) PresignedPutURL(ctx context.Context, key string) (string, error) {
	return p.url, nil
}

func TestHandleFragment_DuplicateCausesNoRecompute(t *testing.T) {
	f := newService(t, false)
	ctx := context.Background()

	ciphertext, iv, err := cryptox.EncryptFragment(
		cryptox.DeriveSessionKey([]byte("passphrase"), []byte("session")), []byte("x"))
	require.NoError(t, err)

	msg := models.FragmentMessage{
		ContentID: "id-1", FragmentIndex: 0, TotalFragments: 2,
		Ciphertext: ciphertext, IV: iv,
	}
	require.NoError(t, f.svc.HandleFragment(ctx, msg))

	var updates int
	f.svc.tracker.SetObserver(func(models.ContentProgress) { updates++ })

	require.NoError(t, f.svc.HandleFragment(ctx, msg)) // duplicate
	assert.Zero(t, updates)
}

func TestRemoveContent(t *testing.T) {
	f := newService(t, true)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleMetadata(ctx, models.MetadataMessage{
		ContentID: "id-1", IsChunked: true, TotalFragments: 5,
	}))

	f.svc.RemoveContent(ctx, "id-1")
	f.svc.RemoveContent(ctx, "id-1") // idempotent

	_, ok := f.svc.cache.GetMetadata("id-1")
	assert.False(t, ok)

	rows, err := f.snap.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRestore(t *testing.T) {
	f := newService(t, true)
	ctx := context.Background()

	key := cryptox.DeriveSessionKey([]byte("passphrase"), []byte("session"))
	ciphertext, iv, err := cryptox.EncryptFragment(key, []byte("persisted"))
	require.NoError(t, err)

	require.NoError(t, f.snap.Save(ctx, &models.ContentRecord{
		ContentID:    "with-data",
		SenderName:   "alice",
		ContentType:  models.ContentTypeText,
		InlineData:   ciphertext,
		EncryptionIV: iv,
	}, true))
	require.NoError(t, f.snap.Save(ctx, &models.ContentRecord{
		ContentID: "placeholder", IsChunked: true, DeclaredFragmentCount: 7,
	}, false))

	refetch, err := f.svc.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"placeholder"}, refetch)

	// the row with data resumes its normal lifecycle and gets assembled
	artifact := f.waitForArtifact(t)
	assert.Equal(t, "with-data", artifact.ContentID)
	assert.Equal(t, "persisted", artifact.Text)

	// the placeholder must not appear in the cache as if it had data
	_, ok := f.svc.cache.GetMetadata("placeholder")
	assert.False(t, ok)
}
