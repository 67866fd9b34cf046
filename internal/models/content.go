// Package models defines the content, fragment and progress types shared by
// the cache, tracker and reassembly engine.
package models

import "time"

// ContentType classifies a content item.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
	ContentTypeFile  ContentType = "file"
	ContentTypeOther ContentType = "other"
)

// ContentRecord is the metadata half of a content item. One record per
// contentId. If IsChunked is false the content is complete the instant the
// record exists; no fragments are expected.
type ContentRecord struct {
	ContentID  string
	SenderID   string
	SenderName string

	ContentType ContentType
	MimeType    string

	// CreatedAt is the sender's logical timestamp, not a receiver clock.
	CreatedAt int64

	DeclaredSize int64

	IsChunked bool
	// DeclaredFragmentCount is meaningful only when IsChunked is true.
	DeclaredFragmentCount int

	IsPinned bool

	// IsLargeExternal marks content whose bytes live in the external blob
	// store rather than arriving as fragments.
	IsLargeExternal bool

	// EncryptionIV and InlineData are set for small non-chunked content sent
	// inline: InlineData is the whole ciphertext, decrypted directly.
	EncryptionIV []byte
	InlineData   []byte
}

// FragmentRecord is one encrypted slice of a chunked content item, keyed by
// (ContentID, Index). Owned by the content cache until the reassembly engine
// consumes it.
type FragmentRecord struct {
	ContentID     string
	Index         int
	FragmentCount int
	Ciphertext    []byte
	IV            []byte
}

// RenderedArtifact is the final decrypted content, created exactly once per
// content id by the reassembly engine. Text is held in memory; binary content
// is referenced by the key it was stored under in the external blob store.
type RenderedArtifact struct {
	ContentID   string
	ContentType ContentType
	MimeType    string
	SenderName  string
	Size        int64
	Pinned      bool

	// Exactly one of Text / StorageKey is meaningful, depending on ContentType.
	Text       string
	StorageKey string

	// LastAccessed feeds eviction of the rendered layer.
	LastAccessed time.Time
}

// Touch updates the last-accessed timestamp.
func (a *RenderedArtifact) Touch() {
	a.LastAccessed = time.Now()
}

// IsBinary reports whether the artifact bytes live in the blob store.
func (a *RenderedArtifact) IsBinary() bool {
	return a.StorageKey != ""
}
