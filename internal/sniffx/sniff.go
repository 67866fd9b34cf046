// Package sniffx infers a content type from leading payload bytes when the
// declared metadata is missing or unreliable. Only a small set of well-known
// binary signatures is recognized; anything else is left to the caller, which
// should fall back to plain text rather than guess an unsupported type.
package sniffx

import (
	"bytes"

	"github.com/jsbattig/share-things-sub002/internal/models"
)

type signature struct {
	prefix      []byte
	contentType models.ContentType
	mimeType    string
}

var signatures = []signature{
	{[]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, models.ContentTypeImage, "image/png"},
	{[]byte{0xFF, 0xD8, 0xFF}, models.ContentTypeImage, "image/jpeg"},
	{[]byte("GIF87a"), models.ContentTypeImage, "image/gif"},
	{[]byte("GIF89a"), models.ContentTypeImage, "image/gif"},
	{[]byte("%PDF-"), models.ContentTypeFile, "application/pdf"},
}

// Detect matches the leading bytes against known binary signatures.
// ok is false when no signature matches.
func Detect(leading []byte) (contentType models.ContentType, mimeType string, ok bool) {
	for _, s := range signatures {
		if bytes.HasPrefix(leading, s.prefix) {
			return s.contentType, s.mimeType, true
		}
	}
	return "", "", false
}

// DetectOrText is Detect with the conservative fallback applied: payloads
// that match no known signature are treated as plain text.
func DetectOrText(leading []byte) (models.ContentType, string) {
	if ct, mime, ok := Detect(leading); ok {
		return ct, mime
	}
	return models.ContentTypeText, "text/plain"
}
