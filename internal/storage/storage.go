// Package storage defines the external blob-store contract used for binary
// rendered artifacts and for large content whose bytes never travel as
// fragments.
package storage

import "context"

// BlobStore is the store/retrieve/delete contract the engine depends on.
// Implementations: diskcache (local filesystem) and s3store (S3-compatible
// object storage).
type BlobStore interface {
	// Store persists data under key, overwriting any previous value.
	Store(ctx context.Context, key string, data []byte) error

	// Retrieve returns the bytes stored under key, or an error wrapping
	// common.ErrNotFound when the key does not exist.
	Retrieve(ctx context.Context, key string) ([]byte, error)

	// Delete removes the blob. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
