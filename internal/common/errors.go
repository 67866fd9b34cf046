// Package common contains shared constants, sentinel errors and small
// utilities used across ShareThings components. Callers should use errors.Is
// to match the sentinel values.
package common

import "errors"

var (
	// Store-level errors.
	ErrNotFound = errors.New("not found")

	// Transfer errors. ErrDecryptionFailed is terminal for a content item:
	// its fragments are unusable and the cache entry is purged.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrMissingFragment means the received count matched the expected count
	// but an index in [0, expected) was absent. Terminal for the current
	// assembly attempt only; the fragment store is preserved.
	ErrMissingFragment = errors.New("missing fragment")

	// ErrUnresolvedMetadata means no metadata record could be found or
	// synthesized for a content item that is otherwise ready.
	ErrUnresolvedMetadata = errors.New("unresolved metadata")

	// ErrContentRemoved is reported when a removal raced with an in-flight
	// assembly and the removal won.
	ErrContentRemoved = errors.New("content removed")

	// Generic service errors.
	ErrInternal = errors.New("internal error")
)
