// Package cryptox implements the symmetric crypto used for content
// fragments: argon2id key derivation from the shared session passphrase and
// AES-256-GCM encryption with a fresh IV per fragment.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/jsbattig/share-things-sub002/internal/common"
	"golang.org/x/crypto/argon2"
)

// DeriveSessionKey derives the shared symmetric key from the session
// passphrase. The session id acts as the salt, so every participant of the
// same session derives the same 32-byte key and can decrypt any other
// participant's fragments. Deterministic: same inputs, same key.
func DeriveSessionKey(passphrase, sessionID []byte) []byte {
	return argon2.IDKey(passphrase, sessionID, 1, 64*1024, 4, common.KeySize)
}

// EncryptFragment encrypts one plaintext fragment with AES-256-GCM.
// A new random 12-byte IV is generated for every fragment; an IV is never
// reused for the same key.
func EncryptFragment(key, plaintext []byte) (ciphertext, iv []byte, err error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	iv = common.GenerateRandByteArray(aesgcm.NonceSize())
	ciphertext = aesgcm.Seal(nil, iv, plaintext, nil)

	return ciphertext, iv, nil
}

// DecryptFragment decrypts one fragment. A failed GCM authentication check
// (wrong key or corrupted bytes) returns common.ErrDecryptionFailed; garbage
// plaintext is never returned.
func DecryptFragment(key, ciphertext, iv []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesgcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aesgcm, nil
}
