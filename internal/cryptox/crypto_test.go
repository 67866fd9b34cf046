package cryptox

import (
	"bytes"
	"testing"

	"github.com/jsbattig/share-things-sub002/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSessionKey_Deterministic(t *testing.T) {
	passphrase := []byte("secret-passphrase")
	sessionID := []byte("session-42")

	key1 := DeriveSessionKey(passphrase, sessionID)
	key2 := DeriveSessionKey(passphrase, sessionID)

	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}
	assert.Len(t, key1, common.KeySize)
}

func TestDeriveSessionKey_DifferentInputs(t *testing.T) {
	key1 := DeriveSessionKey([]byte("passphrase"), []byte("session-a"))
	key2 := DeriveSessionKey([]byte("passphrase"), []byte("session-b"))
	key3 := DeriveSessionKey([]byte("other"), []byte("session-a"))

	if bytes.Equal(key1, key2) {
		t.Errorf("different sessions should yield different keys")
	}
	if bytes.Equal(key1, key3) {
		t.Errorf("different passphrases should yield different keys")
	}
}

func TestEncryptDecryptFragment_RoundTrip(t *testing.T) {
	key := DeriveSessionKey([]byte("passphrase"), []byte("session"))

	payloads := [][]byte{
		[]byte("hello world"),
		{},
		common.GenerateRandByteArray(64 * 1024),
	}

	for _, plaintext := range payloads {
		ciphertext, iv, err := EncryptFragment(key, plaintext)
		require.NoError(t, err)
		require.Len(t, iv, 12)

		got, err := DecryptFragment(key, ciphertext, iv)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncryptFragment_FreshIVs(t *testing.T) {
	key := DeriveSessionKey([]byte("passphrase"), []byte("session"))

	_, iv1, err := EncryptFragment(key, []byte("a"))
	require.NoError(t, err)
	_, iv2, err := EncryptFragment(key, []byte("a"))
	require.NoError(t, err)

	assert.NotEqual(t, iv1, iv2)
}

func TestDecryptFragment_WrongKey(t *testing.T) {
	key := DeriveSessionKey([]byte("right"), []byte("session"))
	wrong := DeriveSessionKey([]byte("wrong"), []byte("session"))

	ciphertext, iv, err := EncryptFragment(key, []byte("payload"))
	require.NoError(t, err)

	got, err := DecryptFragment(wrong, ciphertext, iv)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
	assert.Nil(t, got)
}

func TestDecryptFragment_CorruptedCiphertext(t *testing.T) {
	key := DeriveSessionKey([]byte("passphrase"), []byte("session"))

	ciphertext, iv, err := EncryptFragment(key, []byte("payload"))
	require.NoError(t, err)

	ciphertext[0] ^= 0xff
	_, err = DecryptFragment(key, ciphertext, iv)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}
