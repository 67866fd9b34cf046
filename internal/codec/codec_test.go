package codec

import (
	"bytes"
	"testing"

	"github.com/jsbattig/share-things-sub002/internal/common"
	"github.com/jsbattig/share-things-sub002/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name         string
		payloadLen   int
		fragmentSize int
		wantCount    int
		wantLastLen  int
	}{
		{"exact multiple", 128, 64, 2, 64},
		{"remainder", 130, 64, 3, 2},
		{"smaller than fragment", 10, 64, 1, 10},
		{"empty payload still one fragment", 0, 64, 1, 0},
		{"single byte", 1, 64, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := bytes.Repeat([]byte{0xAB}, tt.payloadLen)
			fragments := Split(payload, tt.fragmentSize)

			require.Len(t, fragments, tt.wantCount)
			assert.Len(t, fragments[len(fragments)-1], tt.wantLastLen)

			var total int
			for _, f := range fragments {
				total += len(f)
			}
			assert.Equal(t, tt.payloadLen, total)
		})
	}
}

func TestSplit_InvalidSizePanics(t *testing.T) {
	assert.Panics(t, func() { Split([]byte("x"), 0) })
}

func TestEncryptPayload_DecryptAll_RoundTrip(t *testing.T) {
	key := cryptox.DeriveSessionKey([]byte("passphrase"), []byte("session"))

	payloads := [][]byte{
		[]byte("short"),
		common.GenerateRandByteArray(200 * 1024),
		{},
	}

	for _, payload := range payloads {
		records, err := EncryptPayload(key, payload, common.FragmentSize, "content-1")
		require.NoError(t, err)

		for i, r := range records {
			assert.Equal(t, i, r.Index)
			assert.Equal(t, len(records), r.FragmentCount)
			assert.Equal(t, "content-1", r.ContentID)
		}

		got, err := DecryptAll(key, records)
		require.NoError(t, err)
		assert.Equal(t, append([]byte{}, payload...), got)
	}
}

func TestDecryptAll_WrongKey(t *testing.T) {
	key := cryptox.DeriveSessionKey([]byte("right"), []byte("session"))
	wrong := cryptox.DeriveSessionKey([]byte("wrong"), []byte("session"))

	records, err := EncryptPayload(key, []byte("payload"), 4, "content-1")
	require.NoError(t, err)

	_, err = DecryptAll(wrong, records)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}
