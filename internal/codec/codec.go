// Package codec implements the fragment codec: deterministic slicing of a
// payload into fixed-size fragments, per-fragment encryption, and the inverse
// decrypt-and-concatenate operation.
package codec

import (
	"fmt"

	"github.com/jsbattig/share-things-sub002/internal/cryptox"
	"github.com/jsbattig/share-things-sub002/internal/models"
)

// Split slices payload into fragments of at most fragmentSize bytes. The last
// fragment may be shorter. An empty payload still yields exactly one
// zero-length fragment, so chunked content with zero bytes has a well-defined
// fragment count.
func Split(payload []byte, fragmentSize int) [][]byte {
	if fragmentSize <= 0 {
		panic(fmt.Sprintf("codec: invalid fragment size %d", fragmentSize))
	}

	if len(payload) == 0 {
		return [][]byte{{}}
	}

	fragments := make([][]byte, 0, (len(payload)+fragmentSize-1)/fragmentSize)
	for start := 0; start < len(payload); start += fragmentSize {
		end := start + fragmentSize
		if end > len(payload) {
			end = len(payload)
		}
		fragments = append(fragments, payload[start:end])
	}
	return fragments
}

// EncryptPayload splits payload and encrypts every fragment with its own IV,
// producing fragment records in index order, ready to publish.
func EncryptPayload(key, payload []byte, fragmentSize int, contentID string) ([]models.FragmentRecord, error) {
	raw := Split(payload, fragmentSize)

	records := make([]models.FragmentRecord, 0, len(raw))
	for i, fragment := range raw {
		ciphertext, iv, err := cryptox.EncryptFragment(key, fragment)
		if err != nil {
			return nil, fmt.Errorf("encrypt fragment %d: %w", i, err)
		}
		records = append(records, models.FragmentRecord{
			ContentID:     contentID,
			Index:         i,
			FragmentCount: len(raw),
			Ciphertext:    ciphertext,
			IV:            iv,
		})
	}
	return records, nil
}

// DecryptAll decrypts fragments, which must be sorted by index, and
// concatenates the plaintexts. It fails on the first fragment that does not
// authenticate.
func DecryptAll(key []byte, fragments []models.FragmentRecord) ([]byte, error) {
	var payload []byte
	for _, f := range fragments {
		plaintext, err := cryptox.DecryptFragment(key, f.Ciphertext, f.IV)
		if err != nil {
			return nil, fmt.Errorf("fragment %d: %w", f.Index, err)
		}
		payload = append(payload, plaintext...)
	}
	if payload == nil {
		payload = []byte{}
	}
	return payload, nil
}
