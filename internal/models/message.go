package models

// Wire shapes for the two inbound message kinds delivered by the transport
// collaborator. Field names follow the session protocol; []byte fields are
// base64 strings on the wire, which encoding/json handles natively.

// MetadataMessage announces a content item. When InlineData is present the
// content is small and non-chunked: the ciphertext is carried inline and
// decrypted directly with EncryptionIV.
type MetadataMessage struct {
	ContentID       string      `json:"contentId"`
	SenderID        string      `json:"senderId"`
	SenderName      string      `json:"senderName"`
	ContentType     ContentType `json:"contentType"`
	Timestamp       int64       `json:"timestamp"`
	MimeType        string      `json:"mimeType"`
	Size            int64       `json:"size"`
	IsChunked       bool        `json:"isChunked"`
	TotalFragments  int         `json:"totalFragments,omitempty"`
	TotalSize       int64       `json:"totalSize"`
	IsPinned        bool        `json:"isPinned"`
	IsLargeExternal bool        `json:"isLargeExternal,omitempty"`
	EncryptionIV    []byte      `json:"encryptionIv,omitempty"`
	InlineData      []byte      `json:"inlineData,omitempty"`
}

// Record converts the wire message into the cache's metadata record.
func (m MetadataMessage) Record() *ContentRecord {
	return &ContentRecord{
		ContentID:             m.ContentID,
		SenderID:              m.SenderID,
		SenderName:            m.SenderName,
		ContentType:           m.ContentType,
		MimeType:              m.MimeType,
		CreatedAt:             m.Timestamp,
		DeclaredSize:          m.TotalSize,
		IsChunked:             m.IsChunked,
		DeclaredFragmentCount: m.TotalFragments,
		IsPinned:              m.IsPinned,
		IsLargeExternal:       m.IsLargeExternal,
		EncryptionIV:          m.EncryptionIV,
		InlineData:            m.InlineData,
	}
}

// FragmentMessage carries one encrypted fragment.
type FragmentMessage struct {
	ContentID      string `json:"contentId"`
	FragmentIndex  int    `json:"fragmentIndex"`
	TotalFragments int    `json:"totalFragments"`
	Ciphertext     []byte `json:"ciphertext"`
	IV             []byte `json:"iv"`
}

// Record converts the wire message into the cache's fragment record.
func (m FragmentMessage) Record() *FragmentRecord {
	return &FragmentRecord{
		ContentID:     m.ContentID,
		Index:         m.FragmentIndex,
		FragmentCount: m.TotalFragments,
		Ciphertext:    m.Ciphertext,
		IV:            m.IV,
	}
}
