package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jsbattig/share-things-sub002/internal/logging"
	"github.com/jsbattig/share-things-sub002/internal/models"
)

// Sender publishes a content item's wire messages on the session subjects.
type Sender struct {
	conn      Conn
	sessionID string
	logger    logging.Logger
}

func NewSender(conn Conn, sessionID string, logger logging.Logger) *Sender {
	return &Sender{conn: conn, sessionID: sessionID, logger: logger}
}

// SendMetadata publishes the metadata message for a content item.
func (s *Sender) SendMetadata(ctx context.Context, msg models.MetadataMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal metadata %s: %w", msg.ContentID, err)
	}
	if err := s.conn.Publish(MetadataSubject(s.sessionID), data); err != nil {
		return fmt.Errorf("publish metadata %s: %w", msg.ContentID, err)
	}
	s.logger.Debug(ctx, "metadata published", "contentId", msg.ContentID,
		"chunked", msg.IsChunked, "fragments", msg.TotalFragments)
	return nil
}

// SendFragments publishes every fragment of a content item in index order and
// flushes the connection so the batch is on the wire before returning.
func (s *Sender) SendFragments(ctx context.Context, fragments []models.FragmentRecord) error {
	subject := FragmentSubject(s.sessionID)
	for i := range fragments {
		f := &fragments[i]
		msg := models.FragmentMessage{
			ContentID:      f.ContentID,
			FragmentIndex:  f.Index,
			TotalFragments: f.FragmentCount,
			Ciphertext:     f.Ciphertext,
			IV:             f.IV,
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal fragment %s/%d: %w", f.ContentID, f.Index, err)
		}
		if err := s.conn.Publish(subject, data); err != nil {
			return fmt.Errorf("publish fragment %s/%d: %w", f.ContentID, f.Index, err)
		}
	}
	if err := s.conn.Flush(); err != nil {
		return fmt.Errorf("flush fragments: %w", err)
	}
	if len(fragments) > 0 {
		s.logger.Debug(ctx, "fragments published",
			"contentId", fragments[0].ContentID, "count", len(fragments))
	}
	return nil
}
