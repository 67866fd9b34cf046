// Package transport adapts the NATS session feed to the content engine. Each
// session exchanges JSON messages on two subjects, one for metadata records
// and one for encrypted fragments. The engine itself only sees the handler
// interface; the wire stays an external collaborator.
package transport

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/jsbattig/share-things-sub002/internal/models"
)

// MetadataSubject returns the session subject carrying metadata messages.
func MetadataSubject(sessionID string) string {
	return fmt.Sprintf("sharethings.session.%s.metadata", sessionID)
}

// FragmentSubject returns the session subject carrying fragment messages.
func FragmentSubject(sessionID string) string {
	return fmt.Sprintf("sharethings.session.%s.fragment", sessionID)
}

// MessageHandler consumes the two inbound message kinds. Implemented by the
// content service.
type MessageHandler interface {
	HandleMetadata(ctx context.Context, msg models.MetadataMessage) error
	HandleFragment(ctx context.Context, msg models.FragmentMessage) error
}

// Conn is the subset of *nats.Conn the transport uses.
type Conn interface {
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	Publish(subj string, data []byte) error
	Flush() error
}
