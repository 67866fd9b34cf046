package transport

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/jsbattig/share-things-sub002/internal/logging"
	"github.com/jsbattig/share-things-sub002/internal/models"
)

// Receiver subscribes to one session's subjects and feeds decoded messages to
// the handler. Malformed messages are logged and dropped; they must never
// take the subscription down.
type Receiver struct {
	conn      Conn
	sessionID string
	handler   MessageHandler
	logger    logging.Logger

	subs []*nats.Subscription
}

func NewReceiver(conn Conn, sessionID string, handler MessageHandler, logger logging.Logger) *Receiver {
	return &Receiver{
		conn:      conn,
		sessionID: sessionID,
		handler:   handler,
		logger:    logger,
	}
}

// Start subscribes to the session's metadata and fragment subjects.
func (r *Receiver) Start(ctx context.Context) error {
	metaSub, err := r.conn.Subscribe(MetadataSubject(r.sessionID), func(msg *nats.Msg) {
		r.onMetadata(ctx, msg)
	})
	if err != nil {
		return err
	}
	r.subs = append(r.subs, metaSub)

	fragSub, err := r.conn.Subscribe(FragmentSubject(r.sessionID), func(msg *nats.Msg) {
		r.onFragment(ctx, msg)
	})
	if err != nil {
		r.Stop()
		return err
	}
	r.subs = append(r.subs, fragSub)

	r.logger.Info(ctx, "session feed subscribed", "sessionId", r.sessionID)
	return nil
}

// Stop unsubscribes from all session subjects.
func (r *Receiver) Stop() {
	for _, sub := range r.subs {
		_ = sub.Unsubscribe()
	}
	r.subs = nil
}

func (r *Receiver) onMetadata(ctx context.Context, msg *nats.Msg) {
	var m models.MetadataMessage
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		r.logger.Warn(ctx, "dropping malformed metadata message", "error", err)
		return
	}
	if m.ContentID == "" {
		r.logger.Warn(ctx, "dropping metadata message without content id")
		return
	}
	if err := r.handler.HandleMetadata(ctx, m); err != nil {
		r.logger.Error(ctx, "metadata handler failed", "contentId", m.ContentID, "error", err)
	}
}

func (r *Receiver) onFragment(ctx context.Context, msg *nats.Msg) {
	var m models.FragmentMessage
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		r.logger.Warn(ctx, "dropping malformed fragment message", "error", err)
		return
	}
	if m.ContentID == "" || m.FragmentIndex < 0 {
		r.logger.Warn(ctx, "dropping invalid fragment message",
			"contentId", m.ContentID, "index", m.FragmentIndex)
		return
	}
	if err := r.handler.HandleFragment(ctx, m); err != nil {
		r.logger.Error(ctx, "fragment handler failed",
			"contentId", m.ContentID, "index", m.FragmentIndex, "error", err)
	}
}
