package ws

import (
	"context"

	"github.com/edupulse/notify-relay/internal/domain/notification"
)

const sinkName = "websocket"

// Sink adapts the Hub to the broadcast sink port. The event name becomes the
// message type; the record is forwarded verbatim as the payload.
type Sink struct {
	hub *Hub
}

// NewSink creates a broadcast sink backed by the given hub.
func NewSink(hub *Hub) *Sink {
	return &Sink{hub: hub}
}

func (s *Sink) Name() string { return sinkName }

// Send fans the event out to every connected client. Write failures drop the
// offending connection; they never fail the send.
func (s *Sink) Send(ctx context.Context, n notification.Notification) error {
	s.hub.Broadcast(ctx, Message{
		Type:    n.EventName(),
		Payload: n.Record,
	})
	return nil
}
