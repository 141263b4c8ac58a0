// Package broadcast defines the port for publishing notification events to
// realtime sinks.
package broadcast

import (
	"context"

	"github.com/edupulse/notify-relay/internal/domain/notification"
)

// Sink delivers one notification event to a realtime fan-out backend.
// Delivery is at-most-once: a returned error is logged and counted by the
// caller, never retried.
type Sink interface {
	// Name returns the unique identifier for this sink (e.g. "realtime", "nats").
	Name() string

	// Send publishes the event. The payload must be forwarded verbatim.
	Send(ctx context.Context, n notification.Notification) error
}
