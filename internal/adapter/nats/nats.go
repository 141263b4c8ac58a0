// Package nats implements the broadcast sink that republishes notification
// events on NATS JetStream for other backend consumers.
package nats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/edupulse/notify-relay/internal/domain/notification"
)

const (
	sinkName   = "nats"
	streamName = "NOTIFICATIONS"

	// subjectPrefix is completed with the student id per message.
	subjectPrefix = "notifications.student."
)

// Sink publishes notification events to a JetStream stream.
type Sink struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the stream exists.
func Connect(ctx context.Context, url string) (*Sink, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"notifications.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Sink{nc: nc, js: js}, nil
}

func (s *Sink) Name() string { return sinkName }

// Send publishes the verbatim record on the per-student subject.
// Fire-and-forget: no redelivery is requested on failure.
func (s *Sink) Send(ctx context.Context, n notification.Notification) error {
	subject := subjectPrefix + n.StudentID
	if _, err := s.js.Publish(ctx, subject, n.Record); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// IsConnected reports whether the NATS connection is currently up.
func (s *Sink) IsConnected() bool {
	return s.nc.IsConnected()
}

// Close shuts down the NATS connection.
func (s *Sink) Close() error {
	s.nc.Close()
	return nil
}
