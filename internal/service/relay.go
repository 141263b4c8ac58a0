// Package service implements the relay use-case: one notification in, one
// fan-out to every configured sink, nothing kept.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/edupulse/notify-relay/internal/adapter/otel"
	"github.com/edupulse/notify-relay/internal/domain/notification"
	"github.com/edupulse/notify-relay/internal/port/broadcast"
	"github.com/edupulse/notify-relay/internal/port/cache"
)

// Outcome describes what the relay did with one payload.
type Outcome string

const (
	// OutcomeForwarded means the event was fanned out to the sinks.
	OutcomeForwarded Outcome = "forwarded"
	// OutcomeIgnored means the row lacked student_id or message.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeDuplicate means the event was seen within the dedupe window.
	OutcomeDuplicate Outcome = "duplicate"
)

// Relay forwards parsed notifications to its sinks. Sends happen inline in
// HandleRaw with no queue, no retry and no ordering guarantee; a sink error
// is logged and counted and does not affect the other sinks.
type Relay struct {
	sinks     []broadcast.Sink
	dedupe    cache.Cache // nil disables duplicate suppression
	dedupeTTL time.Duration
	metrics   *otel.Metrics
}

// NewRelay creates a Relay fanning out to the given sinks.
// dedupe may be nil to disable duplicate suppression.
func NewRelay(sinks []broadcast.Sink, dedupe cache.Cache, dedupeTTL time.Duration, metrics *otel.Metrics) *Relay {
	return &Relay{
		sinks:     sinks,
		dedupe:    dedupe,
		dedupeTTL: dedupeTTL,
		metrics:   metrics,
	}
}

// HandleRaw processes one raw channel payload: parse, validate, dedupe,
// fan out. The returned error is non-nil only for unparseable payloads;
// sink failures are swallowed after logging (best-effort delivery).
func (r *Relay) HandleRaw(ctx context.Context, raw []byte) (Outcome, error) {
	n, err := notification.ParsePayload(raw)
	if err != nil {
		r.metrics.ParseFailures.Add(ctx, 1)
		slog.Warn("dropping unparseable payload", "error", err)
		return "", err
	}

	if !n.Valid() {
		r.metrics.Ignored.Add(ctx, 1)
		slog.Info("ignoring notification without student_id/message", "id", n.ID)
		return OutcomeIgnored, nil
	}

	if r.isDuplicate(ctx, n) {
		r.metrics.Duplicates.Add(ctx, 1)
		slog.Debug("suppressing duplicate notification", "id", n.ID)
		return OutcomeDuplicate, nil
	}

	start := time.Now()
	for _, sink := range r.sinks {
		if err := sink.Send(ctx, n); err != nil {
			r.metrics.SinkFailures.Add(ctx, 1,
				metric.WithAttributes(attribute.String("sink", sink.Name())))
			slog.Error("sink send failed",
				"sink", sink.Name(),
				"event", n.EventName(),
				"error", err,
			)
		}
	}

	r.metrics.Forwarded.Add(ctx, 1)
	r.metrics.ForwardDuration.Record(ctx, time.Since(start).Seconds())

	slog.Info("notification forwarded",
		"event", n.EventName(),
		"id", n.ID,
		"sinks", len(r.sinks),
	)
	return OutcomeForwarded, nil
}

// isDuplicate records the notification id and reports whether it was already
// seen inside the TTL window. Events without an id are never deduplicated.
func (r *Relay) isDuplicate(ctx context.Context, n notification.Notification) bool {
	if r.dedupe == nil || n.ID == "" {
		return false
	}

	key := "seen:" + n.ID
	if _, found, err := r.dedupe.Get(ctx, key); err == nil && found {
		return true
	}
	_ = r.dedupe.Set(ctx, key, nil, r.dedupeTTL)
	return false
}
