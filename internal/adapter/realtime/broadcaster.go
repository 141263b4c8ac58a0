// Package realtime implements the broadcast sink for the Supabase Realtime
// V2 REST broadcast endpoint.
package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/edupulse/notify-relay/internal/domain/notification"
)

const sinkName = "realtime"

// broadcastPath is the Realtime V2 REST broadcast endpoint.
const broadcastPath = "/realtime/v1/api/broadcast"

// Broadcaster publishes notification events via the Realtime REST API.
type Broadcaster struct {
	baseURL    string
	apiKey     string
	topic      string
	httpClient *http.Client
}

// NewBroadcaster creates a Broadcaster for the given project URL and key.
// topic is the fixed broadcast channel all events are published on.
func NewBroadcaster(baseURL, apiKey, topic string, timeout time.Duration) *Broadcaster {
	return &Broadcaster{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		topic:      topic,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (b *Broadcaster) Name() string { return sinkName }

// broadcastBody is the Realtime V2 REST broadcast request shape.
type broadcastBody struct {
	Messages []broadcastMessage `json:"messages"`
}

type broadcastMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Send publishes one event. The payload is the notification record verbatim;
// the event name is the per-student routing key.
func (b *Broadcaster) Send(ctx context.Context, n notification.Notification) error {
	body, err := json.Marshal(broadcastBody{
		Messages: []broadcastMessage{{
			Topic:   b.topic,
			Event:   n.EventName(),
			Payload: n.Record,
		}},
	})
	if err != nil {
		return fmt.Errorf("realtime marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+broadcastPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("realtime request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", b.apiKey)
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("realtime send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Realtime returns 202 on success; anything non-2xx is an error
	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("realtime API %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
