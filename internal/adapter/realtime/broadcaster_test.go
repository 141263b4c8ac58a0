package realtime

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edupulse/notify-relay/internal/domain/notification"
)

func testNotification(t *testing.T, raw string) notification.Notification {
	t.Helper()
	n, err := notification.ParsePayload([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestSendFormatsBroadcastRequest(t *testing.T) {
	var gotPath, gotAPIKey, gotAuth string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	b := NewBroadcaster(srv.URL, "service-key", "student_notifications", 5*time.Second)

	raw := `{"id":"n1","student_id":"s42","message":"hi"}`
	if err := b.Send(context.Background(), testNotification(t, raw)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/realtime/v1/api/broadcast" {
		t.Errorf("expected broadcast path, got %s", gotPath)
	}
	if gotAPIKey != "service-key" {
		t.Errorf("expected apikey header, got %q", gotAPIKey)
	}
	if gotAuth != "Bearer service-key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}

	var body struct {
		Messages []struct {
			Topic   string          `json:"topic"`
			Event   string          `json:"event"`
			Payload json.RawMessage `json:"payload"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(gotBody, &body); err != nil {
		t.Fatalf("invalid request body: %v", err)
	}
	if len(body.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(body.Messages))
	}
	if body.Messages[0].Topic != "student_notifications" {
		t.Errorf("expected fixed topic, got %q", body.Messages[0].Topic)
	}
	if body.Messages[0].Event != "student:s42" {
		t.Errorf("expected derived event name student:s42, got %q", body.Messages[0].Event)
	}
	if string(body.Messages[0].Payload) != raw {
		t.Errorf("expected verbatim payload %s, got %s", raw, body.Messages[0].Payload)
	}
}

func TestSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid key"}`))
	}))
	defer srv.Close()

	b := NewBroadcaster(srv.URL, "bad-key", "student_notifications", 5*time.Second)

	err := b.Send(context.Background(), testNotification(t, `{"student_id":"s1","message":"m"}`))
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("expected status in error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "invalid key") {
		t.Errorf("expected body in error, got: %v", err)
	}
}

func TestSendRejectsNon2xx(t *testing.T) {
	// A redirect without a Location header is not followed by the client,
	// so Send sees the 300 as-is and must not treat it as success.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMultipleChoices)
	}))
	defer srv.Close()

	b := NewBroadcaster(srv.URL, "k", "student_notifications", 5*time.Second)

	err := b.Send(context.Background(), testNotification(t, `{"student_id":"s1","message":"m"}`))
	if err == nil {
		t.Fatal("expected error for 300 response")
	}
	if !strings.Contains(err.Error(), "300") {
		t.Errorf("expected status in error, got: %v", err)
	}
}

func TestSendConnectionRefused(t *testing.T) {
	b := NewBroadcaster("http://127.0.0.1:1", "k", "t", time.Second)

	err := b.Send(context.Background(), testNotification(t, `{"student_id":"s1","message":"m"}`))
	if err == nil {
		t.Fatal("expected transport error")
	}
}

func TestName(t *testing.T) {
	b := NewBroadcaster("http://x", "k", "t", time.Second)
	if b.Name() != "realtime" {
		t.Errorf("expected sink name realtime, got %q", b.Name())
	}
}
