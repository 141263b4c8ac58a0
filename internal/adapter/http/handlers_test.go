package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/edupulse/notify-relay/internal/adapter/otel"
	"github.com/edupulse/notify-relay/internal/adapter/ws"
	"github.com/edupulse/notify-relay/internal/domain/notification"
	"github.com/edupulse/notify-relay/internal/port/broadcast"
	"github.com/edupulse/notify-relay/internal/service"
)

// recordingSink captures notifications handed to the relay.
type recordingSink struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Send(_ context.Context, n notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return nil
}

type fakeChecker struct{ connected bool }

func (f fakeChecker) IsConnected() bool { return f.connected }

func newTestRouter(t *testing.T, sink broadcast.Sink, nats HealthChecker) chi.Router {
	t.Helper()

	metrics, err := otel.NewMetrics()
	if err != nil {
		t.Fatal(err)
	}

	h := &Handlers{
		Relay:         service.NewRelay([]broadcast.Sink{sink}, nil, 0, metrics),
		Hub:           ws.NewHub(),
		NATS:          nats,
		ListenChannel: "student_notifications",
		Sinks:         []string{sink.Name()},
	}

	r := chi.NewRouter()
	MountRoutes(r, h)
	return r
}

func TestNotifyForwards(t *testing.T) {
	sink := &recordingSink{}
	router := newTestRouter(t, sink, nil)

	body := `{"record":{"id":"n1","student_id":"s42","message":"hi"}}`
	req := httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %v", resp["status"])
	}
	if resp["forwarded"] != true {
		t.Errorf("expected forwarded true, got %v", resp["forwarded"])
	}

	if len(sink.sent) != 1 {
		t.Fatalf("expected 1 forwarded event, got %d", len(sink.sent))
	}
	if sink.sent[0].EventName() != "student:s42" {
		t.Errorf("expected event student:s42, got %q", sink.sent[0].EventName())
	}
}

func TestNotifyIgnoresIncompleteRow(t *testing.T) {
	sink := &recordingSink{}
	router := newTestRouter(t, sink, nil)

	body := `{"record":{"id":"n1","message":"no student"}}`
	req := httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ignored" {
		t.Errorf("expected status ignored, got %v", resp["status"])
	}
	if len(sink.sent) != 0 {
		t.Errorf("expected no forwarded events, got %d", len(sink.sent))
	}
}

func TestNotifyRejectsInvalidJSON(t *testing.T) {
	router := newTestRouter(t, &recordingSink{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(`{broken`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestNotifyRejectsOversizedBody(t *testing.T) {
	router := newTestRouter(t, &recordingSink{}, nil)

	big := strings.Repeat("x", maxNotifyBody+1)
	req := httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(big))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &recordingSink{}, fakeChecker{connected: true})

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %v", resp["status"])
	}
	if resp["listen_channel"] != "student_notifications" {
		t.Errorf("expected listen channel, got %v", resp["listen_channel"])
	}
	if resp["nats_connected"] != true {
		t.Errorf("expected nats_connected true, got %v", resp["nats_connected"])
	}
}

func TestHealthWithoutNATS(t *testing.T) {
	router := newTestRouter(t, &recordingSink{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if _, present := resp["nats_connected"]; present {
		t.Error("expected nats_connected omitted when sink disabled")
	}
}
