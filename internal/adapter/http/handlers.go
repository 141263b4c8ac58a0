package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/edupulse/notify-relay/internal/adapter/ws"
	"github.com/edupulse/notify-relay/internal/service"
)

// maxNotifyBody caps the trigger webhook body size.
const maxNotifyBody = 1 << 20 // 1 MiB

// HealthChecker reports connectivity of an optional sink backend.
type HealthChecker interface {
	IsConnected() bool
}

// Handlers bundles the relay's HTTP dependencies.
type Handlers struct {
	Relay         *service.Relay
	Hub           *ws.Hub
	NATS          HealthChecker // nil when the NATS sink is disabled
	ListenChannel string
	Sinks         []string
}

// MountRoutes attaches all relay routes to the router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))
		r.Post("/notify", h.Notify)
		r.Get("/health", h.Health)
	})

	// No timeout on the upgrade; websocket connections are long-lived.
	r.Get("/ws", h.Hub.HandleWS)
}

// Notify is the trigger webhook: the database posts the inserted row here
// and the body is handed to the relay as-is.
func (h *Handlers) Notify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxNotifyBody))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	outcome, err := h.Relay.HandleRaw(r.Context(), body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	switch outcome {
	case service.OutcomeIgnored:
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ignored",
			"reason": "missing student_id/message",
		})
	case service.OutcomeDuplicate:
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "duplicate",
		})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"forwarded": true,
		})
	}
}

// Health reports process status and sink connectivity.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":         "ok",
		"listen_channel": h.ListenChannel,
		"sinks":          h.Sinks,
		"ws_connections": h.Hub.ConnectionCount(),
	}
	if h.NATS != nil {
		resp["nats_connected"] = h.NATS.IsConnected()
	}
	writeJSON(w, http.StatusOK, resp)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
