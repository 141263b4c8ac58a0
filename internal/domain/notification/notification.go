// Package notification holds the relay's single transient entity: a student
// notification row observed on the database channel. A notification has no
// persistence or lifecycle in this process; it is received, forwarded, and
// discarded.
package notification

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Channel is the Postgres channel the database trigger NOTIFYs on.
// It is also the default broadcast topic on the realtime side.
const Channel = "student_notifications"

// Notification is one parsed notification event. Record carries the row
// exactly as received; the named fields are extracted for routing and
// validation only, never rewritten into the forwarded payload.
type Notification struct {
	ID        string
	StudentID string
	Message   string
	GifURL    string
	Category  string
	CreatedAt string

	// Record is the verbatim row object forwarded to every sink.
	Record json.RawMessage
}

// envelope matches the trigger webhook body shape {"record": {...}}.
// Raw NOTIFY payloads carry the row object directly.
type envelope struct {
	Record json.RawMessage `json:"record"`
}

// row mirrors the columns the relay routes on. IDs arrive as either JSON
// strings (uuid columns) or numbers (bigint columns), so they are decoded
// raw and stringified.
type row struct {
	ID        json.RawMessage `json:"id"`
	StudentID json.RawMessage `json:"student_id"`
	Message   string          `json:"message"`
	GifURL    string          `json:"gif_url"`
	Category  string          `json:"category"`
	CreatedAt string          `json:"created_at"`
}

// ParsePayload decodes a raw channel payload into a Notification. It accepts
// both the bare row object (NOTIFY payload) and the {"record": {...}}
// envelope the database trigger posts to the webhook.
func ParsePayload(raw []byte) (Notification, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Notification{}, fmt.Errorf("parse payload: %w", err)
	}

	record := env.Record
	if len(record) == 0 || string(record) == "null" {
		record = json.RawMessage(raw)
	}

	var r row
	if err := json.Unmarshal(record, &r); err != nil {
		return Notification{}, fmt.Errorf("parse record: %w", err)
	}

	return Notification{
		ID:        stringify(r.ID),
		StudentID: stringify(r.StudentID),
		Message:   r.Message,
		GifURL:    r.GifURL,
		Category:  r.Category,
		CreatedAt: r.CreatedAt,
		Record:    record,
	}, nil
}

// Valid reports whether the notification carries the minimum required data.
// Rows without a student or a message are ignored, not errors.
func (n Notification) Valid() bool {
	return n.StudentID != "" && n.Message != ""
}

// EventName returns the derived per-message broadcast event name.
// Subscribers filter on this to receive only their own notifications.
func (n Notification) EventName() string {
	return "student:" + n.StudentID
}

// stringify renders a raw JSON scalar as a plain string. Strings are
// unquoted; numbers keep their textual form; null and absent become "".
func stringify(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return string(raw)
}
