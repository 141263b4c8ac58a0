// Package otel provides the relay's OpenTelemetry metric instruments.
// Instruments are registered on the global meter; wiring an SDK/exporter is
// left to the deployment (the instruments are no-ops without one).
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "notify-relay"

// Metrics holds all relay metric instruments.
type Metrics struct {
	Forwarded       metric.Int64Counter
	Ignored         metric.Int64Counter
	ParseFailures   metric.Int64Counter
	Duplicates      metric.Int64Counter
	SinkFailures    metric.Int64Counter
	ForwardDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Forwarded, err = meter.Int64Counter("relay.notifications.forwarded",
		metric.WithDescription("Number of notifications forwarded to sinks"))
	if err != nil {
		return nil, err
	}

	m.Ignored, err = meter.Int64Counter("relay.notifications.ignored",
		metric.WithDescription("Number of notifications ignored for missing student_id/message"))
	if err != nil {
		return nil, err
	}

	m.ParseFailures, err = meter.Int64Counter("relay.notifications.parse_failures",
		metric.WithDescription("Number of payloads dropped as unparseable JSON"))
	if err != nil {
		return nil, err
	}

	m.Duplicates, err = meter.Int64Counter("relay.notifications.duplicates",
		metric.WithDescription("Number of duplicate notifications suppressed"))
	if err != nil {
		return nil, err
	}

	m.SinkFailures, err = meter.Int64Counter("relay.sink.failures",
		metric.WithDescription("Number of failed sink sends"))
	if err != nil {
		return nil, err
	}

	m.ForwardDuration, err = meter.Float64Histogram("relay.forward.duration_seconds",
		metric.WithDescription("Time spent fanning one notification out to all sinks"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
