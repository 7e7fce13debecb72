// Package domain holds the telemetry event model shared by the pipeline
// stages: producers, the Kafka transport, and the fan-out worker.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a telemetry event.
type Kind string

const (
	KindRequest   Kind = "request"
	KindException Kind = "exception"
	KindCustom    Kind = "custom"
)

// Event is one telemetry event. Produced by the instrumentation middleware
// or application code, carried over Kafka as JSON, and fanned out to Loki
// and Postgres by the worker.
type Event struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	UserID    string `json:"user_id,omitempty"`
	AccountID string `json:"account_id,omitempty"`
	// Source names the producing component (e.g. http_middleware).
	Source string `json:"source"`
	// Properties is free-form JSON; producers own its shape per event name.
	Properties json.RawMessage `json:"properties,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewEvent builds an event with a fresh ID and the current time.
func NewEvent(name string, kind Kind, source string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      kind,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}
