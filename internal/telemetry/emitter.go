// Package telemetry wires the event pipeline: an Emitter abstraction over
// the transport and a fire-and-forget helper for request paths.
package telemetry

import (
	"context"

	"telemetry-bridge/backend/internal/telemetry/domain"
)

// Emitter emits telemetry events (e.g. to Kafka). Best-effort; callers log
// and ignore errors.
type Emitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}
