package repository

import (
	"context"

	"telemetry-bridge/backend/internal/telemetry/domain"
)

// Repository defines persistence for telemetry events.
type Repository interface {
	Save(ctx context.Context, event *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	ListByKind(ctx context.Context, kind domain.Kind, limit, offset int32) ([]*domain.Event, error)
}
