package repository

import (
	"context"
	"database/sql"
	"errors"

	"telemetry-bridge/backend/internal/telemetry/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a telemetry repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save persists the telemetry event. Inserts with the event's own ID; a
// duplicate ID (redelivered Kafka message) is a conflict no-op, not an error.
func (r *PostgresRepository) Save(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO telemetry_events (id, name, kind, user_id, account_id, source, properties, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		event.ID, event.Name, string(event.Kind),
		nullString(event.UserID), nullString(event.AccountID),
		event.Source, nullBytes(event.Properties), event.CreatedAt,
	)
	return err
}

// GetByID returns the telemetry event for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, kind, user_id, account_id, source, properties, created_at
		FROM telemetry_events WHERE id = $1`, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return event, nil
}

// ListByKind returns telemetry events of the given kind, newest first,
// paginated by limit and offset. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByKind(ctx context.Context, kind domain.Kind, limit, offset int32) ([]*domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, kind, user_id, account_id, source, properties, created_at
		FROM telemetry_events WHERE kind = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		string(kind), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var event domain.Event
	var kind string
	var userID, accountID sql.NullString
	var properties []byte
	err := row.Scan(&event.ID, &event.Name, &kind, &userID, &accountID,
		&event.Source, &properties, &event.CreatedAt)
	if err != nil {
		return nil, err
	}
	event.Kind = domain.Kind(kind)
	event.UserID = userID.String
	event.AccountID = accountID.String
	event.Properties = properties
	return &event, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
