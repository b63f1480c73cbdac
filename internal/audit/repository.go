package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/finchhealth/denialwatch/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates the ledger repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "audit"),
	}
}

func (r *repo) Record(ctx context.Context, entityType, entityID, fromState, toState, actor, detail string) error {
	q := `
		INSERT INTO audit_entries(id, entity_type, entity_id, from_state, to_state, actor, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, q,
		uuid.New(),
		entityType,
		entityID,
		fromState,
		toState,
		actor,
		detail,
	)
	if err != nil {
		// surfaced, never swallowed: the caller treats this as fatal
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	return nil
}

func (r *repo) ForEntity(ctx context.Context, entityType, entityID string) ([]Entry, error) {
	q := `
		SELECT id, entity_type, entity_id, from_state, to_state, actor, detail, recorded_at
		FROM audit_entries
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY recorded_at, id`

	entries, err := repository.QueryMany(ctx, r.db, q, []any{entityType, entityID}, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}

	return entries, nil
}

func scanEntry(s repository.Scanner) (Entry, error) {
	var e Entry
	err := s.Scan(
		&e.ID,
		&e.EntityType,
		&e.EntityID,
		&e.FromState,
		&e.ToState,
		&e.Actor,
		&e.Detail,
		&e.RecordedAt,
	)
	return e, err
}
