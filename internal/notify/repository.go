package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/finchhealth/denialwatch/pkg/repository"
)

const notificationColumns = `id, analysis_id, branch_id, channel, address,
	status, attempt_count, last_error, created_at, updated_at`

// Store is the PostgreSQL-backed notification store.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) create(ctx context.Context, n Notification) (Notification, bool, error) {
	q := `
		INSERT INTO branch_notifications(id, analysis_id, branch_id, channel, address, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (analysis_id, channel) DO NOTHING
		RETURNING ` + notificationColumns

	args := []any{n.ID, n.AnalysisID, n.BranchID, n.Channel, n.Address, n.Status}

	created, err := repository.QueryOne(ctx, s.db, q, args, scanNotification)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Notification{}, false, err
	}

	// conflict: the pair was dispatched before, return the stored row
	existing, err := s.byPair(ctx, n.AnalysisID, n.Channel)
	if err != nil {
		return Notification{}, false, err
	}
	return existing, false, nil
}

func (s *Store) recordAttempt(ctx context.Context, id uuid.UUID, status string, attempts int, lastError string) (Notification, error) {
	q := `
		UPDATE branch_notifications
		SET status = $2, attempt_count = $3, last_error = $4, updated_at = now()
		WHERE id = $1
		RETURNING ` + notificationColumns

	n, err := repository.QueryOne(ctx, s.db, q, []any{id, status, attempts, lastError}, scanNotification)
	if err != nil {
		return Notification{}, repository.MapError(err, ErrNotFound, ErrInvalidInput)
	}
	return n, nil
}

func (s *Store) find(ctx context.Context, id uuid.UUID) (Notification, error) {
	q := "SELECT " + notificationColumns + " FROM branch_notifications WHERE id = $1"

	n, err := repository.QueryOne(ctx, s.db, q, []any{id}, scanNotification)
	if err != nil {
		return Notification{}, repository.MapError(err, ErrNotFound, ErrInvalidInput)
	}
	return n, nil
}

func (s *Store) forAnalysis(ctx context.Context, analysisID uuid.UUID) ([]Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM branch_notifications
		WHERE analysis_id = $1
		ORDER BY channel`

	ns, err := repository.QueryMany(ctx, s.db, q, []any{analysisID}, scanNotification)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return ns, nil
}

func (s *Store) byPair(ctx context.Context, analysisID uuid.UUID, channel Channel) (Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM branch_notifications
		WHERE analysis_id = $1 AND channel = $2`

	n, err := repository.QueryOne(ctx, s.db, q, []any{analysisID, channel}, scanNotification)
	if err != nil {
		return Notification{}, repository.MapError(err, ErrNotFound, ErrInvalidInput)
	}
	return n, nil
}

func scanNotification(s repository.Scanner) (Notification, error) {
	var (
		n         Notification
		lastError sql.NullString
	)

	err := s.Scan(
		&n.ID,
		&n.AnalysisID,
		&n.BranchID,
		&n.Channel,
		&n.Address,
		&n.Status,
		&n.AttemptCount,
		&lastError,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return n, err
	}

	n.LastError = lastError.String
	return n, nil
}
