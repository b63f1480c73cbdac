package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finchhealth/denialwatch/pkg/repository"
)

const itemColumns = `id, record_id, branch_id, state, sla_deadline,
	escalated, created_at, updated_at`

const ackColumns = `id, notification_id, acknowledged_by, action, acknowledged_at`

// Store is the PostgreSQL-backed workflow store.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) insert(ctx context.Context, item Item) (Item, bool, error) {
	q := `
		INSERT INTO resubmission_items(id, record_id, branch_id, state)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (record_id) DO NOTHING
		RETURNING ` + itemColumns

	args := []any{item.ID, item.RecordID, item.BranchID, item.State}

	created, err := repository.QueryOne(ctx, s.db, q, args, scanItem)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Item{}, false, err
	}

	existing, err := s.forRecord(ctx, item.RecordID)
	if err != nil {
		return Item{}, false, err
	}
	return existing, false, nil
}

func (s *Store) transition(ctx context.Context, recordID uuid.UUID, from, to string, deadline *time.Time) (Item, error) {
	q := `
		UPDATE resubmission_items
		SET state = $3, sla_deadline = COALESCE($4, sla_deadline), updated_at = now()
		WHERE record_id = $1 AND state = $2
		RETURNING ` + itemColumns

	item, err := repository.QueryOne(ctx, s.db, q, []any{recordID, from, to, deadline}, scanItem)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Item{}, err
	}

	// distinguish a missing item from a state mismatch
	current, ferr := s.forRecord(ctx, recordID)
	if ferr != nil {
		return Item{}, ferr
	}
	return Item{}, fmt.Errorf("%w: %s -> %s (current %s)", ErrInvalidTransition, from, to, current.State)
}

func (s *Store) forRecord(ctx context.Context, recordID uuid.UUID) (Item, error) {
	q := "SELECT " + itemColumns + " FROM resubmission_items WHERE record_id = $1"

	item, err := repository.QueryOne(ctx, s.db, q, []any{recordID}, scanItem)
	if err != nil {
		return Item{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return item, nil
}

func (s *Store) queue(ctx context.Context, branchID string) ([]Item, error) {
	q := `SELECT ` + itemColumns + ` FROM resubmission_items
		WHERE branch_id = $1 AND state <> $2
		ORDER BY sla_deadline ASC NULLS LAST, created_at ASC`

	items, err := repository.QueryMany(ctx, s.db, q, []any{branchID, StateClosed}, scanItem)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	return items, nil
}

func (s *Store) insertAck(ctx context.Context, ack Acknowledgment) (Acknowledgment, bool, error) {
	q := `
		INSERT INTO branch_acknowledgments(id, notification_id, acknowledged_by, action)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (notification_id) DO NOTHING
		RETURNING ` + ackColumns

	args := []any{ack.ID, ack.NotificationID, ack.AcknowledgedBy, ack.Action}

	created, err := repository.QueryOne(ctx, s.db, q, args, scanAck)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Acknowledgment{}, false, err
	}

	existing, err := s.ackForNotification(ctx, ack.NotificationID)
	if err != nil {
		return Acknowledgment{}, false, err
	}
	return existing, false, nil
}

func (s *Store) ackForNotification(ctx context.Context, notificationID uuid.UUID) (Acknowledgment, error) {
	q := "SELECT " + ackColumns + " FROM branch_acknowledgments WHERE notification_id = $1"

	ack, err := repository.QueryOne(ctx, s.db, q, []any{notificationID}, scanAck)
	if err != nil {
		return Acknowledgment{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return ack, nil
}

func (s *Store) escalateOverdue(ctx context.Context, now time.Time) ([]Item, error) {
	q := `
		UPDATE resubmission_items
		SET escalated = TRUE, updated_at = now()
		WHERE escalated = FALSE
		  AND sla_deadline IS NOT NULL
		  AND sla_deadline < $1
		  AND state IN ($2, $3)
		RETURNING ` + itemColumns

	items, err := repository.QueryMany(ctx, s.db, q, []any{now, StateDetected, StateNotified}, scanItem)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func scanItem(s repository.Scanner) (Item, error) {
	var (
		item     Item
		deadline sql.NullTime
	)

	err := s.Scan(
		&item.ID,
		&item.RecordID,
		&item.BranchID,
		&item.State,
		&deadline,
		&item.Escalated,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return item, err
	}

	if deadline.Valid {
		item.SLADeadline = &deadline.Time
	}
	return item, nil
}

func scanAck(s repository.Scanner) (Acknowledgment, error) {
	var ack Acknowledgment

	err := s.Scan(
		&ack.ID,
		&ack.NotificationID,
		&ack.AcknowledgedBy,
		&ack.Action,
		&ack.AcknowledgedAt,
	)
	return ack, err
}
