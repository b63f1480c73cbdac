package tracker

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// System defines the public contract for workflow operations.
type System interface {
	Handler() *Handler

	// Register opens a detected item for a record. Registering an already
	// tracked record returns the existing item.
	Register(ctx context.Context, recordID uuid.UUID, branchID string) (*Item, error)

	// MarkNotified advances detected items to notified and fixes their SLA
	// deadline. Items already past detected are skipped, so a retried cycle
	// never moves a deadline. Returns the number of items advanced.
	MarkNotified(ctx context.Context, recordIDs []uuid.UUID) (int, error)

	// Acknowledge records a branch response. Resubmitting for an already
	// acknowledged notification is a no-op returning the stored row. An
	// accepted response advances the covered items to acknowledged.
	Acknowledge(ctx context.Context, cmd AcknowledgeCommand) (*Acknowledgment, error)

	// Correct marks a record's claim as fixed by the branch.
	Correct(ctx context.Context, recordID uuid.UUID) (*Item, error)

	// Ready advances a corrected item to resubmitted. Any other current
	// state is rejected with ErrInvalidTransition.
	Ready(ctx context.Context, recordID uuid.UUID) (*Item, error)

	// Close finishes a resubmitted item.
	Close(ctx context.Context, recordID uuid.UUID) (*Item, error)

	ForRecord(ctx context.Context, recordID uuid.UUID) (*Item, error)

	// Queue lists a branch's open items, earliest deadline first.
	Queue(ctx context.Context, branchID string) ([]Item, error)

	// EscalateOverdue flags unacknowledged items whose SLA deadline has
	// elapsed. Each item is flagged at most once across all calls.
	EscalateOverdue(ctx context.Context) (int, error)
}

// store is the persistence surface the workflow service needs. The pg
// implementation lives in repository.go; tests substitute an in-memory fake.
type store interface {
	// insert opens a detected item unless the record is already tracked.
	// The second return reports whether a row was created.
	insert(ctx context.Context, item Item) (Item, bool, error)

	// transition applies from -> to for the record's item, setting the SLA
	// deadline when one is given. A mismatched current state yields
	// ErrInvalidTransition.
	transition(ctx context.Context, recordID uuid.UUID, from, to string, deadline *time.Time) (Item, error)

	forRecord(ctx context.Context, recordID uuid.UUID) (Item, error)

	queue(ctx context.Context, branchID string) ([]Item, error)

	// insertAck stores a branch response unless the notification was
	// already acknowledged.
	insertAck(ctx context.Context, ack Acknowledgment) (Acknowledgment, bool, error)

	// escalateOverdue sets the escalation flag on unacknowledged items past
	// their deadline and returns the items it flagged.
	escalateOverdue(ctx context.Context, now time.Time) ([]Item, error)
}
