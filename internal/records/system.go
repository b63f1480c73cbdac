package records

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/finchhealth/denialwatch/pkg/pagination"
)

// System defines the public contract for record operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Record], error)

	Find(ctx context.Context, id uuid.UUID) (*Record, error)

	// CreateBatch inserts records one at a time with row-hash idempotency:
	// a retried batch never duplicates rows. Returns the rows actually
	// inserted; rows skipped by the idempotency key are absent.
	CreateBatch(ctx context.Context, cmds []CreateCommand) ([]Record, error)

	// InWindow returns the records for a branch, payer, and detection
	// window, ordered by detection time then claim id. Analysis input.
	InWindow(ctx context.Context, branchID, payerID string, from, to time.Time) ([]Record, error)

	// Supersede creates a corrected record linked to the original. The
	// original is never mutated.
	Supersede(ctx context.Context, originalID uuid.UUID, cmd CreateCommand) (*Record, error)
}
