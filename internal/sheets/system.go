package sheets

import (
	"context"

	"github.com/google/uuid"

	"github.com/finchhealth/denialwatch/pkg/pagination"
)

// System defines the public contract for sheet operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Sheet], error)

	Find(ctx context.Context, id uuid.UUID) (*Sheet, error)

	// Create registers a new sheet: archives the raw bytes, then inserts a
	// pending row. Returns ErrDuplicate when the payer already produced a
	// sheet with the same fingerprint; the caller discards the file and
	// records the discard in the audit ledger.
	Create(ctx context.Context, cmd CreateCommand) (*Sheet, error)

	// Seen reports whether a fingerprint has already been registered for
	// the payer.
	Seen(ctx context.Context, payerID, fingerprint string) (bool, error)

	// Raw returns the archived bytes for a sheet.
	Raw(ctx context.Context, id uuid.UUID) ([]byte, error)

	// MarkProcessed transitions a pending sheet to processed and stamps the
	// detected source format.
	MarkProcessed(ctx context.Context, id uuid.UUID, sourceFormat string) error

	// MarkFailed transitions a pending sheet to failed, retaining the sheet
	// and the parse error for manual intervention. Failed sheets are never
	// retried automatically.
	MarkFailed(ctx context.Context, id uuid.UUID, parseErr string) error

	// ArchiveOlderThan transitions terminal sheets older than the retention
	// window to archived. Returns the number of sheets archived.
	ArchiveOlderThan(ctx context.Context, days int) (int, error)
}
