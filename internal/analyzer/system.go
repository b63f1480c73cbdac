package analyzer

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// System defines the public contract for analysis operations.
type System interface {
	Handler() *Handler

	// Generate reads the window's records, computes a new immutable
	// analysis version, and persists it. Generating over an empty window
	// returns ErrNoRecords.
	Generate(ctx context.Context, branchID, payerID string, windowStart, windowEnd time.Time) (*Analysis, error)

	Find(ctx context.Context, id uuid.UUID) (*Analysis, error)

	// Latest returns the highest version generated for the scope, or
	// ErrNotFound when the window has never been analyzed.
	Latest(ctx context.Context, branchID, payerID string, windowStart, windowEnd time.Time) (*Analysis, error)
}
