// Package records implements the rejection-record domain: one immutable row
// per denied claim line, normalized to the canonical branch set and the
// shared reason taxonomy. Corrections never mutate a record; they create a
// new one linked through a supersedes reference.
package records

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finchhealth/denialwatch/internal/taxonomy"
)

// Record represents one denied or rejected claim line.
type Record struct {
	ID             uuid.UUID         `json:"id"`
	SheetID        uuid.UUID         `json:"sheet_id"`
	ClaimID        string            `json:"claim_id"`
	PayerID        string            `json:"payer_id"`
	BranchID       string            `json:"branch_id"`
	BranchReported string            `json:"branch_reported"`
	BranchFlagged  bool              `json:"branch_flagged"`
	ReasonCode     taxonomy.Code     `json:"reason_code"`
	PayerCode      string            `json:"payer_code"`
	ReasonText     string            `json:"reason_text"`
	ReasonFlagged  bool              `json:"reason_flagged"`
	Severity       taxonomy.Severity `json:"severity"`
	AmountAtRisk   decimal.Decimal   `json:"amount_at_risk"`
	ServiceDate    time.Time         `json:"service_date"`
	DetectedAt     time.Time         `json:"detected_at"`
	RowHash        string            `json:"row_hash"`
	SupersedesID   *uuid.UUID        `json:"supersedes_id,omitempty"`
}

// CreateCommand carries the normalized data for one record.
type CreateCommand struct {
	SheetID        uuid.UUID
	ClaimID        string
	PayerID        string
	BranchID       string
	BranchReported string
	BranchFlagged  bool
	ReasonCode     taxonomy.Code
	PayerCode      string
	ReasonText     string
	ReasonFlagged  bool
	Severity       taxonomy.Severity
	AmountAtRisk   decimal.Decimal
	ServiceDate    time.Time
}

// RowHash returns the per-record idempotency key: a hash over the sheet and
// the row's identifying content. Re-running a cancelled cycle re-derives the
// same hash, so retried inserts collide instead of duplicating.
func (c CreateCommand) RowHash() string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%s|%s",
		c.SheetID, c.ClaimID, c.PayerCode,
		c.AmountAtRisk.String(), c.ServiceDate.UTC().Format(time.DateOnly),
	))
	return hex.EncodeToString(sum[:])
}
