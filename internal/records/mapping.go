package records

import (
	"net/url"

	"github.com/finchhealth/denialwatch/pkg/query"
	"github.com/finchhealth/denialwatch/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "rejection_records", "r").
	Project("id", "ID").
	Project("sheet_id", "SheetID").
	Project("claim_id", "ClaimID").
	Project("payer_id", "PayerID").
	Project("branch_id", "BranchID").
	Project("branch_reported", "BranchReported").
	Project("branch_flagged", "BranchFlagged").
	Project("reason_code", "ReasonCode").
	Project("payer_code", "PayerCode").
	Project("reason_text", "ReasonText").
	Project("reason_flagged", "ReasonFlagged").
	Project("severity", "Severity").
	Project("amount_at_risk", "AmountAtRisk").
	Project("service_date", "ServiceDate").
	Project("detected_at", "DetectedAt").
	Project("row_hash", "RowHash").
	Project("supersedes_id", "SupersedesID")

var defaultSort = query.SortField{
	Field:      "DetectedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for record queries.
type Filters struct {
	PayerID       *string `json:"payer_id,omitempty"`
	BranchID      *string `json:"branch_id,omitempty"`
	ClaimID       *string `json:"claim_id,omitempty"`
	ReasonCode    *string `json:"reason_code,omitempty"`
	Severity      *string `json:"severity,omitempty"`
	ReasonFlagged *bool   `json:"reason_flagged,omitempty"`
	BranchFlagged *bool   `json:"branch_flagged,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("PayerID", f.PayerID).
		WhereEquals("BranchID", f.BranchID).
		WhereEquals("ClaimID", f.ClaimID).
		WhereEquals("ReasonCode", f.ReasonCode).
		WhereEquals("Severity", f.Severity).
		WhereEquals("ReasonFlagged", f.ReasonFlagged).
		WhereEquals("BranchFlagged", f.BranchFlagged)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if v := values.Get("payer_id"); v != "" {
		f.PayerID = &v
	}
	if v := values.Get("branch_id"); v != "" {
		f.BranchID = &v
	}
	if v := values.Get("claim_id"); v != "" {
		f.ClaimID = &v
	}
	if v := values.Get("reason_code"); v != "" {
		f.ReasonCode = &v
	}
	if v := values.Get("severity"); v != "" {
		f.Severity = &v
	}
	if v := values.Get("reason_flagged"); v != "" {
		flagged := v == "true"
		f.ReasonFlagged = &flagged
	}
	if v := values.Get("branch_flagged"); v != "" {
		flagged := v == "true"
		f.BranchFlagged = &flagged
	}

	return f
}

func scanRecord(s repository.Scanner) (Record, error) {
	var r Record
	err := s.Scan(
		&r.ID,
		&r.SheetID,
		&r.ClaimID,
		&r.PayerID,
		&r.BranchID,
		&r.BranchReported,
		&r.BranchFlagged,
		&r.ReasonCode,
		&r.PayerCode,
		&r.ReasonText,
		&r.ReasonFlagged,
		&r.Severity,
		&r.AmountAtRisk,
		&r.ServiceDate,
		&r.DetectedAt,
		&r.RowHash,
		&r.SupersedesID,
	)
	return r, err
}
