package sheets

import (
	"net/url"

	"github.com/finchhealth/denialwatch/pkg/query"
	"github.com/finchhealth/denialwatch/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "rejection_sheets", "s").
	Project("id", "ID").
	Project("payer_id", "PayerID").
	Project("branch_id", "BranchID").
	Project("filename", "Filename").
	Project("source_format", "SourceFormat").
	Project("fingerprint", "Fingerprint").
	Project("storage_key", "StorageKey").
	Project("status", "Status").
	Project("parse_error", "ParseError").
	Project("retrieved_at", "RetrievedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "RetrievedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for sheet queries.
// Nil fields are ignored; Filename uses contains matching, the rest exact.
type Filters struct {
	PayerID      *string `json:"payer_id,omitempty"`
	BranchID     *string `json:"branch_id,omitempty"`
	Status       *string `json:"status,omitempty"`
	SourceFormat *string `json:"source_format,omitempty"`
	Filename     *string `json:"filename,omitempty"`
	Fingerprint  *string `json:"fingerprint,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("PayerID", f.PayerID).
		WhereEquals("BranchID", f.BranchID).
		WhereEquals("Status", f.Status).
		WhereEquals("SourceFormat", f.SourceFormat).
		WhereContains("Filename", f.Filename).
		WhereEquals("Fingerprint", f.Fingerprint)
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
	if v := values.Get("status"); v != "" {
		f.Status = &v
	}
	if v := values.Get("source_format"); v != "" {
		f.SourceFormat = &v
	}
	if v := values.Get("filename"); v != "" {
		f.Filename = &v
	}
	if v := values.Get("fingerprint"); v != "" {
		f.Fingerprint = &v
	}

	return f
}

func scanSheet(s repository.Scanner) (Sheet, error) {
	var sh Sheet
	err := s.Scan(
		&sh.ID,
		&sh.PayerID,
		&sh.BranchID,
		&sh.Filename,
		&sh.SourceFormat,
		&sh.Fingerprint,
		&sh.StorageKey,
		&sh.Status,
		&sh.ParseError,
		&sh.RetrievedAt,
		&sh.UpdatedAt,
	)
	return sh, err
}
