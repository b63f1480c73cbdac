package audit

import "context"

// System defines the public contract of the audit ledger.
//
// Record must never fail silently: when the underlying store is unavailable
// the error surfaces to the caller, which treats it as fatal for the
// triggering operation.
type System interface {
	// Record appends one transition entry. Detail is optional free text
	// (a parse error, a duplicate fingerprint, a delivery error).
	Record(ctx context.Context, entityType, entityID, fromState, toState, actor, detail string) error

	// ForEntity returns the entries for one entity ordered by recording time.
	ForEntity(ctx context.Context, entityType, entityID string) ([]Entry, error)
}
