// Package audit implements the append-only compliance ledger. Every state
// transition in the system is recorded here; a failed write is fatal to the
// operation that triggered it, because retention depends on completeness.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entity types recorded in the ledger.
const (
	EntitySheet          = "sheet"
	EntityRecord         = "record"
	EntityAnalysis       = "analysis"
	EntityNotification   = "notification"
	EntityResubmission   = "resubmission"
	EntityAcknowledgment = "acknowledgment"
	// EntityDiscard records duplicate files that never became a sheet row;
	// the entity id is the file fingerprint, not a sheet uuid.
	EntityDiscard = "discard"
)

// Well-known actors for system-driven transitions.
const (
	ActorMonitor    = "portal-monitor"
	ActorNormalizer = "normalizer"
	ActorAnalyzer   = "analyzer"
	ActorRouter     = "notification-router"
	ActorTracker    = "tracker"
)

// Entry is one immutable ledger row describing a state transition.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	FromState  string    `json:"from_state"`
	ToState    string    `json:"to_state"`
	Actor      string    `json:"actor"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}
