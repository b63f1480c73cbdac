// Package tracker manages the branch response workflow: acknowledgments of
// dispatched notifications and the per-record resubmission queue. Each
// rejection record owns at most one ResubmissionItem whose state advances
// through a fixed machine; transitions outside the table are rejected, never
// silently applied.
package tracker

import (
	"time"

	"github.com/google/uuid"
)

// Resubmission workflow states.
const (
	StateDetected     = "detected"
	StateNotified     = "notified"
	StateAcknowledged = "acknowledged"
	StateCorrected    = "corrected"
	StateResubmitted  = "resubmitted"
	StateClosed       = "closed"
)

// transitions is the complete set of allowed state changes. The escalated
// flag is orthogonal and not part of the machine.
var transitions = map[string]string{
	StateDetected:     StateNotified,
	StateNotified:     StateAcknowledged,
	StateAcknowledged: StateCorrected,
	StateCorrected:    StateResubmitted,
	StateResubmitted:  StateClosed,
}

// CanTransition reports whether from -> to is in the allowed table.
func CanTransition(from, to string) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// Item is one record queued for corrected resubmission. SLADeadline is fixed
// when the item reaches notified and never extended; Escalated is set at most
// once, when the deadline elapses without acknowledgment.
type Item struct {
	ID          uuid.UUID  `json:"id"`
	RecordID    uuid.UUID  `json:"record_id"`
	BranchID    string     `json:"branch_id"`
	State       string     `json:"state"`
	SLADeadline *time.Time `json:"sla_deadline,omitempty"`
	Escalated   bool       `json:"escalated"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Acknowledgment actions.
const (
	ActionAccepted = "accepted"
	ActionDisputed = "disputed"
)

// Acknowledgment is a branch's recorded response to one notification. The
// notification id is unique: duplicate submissions return the stored row.
type Acknowledgment struct {
	ID             uuid.UUID `json:"id"`
	NotificationID uuid.UUID `json:"notification_id"`
	AcknowledgedBy string    `json:"acknowledged_by"`
	Action         string    `json:"action"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
}

// AcknowledgeCommand carries a branch response submission.
type AcknowledgeCommand struct {
	NotificationID uuid.UUID `json:"notification_id"`
	Actor          string    `json:"actor"`
	Action         string    `json:"action"`
}

func (c AcknowledgeCommand) validate() error {
	if c.NotificationID == uuid.Nil || c.Actor == "" {
		return ErrInvalidInput
	}
	if c.Action != ActionAccepted && c.Action != ActionDisputed {
		return ErrInvalidInput
	}
	return nil
}
