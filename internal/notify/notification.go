// Package notify dispatches analysis summaries to branch teams over their
// configured channels. Each (analysis, channel) pair produces at most one
// Notification row; delivery attempts are recorded on that row, retried with
// exponential backoff up to a bounded maximum, and never resubmitted
// automatically after exhaustion.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Channel identifies a delivery mechanism for branch notifications.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelChat     Channel = "chat"
	ChannelSMS      Channel = "sms"
	ChannelInternal Channel = "internal"
)

// ValidChannel reports whether c is a supported delivery channel.
func ValidChannel(c Channel) bool {
	switch c {
	case ChannelEmail, ChannelChat, ChannelSMS, ChannelInternal:
		return true
	}
	return false
}

// Notification delivery statuses.
const (
	StatusQueued    = "queued"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Notification is one dispatch of an analysis to a branch channel. The pair
// (AnalysisID, Channel) is unique; retries mutate this row rather than
// creating duplicates.
type Notification struct {
	ID           uuid.UUID `json:"id"`
	AnalysisID   uuid.UUID `json:"analysis_id"`
	BranchID     string    `json:"branch_id"`
	Channel      Channel   `json:"channel"`
	Address      string    `json:"address"`
	Status       string    `json:"status"`
	AttemptCount int       `json:"attempt_count"`
	LastError    string    `json:"last_error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Payload is the channel-agnostic summary handed to adapters.
type Payload struct {
	AnalysisID  uuid.UUID `json:"analysis_id"`
	BranchID    string    `json:"branch_id"`
	PayerID     string    `json:"payer_id"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	RecordCount int       `json:"record_count"`
	TotalAtRisk string    `json:"total_at_risk"`
	Summary     string    `json:"summary"`
}

// Route pairs a channel with the branch address it delivers to.
type Route struct {
	Channel Channel `json:"channel" toml:"channel"`
	Address string  `json:"address" toml:"address"`
}

func (r Route) String() string {
	return fmt.Sprintf("%s:%s", r.Channel, r.Address)
}
