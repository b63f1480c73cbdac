package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/finchhealth/denialwatch/internal/analyzer"
)

// System defines the public contract for notification operations.
type System interface {
	Handler() *Handler

	// Dispatch creates one queued notification per configured channel for
	// the analysis and attempts delivery on each. Delivery per channel is
	// independent: one adapter fault never blocks the others. A pair that
	// was already dispatched is returned as stored and never resent.
	Dispatch(ctx context.Context, a *analyzer.Analysis) ([]Notification, error)

	Find(ctx context.Context, id uuid.UUID) (*Notification, error)

	ForAnalysis(ctx context.Context, analysisID uuid.UUID) ([]Notification, error)
}

// store is the persistence surface the router needs. The pg implementation
// lives in repository.go; tests substitute an in-memory fake.
type store interface {
	// create inserts a queued notification unless the (analysis, channel)
	// pair already exists. The second return reports whether a row was
	// actually created; when false the existing row is returned.
	create(ctx context.Context, n Notification) (Notification, bool, error)

	recordAttempt(ctx context.Context, id uuid.UUID, status string, attempts int, lastError string) (Notification, error)

	find(ctx context.Context, id uuid.UUID) (Notification, error)

	forAnalysis(ctx context.Context, analysisID uuid.UUID) ([]Notification, error)
}
