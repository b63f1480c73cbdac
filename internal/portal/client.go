// Package portal defines the capability interface of the external payer
// portal client. The core never depends on a payer-specific implementation;
// the browser-automation engine behind this interface is out of scope and
// surfaces here only as listed files and raw bytes.
package portal

import (
	"context"
	"errors"
	"time"
)

// FileRef identifies one candidate file published on a payer portal.
type FileRef struct {
	PayerID     string    `json:"payer_id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	PublishedAt time.Time `json:"published_at"`
}

// Client lists and downloads rejection sheets for a single payer.
// Implementations own their portal session; one client instance serves one
// monitor worker at a time.
type Client interface {
	// ListNewFiles returns candidate files published since the last poll,
	// in discovery order.
	ListNewFiles(ctx context.Context, payerID string) ([]FileRef, error)

	// Download fetches the raw bytes for a listed file.
	Download(ctx context.Context, ref FileRef) ([]byte, error)
}

// Portal failures are retryable by the cycle orchestrator on the next cycle,
// never by this core within a cycle.
var (
	ErrPortalUnreachable = errors.New("payer portal unreachable")
	ErrAuthExpired       = errors.New("payer portal authentication expired")
)

// Retryable reports whether err is one of the portal error kinds that the
// next cycle may retry.
func Retryable(err error) bool {
	return errors.Is(err, ErrPortalUnreachable) || errors.Is(err, ErrAuthExpired)
}
