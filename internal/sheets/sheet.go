// Package sheets implements the rejection-sheet domain: one row per
// downloaded payer artifact, deduplicated by content fingerprint, with the
// raw bytes archived to blob storage before any parsing happens.
package sheets

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Sheet processing statuses. A sheet is created pending, moves to processed
// or failed exactly once, and is archived after the retention window. It is
// never deleted.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
	StatusArchived  = "archived"
)

// Source formats detected by the normalizer.
const (
	FormatTabular   = "tabular"
	FormatDelimited = "delimited"
	FormatBundle    = "bundle"
	FormatUnknown   = "unknown"
)

// Sheet represents one downloaded rejection artifact and its processing state.
type Sheet struct {
	ID           uuid.UUID `json:"id"`
	PayerID      string    `json:"payer_id"`
	BranchID     string    `json:"branch_id,omitempty"`
	Filename     string    `json:"filename"`
	SourceFormat string    `json:"source_format"`
	Fingerprint  string    `json:"fingerprint"`
	StorageKey   string    `json:"storage_key"`
	Status       string    `json:"status"`
	ParseError   *string   `json:"parse_error,omitempty"`
	RetrievedAt  time.Time `json:"retrieved_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateCommand carries the data needed to register a newly retrieved sheet.
// Data holds the raw file bytes; BranchID is the originating branch when the
// source knows it (manual uploads), empty otherwise.
type CreateCommand struct {
	Data        []byte
	PayerID     string
	BranchID    string
	Filename    string
	ContentType string
}

// Fingerprint computes the content fingerprint used for per-payer
// deduplication: hex-encoded SHA-256 of the raw bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
