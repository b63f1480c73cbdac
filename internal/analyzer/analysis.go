// Package analyzer derives root-cause intelligence from normalized rejection
// records. Analyses are immutable and versioned: a new run over the same
// window produces a new version, never an in-place edit. All clustering,
// ranking, and scoring is rule-based and deterministic; identical input
// yields bit-for-bit identical output.
package analyzer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finchhealth/denialwatch/internal/taxonomy"
)

// Analysis is one derived insight scoped to (branch, payer, time window).
type Analysis struct {
	ID              uuid.UUID        `json:"id"`
	BranchID        string           `json:"branch_id"`
	PayerID         string           `json:"payer_id"`
	WindowStart     time.Time        `json:"window_start"`
	WindowEnd       time.Time        `json:"window_end"`
	Version         int              `json:"version"`
	RecordCount     int              `json:"record_count"`
	TotalAtRisk     decimal.Decimal  `json:"total_at_risk"`
	Clusters        []Cluster        `json:"clusters"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// Cluster is one ranked reason-code bucket. Confidence is serialized as a
// fixed four-decimal string so two identical runs compare byte-equal.
type Cluster struct {
	ReasonCode   taxonomy.Code   `json:"reason_code"`
	Class        taxonomy.Class  `json:"class"`
	Count        int             `json:"count"`
	AmountAtRisk decimal.Decimal `json:"amount_at_risk"`
	PriorCount   int             `json:"prior_count"`
	TrendDelta   int             `json:"trend_delta"`
	Confidence   string          `json:"confidence"`
}

// Recommendation is one generated action item tied to a reason code.
type Recommendation struct {
	ReasonCode taxonomy.Code `json:"reason_code"`
	Text       string        `json:"text"`
}
