// Package monitor polls payer portals for new rejection sheets and drives
// each accepted file through the full pipeline: register, normalize, analyze,
// notify, track. A cycle runs one worker per payer; one payer's failure never
// aborts the others.
package monitor

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Cycle states.
const (
	CycleRunning   = "running"
	CycleCompleted = "completed"
	CycleCancelled = "cancelled"
)

// Payer health values reported per cycle.
const (
	HealthOK          = "ok"
	HealthUnreachable = "unreachable"
	HealthAuthExpired = "auth_expired"
	HealthFailed      = "failed"
)

// Pipeline stages tracked in per-payer failure counts. Operators use these
// to tell "nothing new" from "payer unreachable" from "data malformed".
const (
	StageDownload  = "download"
	StageNormalize = "normalize"
	StageAnalyze   = "analyze"
	StageNotify    = "notify"
)

// PayerStatus is one payer's outcome within a cycle.
type PayerStatus struct {
	PayerID       string         `json:"payer_id"`
	Health        string         `json:"health"`
	Discovered    int            `json:"discovered"`
	Ingested      int            `json:"ingested"`
	Duplicates    int            `json:"duplicates"`
	StageFailures map[string]int `json:"stage_failures"`
	Error         string         `json:"error,omitempty"`
}

// Cycle is one orchestrator run over all configured payers.
type Cycle struct {
	ID         uuid.UUID     `json:"id"`
	State      string        `json:"state"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Payers     []PayerStatus `json:"payers"`
}

// registry holds cycle telemetry in memory. Cycles are operational state,
// not ledger data; the external scheduler that triggers them is out of scope.
type registry struct {
	mu     sync.RWMutex
	cycles map[uuid.UUID]*Cycle
}

func newRegistry() *registry {
	return &registry{cycles: make(map[uuid.UUID]*Cycle)}
}

func (r *registry) put(c *Cycle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles[c.ID] = c
}

// update applies fn to a cycle under the registry lock.
func (r *registry) update(id uuid.UUID, fn func(*Cycle)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.cycles[id]; ok {
		fn(c)
	}
}

// get returns a deep copy so callers never race the running cycle.
func (r *registry) get(id uuid.UUID) (*Cycle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cycles[id]
	if !ok {
		return nil, false
	}

	snapshot := *c
	snapshot.Payers = make([]PayerStatus, len(c.Payers))
	for i, p := range c.Payers {
		snapshot.Payers[i] = p
		snapshot.Payers[i].StageFailures = make(map[string]int, len(p.StageFailures))
		for stage, n := range p.StageFailures {
			snapshot.Payers[i].StageFailures[stage] = n
		}
	}
	if c.FinishedAt != nil {
		finished := *c.FinishedAt
		snapshot.FinishedAt = &finished
	}
	return &snapshot, true
}
