package analyzer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finchhealth/denialwatch/internal/audit"
	"github.com/finchhealth/denialwatch/internal/records"
	"github.com/finchhealth/denialwatch/pkg/repository"
)

const analysisColumns = `id, branch_id, payer_id, window_start, window_end, version,
	record_count, total_at_risk, clusters, recommendations, generated_at`

type repo struct {
	db      *sql.DB
	records records.System
	audit   audit.System
	logger  *slog.Logger
}

// New creates an analysis repository implementing the System interface.
func New(
	db *sql.DB,
	recordSys records.System,
	auditSys audit.System,
	logger *slog.Logger,
) System {
	return &repo{
		db:      db,
		records: recordSys,
		audit:   auditSys,
		logger:  logger.With("system", "analyzer"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Generate(ctx context.Context, branchID, payerID string, windowStart, windowEnd time.Time) (*Analysis, error) {
	if branchID == "" || payerID == "" || !windowEnd.After(windowStart) {
		return nil, ErrInvalidInput
	}

	current, err := r.records.InWindow(ctx, branchID, payerID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("load window records: %w", err)
	}
	if len(current) == 0 {
		return nil, ErrNoRecords
	}

	// trend compares against the immediately preceding window of equal length
	windowLen := windowEnd.Sub(windowStart)
	prior, err := r.records.InWindow(ctx, branchID, payerID, windowStart.Add(-windowLen), windowStart)
	if err != nil {
		return nil, fmt.Errorf("load prior window records: %w", err)
	}

	clusters := BuildClusters(current, prior)
	recommendations := BuildRecommendations(clusters)

	clustersJSON, err := json.Marshal(clusters)
	if err != nil {
		return nil, fmt.Errorf("encode clusters: %w", err)
	}
	recsJSON, err := json.Marshal(recommendations)
	if err != nil {
		return nil, fmt.Errorf("encode recommendations: %w", err)
	}

	analysis, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Analysis, error) {
		var version int
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(version), 0) + 1 FROM rejection_analyses
			 WHERE branch_id = $1 AND payer_id = $2 AND window_start = $3 AND window_end = $4`,
			branchID, payerID, windowStart, windowEnd,
		).Scan(&version)
		if err != nil {
			return Analysis{}, fmt.Errorf("next version: %w", err)
		}

		q := `
			INSERT INTO rejection_analyses(
				id, branch_id, payer_id, window_start, window_end, version,
				record_count, total_at_risk, clusters, recommendations)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING ` + analysisColumns

		args := []any{
			uuid.New(), branchID, payerID, windowStart, windowEnd, version,
			len(current), TotalAtRisk(current), clustersJSON, recsJSON,
		}

		return repository.QueryOne(ctx, tx, q, args, scanAnalysis)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrInvalidInput)
	}

	if err := r.audit.Record(ctx,
		audit.EntityAnalysis, analysis.ID.String(),
		"", "generated",
		audit.ActorAnalyzer,
		fmt.Sprintf("branch=%s payer=%s version=%d records=%d", branchID, payerID, analysis.Version, analysis.RecordCount),
	); err != nil {
		return nil, err
	}

	r.logger.Info("analysis generated",
		"id", analysis.ID,
		"branch", branchID,
		"payer", payerID,
		"version", analysis.Version,
		"clusters", len(analysis.Clusters),
	)
	return &analysis, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Analysis, error) {
	q := "SELECT " + analysisColumns + " FROM rejection_analyses WHERE id = $1"

	a, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanAnalysis)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrInvalidInput)
	}
	return &a, nil
}

func (r *repo) Latest(ctx context.Context, branchID, payerID string, windowStart, windowEnd time.Time) (*Analysis, error) {
	q := `SELECT ` + analysisColumns + ` FROM rejection_analyses
		WHERE branch_id = $1 AND payer_id = $2 AND window_start = $3 AND window_end = $4
		ORDER BY version DESC
		LIMIT 1`

	a, err := repository.QueryOne(ctx, r.db, q, []any{branchID, payerID, windowStart, windowEnd}, scanAnalysis)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrInvalidInput)
	}
	return &a, nil
}

func scanAnalysis(s repository.Scanner) (Analysis, error) {
	var (
		a            Analysis
		clustersJSON []byte
		recsJSON     []byte
	)

	err := s.Scan(
		&a.ID,
		&a.BranchID,
		&a.PayerID,
		&a.WindowStart,
		&a.WindowEnd,
		&a.Version,
		&a.RecordCount,
		&a.TotalAtRisk,
		&clustersJSON,
		&recsJSON,
		&a.GeneratedAt,
	)
	if err != nil {
		return a, err
	}

	if err := json.Unmarshal(clustersJSON, &a.Clusters); err != nil {
		return a, fmt.Errorf("decode clusters: %w", err)
	}
	if err := json.Unmarshal(recsJSON, &a.Recommendations); err != nil {
		return a, fmt.Errorf("decode recommendations: %w", err)
	}

	return a, nil
}
