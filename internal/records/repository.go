package records

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finchhealth/denialwatch/internal/taxonomy"
	"github.com/finchhealth/denialwatch/pkg/pagination"
	"github.com/finchhealth/denialwatch/pkg/query"
	"github.com/finchhealth/denialwatch/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a record repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "records"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Record], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "ClaimID", "ReasonText", "BranchID")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Record, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	rec, err := repository.QueryOne(ctx, r.db, q, args, scanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rec, nil
}

const insertSQL = `
	INSERT INTO rejection_records(
		id, sheet_id, claim_id, payer_id, branch_id, branch_reported,
		branch_flagged, reason_code, payer_code, reason_text, reason_flagged,
		severity, amount_at_risk, service_date, row_hash, supersedes_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	ON CONFLICT (row_hash) DO NOTHING
	RETURNING id, sheet_id, claim_id, payer_id, branch_id, branch_reported,
		branch_flagged, reason_code, payer_code, reason_text, reason_flagged,
		severity, amount_at_risk, service_date, detected_at, row_hash, supersedes_id`

// CreateBatch writes records one at a time so a cancelled cycle leaves only
// whole rows behind; the row-hash conflict target makes the retry idempotent.
func (r *repo) CreateBatch(ctx context.Context, cmds []CreateCommand) ([]Record, error) {
	inserted := make([]Record, 0, len(cmds))

	for _, cmd := range cmds {
		if err := validate(cmd); err != nil {
			return inserted, err
		}

		rec, err := repository.QueryOne(ctx, r.db, insertSQL, insertArgs(cmd, cmd.RowHash(), nil), scanRecord)
		if err != nil {
			if err == sql.ErrNoRows {
				// idempotency key collision: the row already exists
				continue
			}
			return inserted, fmt.Errorf("insert record %s: %w", cmd.ClaimID, err)
		}
		inserted = append(inserted, rec)
	}

	r.logger.Info("record batch written",
		"requested", len(cmds),
		"inserted", len(inserted),
	)
	return inserted, nil
}

func (r *repo) InWindow(ctx context.Context, branchID, payerID string, from, to time.Time) ([]Record, error) {
	q := `
		SELECT id, sheet_id, claim_id, payer_id, branch_id, branch_reported,
			branch_flagged, reason_code, payer_code, reason_text, reason_flagged,
			severity, amount_at_risk, service_date, detected_at, row_hash, supersedes_id
		FROM rejection_records
		WHERE branch_id = $1 AND payer_id = $2
		AND detected_at >= $3 AND detected_at < $4
		ORDER BY detected_at, claim_id`

	recs, err := repository.QueryMany(ctx, r.db, q, []any{branchID, payerID, from, to}, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query window records: %w", err)
	}
	return recs, nil
}

func (r *repo) Supersede(ctx context.Context, originalID uuid.UUID, cmd CreateCommand) (*Record, error) {
	original, err := r.Find(ctx, originalID)
	if err != nil {
		return nil, err
	}

	if err := validate(cmd); err != nil {
		return nil, err
	}

	// correction hash folds in the original id so a corrected row never
	// collides with the row it replaces
	hash := cmd.RowHash() + ":" + original.ID.String()[:8]

	rec, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Record, error) {
		return repository.QueryOne(ctx, tx, insertSQL, insertArgs(cmd, hash, &original.ID), scanRecord)
	})
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrDuplicate
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("record superseded", "original", originalID, "replacement", rec.ID)
	return &rec, nil
}

func validate(cmd CreateCommand) error {
	if cmd.ClaimID == "" || cmd.PayerID == "" || cmd.BranchID == "" {
		return ErrInvalidInput
	}
	if !taxonomy.Valid(cmd.ReasonCode) {
		return fmt.Errorf("%w: reason code %q outside taxonomy", ErrInvalidInput, cmd.ReasonCode)
	}
	return nil
}

func insertArgs(cmd CreateCommand, rowHash string, supersedes *uuid.UUID) []any {
	return []any{
		uuid.New(),
		cmd.SheetID,
		cmd.ClaimID,
		cmd.PayerID,
		cmd.BranchID,
		cmd.BranchReported,
		cmd.BranchFlagged,
		string(cmd.ReasonCode),
		cmd.PayerCode,
		cmd.ReasonText,
		cmd.ReasonFlagged,
		string(cmd.Severity),
		cmd.AmountAtRisk,
		cmd.ServiceDate,
		rowHash,
		supersedes,
	}
}
