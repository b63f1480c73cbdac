package sheets

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/finchhealth/denialwatch/pkg/pagination"
	"github.com/finchhealth/denialwatch/pkg/query"
	"github.com/finchhealth/denialwatch/pkg/repository"
	"github.com/finchhealth/denialwatch/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a sheet repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "sheets"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Sheet], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Filename", "PayerID", "BranchID")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count sheets: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanSheet)
	if err != nil {
		return nil, fmt.Errorf("query sheets: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Sheet, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	sh, err := repository.QueryOne(ctx, r.db, q, args, scanSheet)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &sh, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Sheet, error) {
	if len(cmd.Data) == 0 || cmd.PayerID == "" {
		return nil, ErrInvalidInput
	}

	id := uuid.New()
	fingerprint := Fingerprint(cmd.Data)
	key := buildStorageKey(cmd.PayerID, fingerprint, sanitizeFilename(cmd.Filename))

	// Identical bytes produce the same storage key, so a re-ingest must never
	// reach the upload: it would overwrite the original sheet's archive.
	seen, err := r.Seen(ctx, cmd.PayerID, fingerprint)
	if err != nil {
		return nil, err
	}
	if seen {
		return nil, ErrDuplicate
	}

	// Archive raw bytes first: a crash between upload and insert leaves an
	// orphan blob, never a row without its artifact.
	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), contentTypeOrDefault(cmd.ContentType)); err != nil {
		return nil, fmt.Errorf("archive sheet blob: %w", err)
	}

	q := `
		INSERT INTO rejection_sheets(id, payer_id, branch_id, filename, source_format, fingerprint, storage_key, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, payer_id, branch_id, filename, source_format, fingerprint, storage_key, status, parse_error, retrieved_at, updated_at`

	insertArgs := []any{
		id,
		cmd.PayerID,
		cmd.BranchID,
		cmd.Filename,
		FormatUnknown,
		fingerprint,
		key,
		StatusPending,
	}

	sh, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Sheet, error) {
		return repository.QueryOne(ctx, tx, q, insertArgs, scanSheet)
	})

	if err != nil {
		mapped := repository.MapError(err, ErrNotFound, ErrDuplicate)
		// A concurrent ingest winning the unique-constraint race owns the
		// blob at this key; only clean up after non-duplicate failures.
		if mapped != ErrDuplicate {
			if delErr := r.storage.Delete(ctx, key); delErr != nil {
				r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
			}
		}
		return nil, mapped
	}

	r.logger.Info("sheet registered",
		"id", sh.ID,
		"payer", sh.PayerID,
		"fingerprint", sh.Fingerprint,
	)
	return &sh, nil
}

func (r *repo) Seen(ctx context.Context, payerID, fingerprint string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM rejection_sheets WHERE payer_id = $1 AND fingerprint = $2",
		payerID, fingerprint,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check fingerprint: %w", err)
	}
	return count > 0, nil
}

func (r *repo) Raw(ctx context.Context, id uuid.UUID) ([]byte, error) {
	sh, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	body, err := r.storage.Download(ctx, sh.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("download sheet blob: %w", err)
	}
	defer body.Close()

	return io.ReadAll(body)
}

func (r *repo) MarkProcessed(ctx context.Context, id uuid.UUID, sourceFormat string) error {
	return r.transition(ctx, id,
		`UPDATE rejection_sheets
		 SET status = $2, source_format = $3, updated_at = now()
		 WHERE id = $1 AND status = $4`,
		id, StatusProcessed, sourceFormat, StatusPending,
	)
}

func (r *repo) MarkFailed(ctx context.Context, id uuid.UUID, parseErr string) error {
	return r.transition(ctx, id,
		`UPDATE rejection_sheets
		 SET status = $2, parse_error = $3, updated_at = now()
		 WHERE id = $1 AND status = $4`,
		id, StatusFailed, parseErr, StatusPending,
	)
}

func (r *repo) transition(ctx context.Context, id uuid.UUID, q string, args ...any) error {
	err := repository.ExecExpectOne(ctx, r.db, q, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			// row exists but is not pending, or does not exist at all
			if _, findErr := r.Find(ctx, id); findErr != nil {
				return findErr
			}
			return ErrNotPending
		}
		return fmt.Errorf("update sheet status: %w", err)
	}
	return nil
}

func (r *repo) ArchiveOlderThan(ctx context.Context, days int) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rejection_sheets
		 SET status = $1, updated_at = now()
		 WHERE status IN ($2, $3)
		 AND retrieved_at < now() - make_interval(days => $4)`,
		StatusArchived, StatusProcessed, StatusFailed, days,
	)
	if err != nil {
		return 0, fmt.Errorf("archive sheets: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if n > 0 {
		r.logger.Info("sheets archived", "count", n, "retention_days", days)
	}
	return int(n), nil
}

func buildStorageKey(payerID, fingerprint, filename string) string {
	return fmt.Sprintf("sheets/%s/%s/%s", payerID, fingerprint, filename)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "" {
		name = "sheet"
	}
	return url.PathEscape(name)
}

func contentTypeOrDefault(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
