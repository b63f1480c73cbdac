// Package normalizer parses raw rejection sheets into canonical records.
// It detects the source shape by content signature, extracts rows, maps
// payer branch names and denial codes through the shared taxonomy tables,
// and assigns severity from the deterministic rule table.
package normalizer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/finchhealth/denialwatch/internal/audit"
	"github.com/finchhealth/denialwatch/internal/records"
	"github.com/finchhealth/denialwatch/internal/sheets"
	"github.com/finchhealth/denialwatch/internal/taxonomy"
)

// Outcome reports the result of normalizing one sheet.
type Outcome struct {
	SheetID  uuid.UUID        `json:"sheet_id"`
	Format   string           `json:"format"`
	Parsed   int              `json:"parsed"`
	Inserted []records.Record `json:"inserted"`
}

// System defines the public contract for sheet normalization.
type System interface {
	// Process normalizes one pending sheet: parse, map, persist records,
	// and advance the sheet status. A malformed sheet is marked failed,
	// retained, and audited; it is never retried automatically.
	Process(ctx context.Context, sheetID uuid.UUID) (*Outcome, error)
}

type service struct {
	sheets  sheets.System
	records records.System
	audit   audit.System
	logger  *slog.Logger
}

// New creates the normalizer service.
func New(
	sheetSys sheets.System,
	recordSys records.System,
	auditSys audit.System,
	logger *slog.Logger,
) System {
	return &service{
		sheets:  sheetSys,
		records: recordSys,
		audit:   auditSys,
		logger:  logger.With("system", "normalizer"),
	}
}

func (s *service) Process(ctx context.Context, sheetID uuid.UUID) (*Outcome, error) {
	sheet, err := s.sheets.Find(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if sheet.Status != sheets.StatusPending {
		return nil, fmt.Errorf("%w: sheet %s is %s", sheets.ErrNotPending, sheet.ID, sheet.Status)
	}

	raw, err := s.sheets.Raw(ctx, sheetID)
	if err != nil {
		return nil, fmt.Errorf("load sheet bytes: %w", err)
	}

	format, entries, parseErr := Parse(raw)
	if parseErr != nil {
		return nil, s.fail(ctx, sheet, parseErr)
	}

	cmds := make([]records.CreateCommand, 0, len(entries))
	for _, e := range entries {
		cmds = append(cmds, s.toCommand(sheet, e))
	}

	inserted, err := s.records.CreateBatch(ctx, cmds)
	if err != nil {
		return nil, fmt.Errorf("persist records: %w", err)
	}

	if err := s.sheets.MarkProcessed(ctx, sheetID, format); err != nil {
		return nil, fmt.Errorf("mark sheet processed: %w", err)
	}

	if err := s.audit.Record(ctx,
		audit.EntitySheet, sheetID.String(),
		sheets.StatusPending, sheets.StatusProcessed,
		audit.ActorNormalizer,
		fmt.Sprintf("%d rows parsed, %d records created", len(entries), len(inserted)),
	); err != nil {
		return nil, err
	}

	s.logger.Info("sheet normalized",
		"sheet", sheetID,
		"format", format,
		"parsed", len(entries),
		"inserted", len(inserted),
	)

	return &Outcome{
		SheetID:  sheetID,
		Format:   format,
		Parsed:   len(entries),
		Inserted: inserted,
	}, nil
}

// fail marks the sheet failed and records the parse error in the ledger.
// The sheet is retained for manual intervention.
func (s *service) fail(ctx context.Context, sheet *sheets.Sheet, parseErr error) error {
	if err := s.sheets.MarkFailed(ctx, sheet.ID, parseErr.Error()); err != nil {
		return fmt.Errorf("mark sheet failed: %w", err)
	}

	if err := s.audit.Record(ctx,
		audit.EntitySheet, sheet.ID.String(),
		sheets.StatusPending, sheets.StatusFailed,
		audit.ActorNormalizer,
		parseErr.Error(),
	); err != nil {
		return err
	}

	s.logger.Warn("sheet failed normalization",
		"sheet", sheet.ID,
		"payer", sheet.PayerID,
		"error", parseErr,
	)
	return fmt.Errorf("%w: %w", ErrMalformedSheet, parseErr)
}

func (s *service) toCommand(sheet *sheets.Sheet, e Entry) records.CreateCommand {
	branchSource := e.Branch
	if branchSource == "" {
		branchSource = sheet.BranchID
	}
	branch, branchOK := taxonomy.CanonicalBranch(branchSource)

	code, mapped := taxonomy.ResolveReason(sheet.PayerID, e.PayerCode)

	return records.CreateCommand{
		SheetID:        sheet.ID,
		ClaimID:        e.ClaimID,
		PayerID:        sheet.PayerID,
		BranchID:       branch,
		BranchReported: branchSource,
		BranchFlagged:  !branchOK,
		ReasonCode:     code,
		PayerCode:      e.PayerCode,
		ReasonText:     e.ReasonText,
		ReasonFlagged:  !mapped,
		Severity:       taxonomy.SeverityFor(code, e.Amount),
		AmountAtRisk:   e.Amount,
		ServiceDate:    e.ServiceDate,
	}
}
