package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finchhealth/denialwatch/internal/analyzer"
	"github.com/finchhealth/denialwatch/internal/audit"
	"github.com/finchhealth/denialwatch/internal/notify"
	"github.com/finchhealth/denialwatch/internal/records"
)

// NotificationSource resolves dispatched notifications for acknowledgment.
type NotificationSource interface {
	Find(ctx context.Context, id uuid.UUID) (*notify.Notification, error)
}

// AnalysisSource resolves the analysis an acknowledgment responds to.
type AnalysisSource interface {
	Find(ctx context.Context, id uuid.UUID) (*analyzer.Analysis, error)
}

// RecordSource resolves the records an analysis window covers.
type RecordSource interface {
	InWindow(ctx context.Context, branchID, payerID string, from, to time.Time) ([]records.Record, error)
}

type service struct {
	store         store
	notifications NotificationSource
	analyses      AnalysisSource
	records       RecordSource
	audit         audit.System
	slaWindow     time.Duration
	logger        *slog.Logger
}

// New creates the workflow service. slaDays is the regulatory response
// window; an item's deadline is fixed at notified time and never extended.
func New(
	st store,
	notifications NotificationSource,
	analyses AnalysisSource,
	recordSrc RecordSource,
	auditSys audit.System,
	slaDays int,
	logger *slog.Logger,
) System {
	if slaDays < 1 {
		slaDays = 15
	}

	return &service{
		store:         st,
		notifications: notifications,
		analyses:      analyses,
		records:       recordSrc,
		audit:         auditSys,
		slaWindow:     time.Duration(slaDays) * 24 * time.Hour,
		logger:        logger.With("system", "tracker"),
	}
}

func (s *service) Handler() *Handler {
	return NewHandler(s, s.logger)
}

func (s *service) Register(ctx context.Context, recordID uuid.UUID, branchID string) (*Item, error) {
	if recordID == uuid.Nil || branchID == "" {
		return nil, ErrInvalidInput
	}

	item, created, err := s.store.insert(ctx, Item{
		ID:       uuid.New(),
		RecordID: recordID,
		BranchID: branchID,
		State:    StateDetected,
	})
	if err != nil {
		return nil, fmt.Errorf("register item: %w", err)
	}
	if !created {
		return &item, nil
	}

	if err := s.audit.Record(ctx,
		audit.EntityResubmission, item.ID.String(),
		"", StateDetected,
		audit.ActorTracker,
		"record "+recordID.String(),
	); err != nil {
		return nil, err
	}

	return &item, nil
}

func (s *service) MarkNotified(ctx context.Context, recordIDs []uuid.UUID) (int, error) {
	deadline := time.Now().UTC().Add(s.slaWindow)

	advanced := 0
	for _, recordID := range recordIDs {
		item, err := s.store.transition(ctx, recordID, StateDetected, StateNotified, &deadline)
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNotFound) {
			// already notified or not tracked; a retried cycle lands here
			continue
		}
		if err != nil {
			return advanced, fmt.Errorf("mark notified: %w", err)
		}

		if err := s.audit.Record(ctx,
			audit.EntityResubmission, item.ID.String(),
			StateDetected, StateNotified,
			audit.ActorTracker,
			"sla deadline "+deadline.Format(time.RFC3339),
		); err != nil {
			return advanced, err
		}
		advanced++
	}

	return advanced, nil
}

func (s *service) Acknowledge(ctx context.Context, cmd AcknowledgeCommand) (*Acknowledgment, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	notification, err := s.notifications.Find(ctx, cmd.NotificationID)
	if err != nil {
		return nil, err
	}

	ack, created, err := s.store.insertAck(ctx, Acknowledgment{
		ID:             uuid.New(),
		NotificationID: cmd.NotificationID,
		AcknowledgedBy: cmd.Actor,
		Action:         cmd.Action,
	})
	if err != nil {
		return nil, fmt.Errorf("store acknowledgment: %w", err)
	}
	if !created {
		// duplicate branch response under at-least-once delivery; no-op
		return &ack, nil
	}

	if err := s.audit.Record(ctx,
		audit.EntityAcknowledgment, ack.ID.String(),
		"", "recorded",
		audit.ActorTracker,
		fmt.Sprintf("%s by %s for notification %s", cmd.Action, cmd.Actor, cmd.NotificationID),
	); err != nil {
		return nil, err
	}

	if cmd.Action == ActionAccepted {
		if err := s.advanceAcknowledged(ctx, notification.AnalysisID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("acknowledgment recorded",
		"notification", cmd.NotificationID, "actor", cmd.Actor, "action", cmd.Action)
	return &ack, nil
}

// advanceAcknowledged moves the items covered by the acknowledged analysis
// from notified to acknowledged. Items in any other state are left alone:
// overlapping windows and duplicate deliveries make those expected.
func (s *service) advanceAcknowledged(ctx context.Context, analysisID uuid.UUID) error {
	analysis, err := s.analyses.Find(ctx, analysisID)
	if err != nil {
		return err
	}

	covered, err := s.records.InWindow(ctx, analysis.BranchID, analysis.PayerID, analysis.WindowStart, analysis.WindowEnd)
	if err != nil {
		return fmt.Errorf("load covered records: %w", err)
	}

	for _, record := range covered {
		item, err := s.store.transition(ctx, record.ID, StateNotified, StateAcknowledged, nil)
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("advance item: %w", err)
		}

		if err := s.audit.Record(ctx,
			audit.EntityResubmission, item.ID.String(),
			StateNotified, StateAcknowledged,
			audit.ActorTracker,
			"analysis "+analysisID.String(),
		); err != nil {
			return err
		}
	}

	return nil
}

func (s *service) Correct(ctx context.Context, recordID uuid.UUID) (*Item, error) {
	return s.advance(ctx, recordID, StateAcknowledged, StateCorrected)
}

func (s *service) Ready(ctx context.Context, recordID uuid.UUID) (*Item, error) {
	return s.advance(ctx, recordID, StateCorrected, StateResubmitted)
}

func (s *service) Close(ctx context.Context, recordID uuid.UUID) (*Item, error) {
	return s.advance(ctx, recordID, StateResubmitted, StateClosed)
}

func (s *service) advance(ctx context.Context, recordID uuid.UUID, from, to string) (*Item, error) {
	if recordID == uuid.Nil {
		return nil, ErrInvalidInput
	}

	item, err := s.store.transition(ctx, recordID, from, to, nil)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			s.logger.Warn("transition rejected", "record", recordID, "from", from, "to", to)
		}
		return nil, err
	}

	if err := s.audit.Record(ctx,
		audit.EntityResubmission, item.ID.String(),
		from, to,
		audit.ActorTracker,
		"record "+recordID.String(),
	); err != nil {
		return nil, err
	}

	return &item, nil
}

func (s *service) ForRecord(ctx context.Context, recordID uuid.UUID) (*Item, error) {
	item, err := s.store.forRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *service) Queue(ctx context.Context, branchID string) ([]Item, error) {
	if branchID == "" {
		return nil, ErrInvalidInput
	}
	return s.store.queue(ctx, branchID)
}

func (s *service) EscalateOverdue(ctx context.Context) (int, error) {
	flagged, err := s.store.escalateOverdue(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("escalate overdue: %w", err)
	}

	for _, item := range flagged {
		if err := s.audit.Record(ctx,
			audit.EntityResubmission, item.ID.String(),
			item.State, "escalated",
			audit.ActorTracker,
			"sla deadline elapsed without acknowledgment",
		); err != nil {
			return 0, err
		}

		s.logger.Warn("sla breach escalated", "item", item.ID, "record", item.RecordID, "branch", item.BranchID)
	}

	return len(flagged), nil
}
