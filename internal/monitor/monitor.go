package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/finchhealth/denialwatch/internal/analyzer"
	"github.com/finchhealth/denialwatch/internal/audit"
	"github.com/finchhealth/denialwatch/internal/normalizer"
	"github.com/finchhealth/denialwatch/internal/notify"
	"github.com/finchhealth/denialwatch/internal/portal"
	"github.com/finchhealth/denialwatch/internal/sheets"
	"github.com/finchhealth/denialwatch/internal/tracker"
)

// Options controls cycle orchestration.
type Options struct {
	// Payers lists the payer ids to poll each cycle.
	Payers []string
	// CycleTimeout bounds a whole cycle; cancellation propagates to
	// in-flight portal calls.
	CycleTimeout time.Duration
	// WindowDays is the analysis window length ending at the cycle day.
	WindowDays int
}

func (o *Options) normalize() {
	if o.CycleTimeout <= 0 {
		o.CycleTimeout = 10 * time.Minute
	}
	if o.WindowDays < 1 {
		o.WindowDays = 7
	}
}

// System defines the public contract for portal monitoring.
type System interface {
	Handler() *Handler

	// Ingest runs one file through the pipeline: register, audit,
	// normalize, track. It serves the manual upload path and each portal
	// download identically. A previously seen fingerprint is discarded
	// with an audit entry and ErrDuplicate.
	Ingest(ctx context.Context, cmd sheets.CreateCommand) (*sheets.Sheet, error)

	// Run starts a cycle over all configured payers and returns its
	// initial snapshot; workers proceed in the background.
	Run(ctx context.Context) (*Cycle, error)

	// Status returns a point-in-time snapshot of a cycle.
	Status(id uuid.UUID) (*Cycle, error)
}

// Monitor orchestrates portal polling and the ingestion pipeline.
type Monitor struct {
	client     portal.Client
	sheets     sheets.System
	normalizer normalizer.System
	analyzer   analyzer.System
	notify     notify.System
	tracker    tracker.System
	audit      audit.System
	registry   *registry
	opts       Options
	logger     *slog.Logger
}

func New(
	client portal.Client,
	sheetSys sheets.System,
	normalizerSys normalizer.System,
	analyzerSys analyzer.System,
	notifySys notify.System,
	trackerSys tracker.System,
	auditSys audit.System,
	opts Options,
	logger *slog.Logger,
) *Monitor {
	opts.normalize()

	return &Monitor{
		client:     client,
		sheets:     sheetSys,
		normalizer: normalizerSys,
		analyzer:   analyzerSys,
		notify:     notifySys,
		tracker:    trackerSys,
		audit:      auditSys,
		registry:   newRegistry(),
		opts:       opts,
		logger:     logger.With("system", "monitor"),
	}
}

func (m *Monitor) Handler() *Handler {
	return NewHandler(m, m.logger)
}

func (m *Monitor) Ingest(ctx context.Context, cmd sheets.CreateCommand) (*sheets.Sheet, error) {
	sheet, _, err := m.ingest(ctx, cmd)
	return sheet, err
}

// ingest registers and processes one file. The outcome is nil when the sheet
// failed normalization or was a duplicate.
func (m *Monitor) ingest(ctx context.Context, cmd sheets.CreateCommand) (*sheets.Sheet, *normalizer.Outcome, error) {
	sheet, err := m.sheets.Create(ctx, cmd)
	if errors.Is(err, sheets.ErrDuplicate) {
		fingerprint := sheets.Fingerprint(cmd.Data)
		if aerr := m.audit.Record(ctx,
			audit.EntityDiscard, fingerprint,
			"", "discarded",
			audit.ActorMonitor,
			fmt.Sprintf("duplicate discarded: payer %s file %s", cmd.PayerID, cmd.Filename),
		); aerr != nil {
			return nil, nil, aerr
		}
		return nil, nil, fmt.Errorf("%w: payer %s fingerprint %s", sheets.ErrDuplicate, cmd.PayerID, fingerprint)
	}
	if err != nil {
		return nil, nil, err
	}

	if err := m.audit.Record(ctx,
		audit.EntitySheet, sheet.ID.String(),
		"", sheets.StatusPending,
		audit.ActorMonitor,
		fmt.Sprintf("payer %s file %s", cmd.PayerID, cmd.Filename),
	); err != nil {
		return nil, nil, err
	}

	outcome, err := m.normalizer.Process(ctx, sheet.ID)
	if err != nil {
		// the normalizer marked the sheet failed and audited the parse error
		return sheet, nil, err
	}

	for _, record := range outcome.Inserted {
		if _, err := m.tracker.Register(ctx, record.ID, record.BranchID); err != nil {
			return sheet, outcome, fmt.Errorf("track record %s: %w", record.ID, err)
		}
	}

	refreshed, err := m.sheets.Find(ctx, sheet.ID)
	if err != nil {
		return sheet, outcome, err
	}
	return refreshed, outcome, nil
}

func (m *Monitor) Run(ctx context.Context) (*Cycle, error) {
	if len(m.opts.Payers) == 0 {
		return nil, ErrNoPayers
	}

	cycle := &Cycle{
		ID:        uuid.New(),
		State:     CycleRunning,
		StartedAt: time.Now().UTC(),
		Payers:    make([]PayerStatus, len(m.opts.Payers)),
	}
	for i, payerID := range m.opts.Payers {
		cycle.Payers[i] = PayerStatus{
			PayerID:       payerID,
			Health:        HealthOK,
			StageFailures: make(map[string]int),
		}
	}
	m.registry.put(cycle)

	// the cycle outlives the triggering request
	go m.runCycle(cycle.ID)

	snapshot, _ := m.registry.get(cycle.ID)
	return snapshot, nil
}

func (m *Monitor) Status(id uuid.UUID) (*Cycle, error) {
	snapshot, ok := m.registry.get(id)
	if !ok {
		return nil, ErrCycleNotFound
	}
	return snapshot, nil
}

func (m *Monitor) runCycle(cycleID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.CycleTimeout)
	defer cancel()

	m.logger.Info("cycle started", "cycle", cycleID, "payers", len(m.opts.Payers))

	g, gctx := errgroup.WithContext(ctx)
	for i, payerID := range m.opts.Payers {
		g.Go(func() error {
			status := m.pollPayer(gctx, payerID)
			m.registry.update(cycleID, func(c *Cycle) {
				c.Payers[i] = status
			})
			// payer faults land in the status row; only cancellation
			// stops the remaining workers
			return gctx.Err()
		})
	}

	state := CycleCompleted
	if err := g.Wait(); err != nil {
		state = CycleCancelled
	}

	finished := time.Now().UTC()
	m.registry.update(cycleID, func(c *Cycle) {
		c.State = state
		c.FinishedAt = &finished
	})

	m.logger.Info("cycle finished", "cycle", cycleID, "state", state)
}

// pollPayer runs one payer's worker: list, download, ingest in discovery
// order, then analyze and notify the branches that produced new records.
func (m *Monitor) pollPayer(ctx context.Context, payerID string) PayerStatus {
	status := PayerStatus{
		PayerID:       payerID,
		Health:        HealthOK,
		StageFailures: make(map[string]int),
	}

	files, err := m.client.ListNewFiles(ctx, payerID)
	if err != nil {
		status.Health = healthFor(err)
		status.Error = err.Error()
		m.logger.Warn("payer unavailable", "payer", payerID, "health", status.Health, "error", err)
		return status
	}
	status.Discovered = len(files)

	branchRecords := make(map[string][]uuid.UUID)

	for _, ref := range files {
		data, err := m.client.Download(ctx, ref)
		if err != nil {
			status.StageFailures[StageDownload]++
			if ctx.Err() != nil {
				status.Error = ctx.Err().Error()
				return status
			}
			continue
		}

		_, outcome, err := m.ingest(ctx, sheets.CreateCommand{
			Data:        data,
			PayerID:     payerID,
			Filename:    ref.Name,
			ContentType: ref.ContentType,
		})
		if errors.Is(err, sheets.ErrDuplicate) {
			status.Duplicates++
			continue
		}
		if err != nil {
			status.StageFailures[StageNormalize]++
			if ctx.Err() != nil {
				status.Error = ctx.Err().Error()
				return status
			}
			continue
		}

		status.Ingested++
		for _, record := range outcome.Inserted {
			branchRecords[record.BranchID] = append(branchRecords[record.BranchID], record.ID)
		}
	}

	m.analyzeAndNotify(ctx, payerID, branchRecords, &status)
	return status
}

func (m *Monitor) analyzeAndNotify(ctx context.Context, payerID string, branchRecords map[string][]uuid.UUID, status *PayerStatus) {
	if len(branchRecords) == 0 {
		return
	}

	// day-aligned window so repeated cycles within a day analyze the same span
	windowEnd := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	windowStart := windowEnd.AddDate(0, 0, -m.opts.WindowDays)

	branches := make([]string, 0, len(branchRecords))
	for branch := range branchRecords {
		branches = append(branches, branch)
	}
	sort.Strings(branches)

	for _, branch := range branches {
		analysis, err := m.analyzer.Generate(ctx, branch, payerID, windowStart, windowEnd)
		if err != nil {
			if errors.Is(err, analyzer.ErrNoRecords) {
				continue
			}
			status.StageFailures[StageAnalyze]++
			continue
		}

		notifications, err := m.notify.Dispatch(ctx, analysis)
		if err != nil {
			status.StageFailures[StageNotify]++
			continue
		}

		if !anySent(notifications) {
			status.StageFailures[StageNotify]++
			continue
		}

		if _, err := m.tracker.MarkNotified(ctx, branchRecords[branch]); err != nil {
			status.StageFailures[StageNotify]++
		}
	}
}

func anySent(notifications []notify.Notification) bool {
	for _, n := range notifications {
		if n.Status == notify.StatusSent || n.Status == notify.StatusDelivered {
			return true
		}
	}
	return false
}

func healthFor(err error) string {
	switch {
	case errors.Is(err, portal.ErrAuthExpired):
		return HealthAuthExpired
	case errors.Is(err, portal.ErrPortalUnreachable):
		return HealthUnreachable
	default:
		return HealthFailed
	}
}
