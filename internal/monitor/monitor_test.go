package monitor_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/finchhealth/denialwatch/internal/analyzer"
	"github.com/finchhealth/denialwatch/internal/audit"
	"github.com/finchhealth/denialwatch/internal/monitor"
	"github.com/finchhealth/denialwatch/internal/normalizer"
	"github.com/finchhealth/denialwatch/internal/notify"
	"github.com/finchhealth/denialwatch/internal/portal"
	"github.com/finchhealth/denialwatch/internal/records"
	"github.com/finchhealth/denialwatch/internal/sheets"
	"github.com/finchhealth/denialwatch/internal/tracker"
)

// fakePortal serves scripted files and errors per payer.
type fakePortal struct {
	files map[string][]portal.FileRef
	data  map[string][]byte
	errs  map[string]error
}

func (f *fakePortal) ListNewFiles(ctx context.Context, payerID string) ([]portal.FileRef, error) {
	if err := f.errs[payerID]; err != nil {
		return nil, err
	}
	return f.files[payerID], nil
}

func (f *fakePortal) Download(ctx context.Context, ref portal.FileRef) ([]byte, error) {
	data, ok := f.data[ref.Name]
	if !ok {
		return nil, portal.ErrPortalUnreachable
	}
	return data, nil
}

// fakeSheets implements the registration surface with per-payer fingerprint
// dedup, the way the pg unique constraint behaves.
type fakeSheets struct {
	sheets.System

	mu   sync.Mutex
	byID map[uuid.UUID]sheets.Sheet
	seen map[string]bool
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{
		byID: make(map[uuid.UUID]sheets.Sheet),
		seen: make(map[string]bool),
	}
}

func (f *fakeSheets) Create(ctx context.Context, cmd sheets.CreateCommand) (*sheets.Sheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fingerprint := sheets.Fingerprint(cmd.Data)
	key := cmd.PayerID + "/" + fingerprint
	if f.seen[key] {
		return nil, sheets.ErrDuplicate
	}
	f.seen[key] = true

	sheet := sheets.Sheet{
		ID:          uuid.New(),
		PayerID:     cmd.PayerID,
		Filename:    cmd.Filename,
		Fingerprint: fingerprint,
		Status:      sheets.StatusPending,
	}
	f.byID[sheet.ID] = sheet
	return &sheet, nil
}

func (f *fakeSheets) Find(ctx context.Context, id uuid.UUID) (*sheets.Sheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sheet, ok := f.byID[id]
	if !ok {
		return nil, sheets.ErrNotFound
	}
	return &sheet, nil
}

// fakeNormalizer produces one record per sheet, or fails for marked payloads.
type fakeNormalizer struct {
	sheetsSys *fakeSheets
	branch    string
}

func (f *fakeNormalizer) Process(ctx context.Context, sheetID uuid.UUID) (*normalizer.Outcome, error) {
	sheet, err := f.sheetsSys.Find(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(sheet.Filename, "broken") {
		return nil, normalizer.ErrMalformedSheet
	}

	return &normalizer.Outcome{
		SheetID: sheetID,
		Format:  sheets.FormatDelimited,
		Parsed:  1,
		Inserted: []records.Record{
			{ID: uuid.New(), SheetID: sheetID, BranchID: f.branch},
		},
	}, nil
}

type fakeAnalyzer struct {
	analyzer.System

	mu    sync.Mutex
	calls []string
}

func (f *fakeAnalyzer) Generate(ctx context.Context, branchID, payerID string, windowStart, windowEnd time.Time) (*analyzer.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, branchID+"/"+payerID)
	return &analyzer.Analysis{
		ID:          uuid.New(),
		BranchID:    branchID,
		PayerID:     payerID,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Version:     1,
	}, nil
}

type fakeNotify struct {
	notify.System

	mu         sync.Mutex
	dispatched int
}

func (f *fakeNotify) Dispatch(ctx context.Context, a *analyzer.Analysis) ([]notify.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.dispatched++
	return []notify.Notification{
		{ID: uuid.New(), AnalysisID: a.ID, Channel: notify.ChannelInternal, Status: notify.StatusSent},
	}, nil
}

type fakeTracker struct {
	tracker.System

	mu         sync.Mutex
	registered int
	notified   int
}

func (f *fakeTracker) Register(ctx context.Context, recordID uuid.UUID, branchID string) (*tracker.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.registered++
	return &tracker.Item{ID: uuid.New(), RecordID: recordID, BranchID: branchID, State: tracker.StateDetected}, nil
}

func (f *fakeTracker) MarkNotified(ctx context.Context, recordIDs []uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.notified += len(recordIDs)
	return len(recordIDs), nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []string
}

func (a *memAudit) Record(ctx context.Context, entityType, entityID, fromState, toState, actor, detail string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entityType+":"+toState+":"+detail)
	return nil
}

func (a *memAudit) ForEntity(ctx context.Context, entityType, entityID string) ([]audit.Entry, error) {
	return nil, nil
}

func (a *memAudit) contains(fragment string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		if strings.Contains(e, fragment) {
			return true
		}
	}
	return false
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	monitor  *monitor.Monitor
	portal   *fakePortal
	sheets   *fakeSheets
	analyzer *fakeAnalyzer
	notify   *fakeNotify
	tracker  *fakeTracker
	audit    *memAudit
}

func newFixture(t *testing.T, payers []string, client *fakePortal) *fixture {
	t.Helper()

	sheetSys := newFakeSheets()
	analyzerSys := &fakeAnalyzer{}
	notifySys := &fakeNotify{}
	trackerSys := &fakeTracker{}
	auditSys := &memAudit{}

	m := monitor.New(
		client,
		sheetSys,
		&fakeNormalizer{sheetsSys: sheetSys, branch: "Riyadh"},
		analyzerSys,
		notifySys,
		trackerSys,
		auditSys,
		monitor.Options{Payers: payers, CycleTimeout: 5 * time.Second, WindowDays: 7},
		testLogger(),
	)

	return &fixture{
		monitor:  m,
		portal:   client,
		sheets:   sheetSys,
		analyzer: analyzerSys,
		notify:   notifySys,
		tracker:  trackerSys,
		audit:    auditSys,
	}
}

// awaitCycle polls status until the cycle leaves running.
func awaitCycle(t *testing.T, m *monitor.Monitor, id uuid.UUID) *monitor.Cycle {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		cycle, err := m.Status(id)
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if cycle.State != monitor.CycleRunning {
			return cycle
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("cycle did not finish in time")
	return nil
}

func payerStatus(t *testing.T, cycle *monitor.Cycle, payerID string) monitor.PayerStatus {
	t.Helper()
	for _, p := range cycle.Payers {
		if p.PayerID == payerID {
			return p
		}
	}
	t.Fatalf("payer %s not in cycle", payerID)
	return monitor.PayerStatus{}
}

func TestRunPipeline(t *testing.T) {
	client := &fakePortal{
		files: map[string][]portal.FileRef{
			"bupa": {
				{PayerID: "bupa", Name: "rejects-1.csv", ContentType: "text/csv"},
				{PayerID: "bupa", Name: "rejects-2.csv", ContentType: "text/csv"},
			},
		},
		data: map[string][]byte{
			"rejects-1.csv": []byte("file one"),
			"rejects-2.csv": []byte("file two"),
		},
	}
	f := newFixture(t, []string{"bupa"}, client)

	cycle, err := f.monitor.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	done := awaitCycle(t, f.monitor, cycle.ID)

	if done.State != monitor.CycleCompleted {
		t.Errorf("state: got %s, want %s", done.State, monitor.CycleCompleted)
	}
	if done.FinishedAt == nil {
		t.Error("finished cycle has no timestamp")
	}

	status := payerStatus(t, done, "bupa")
	if status.Health != monitor.HealthOK {
		t.Errorf("health: got %s", status.Health)
	}
	if status.Discovered != 2 || status.Ingested != 2 {
		t.Errorf("counts: discovered %d ingested %d, want 2/2", status.Discovered, status.Ingested)
	}

	if f.tracker.registered != 2 {
		t.Errorf("items registered: got %d, want 2", f.tracker.registered)
	}
	if f.notify.dispatched != 1 {
		t.Errorf("dispatches: got %d, want 1 (one branch)", f.notify.dispatched)
	}
	if f.tracker.notified != 2 {
		t.Errorf("records notified: got %d, want 2", f.tracker.notified)
	}
}

func TestRunPerPayerIsolation(t *testing.T) {
	client := &fakePortal{
		files: map[string][]portal.FileRef{
			"tawuniya": {{PayerID: "tawuniya", Name: "tw.csv", ContentType: "text/csv"}},
		},
		data: map[string][]byte{"tw.csv": []byte("tw rows")},
		errs: map[string]error{
			"bupa":    portal.ErrPortalUnreachable,
			"medgulf": portal.ErrAuthExpired,
		},
	}
	f := newFixture(t, []string{"bupa", "tawuniya", "medgulf"}, client)

	cycle, err := f.monitor.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	done := awaitCycle(t, f.monitor, cycle.ID)

	// one payer down never aborts the cycle
	if done.State != monitor.CycleCompleted {
		t.Errorf("state: got %s, want %s", done.State, monitor.CycleCompleted)
	}

	if got := payerStatus(t, done, "bupa").Health; got != monitor.HealthUnreachable {
		t.Errorf("bupa health: got %s, want %s", got, monitor.HealthUnreachable)
	}
	if got := payerStatus(t, done, "medgulf").Health; got != monitor.HealthAuthExpired {
		t.Errorf("medgulf health: got %s, want %s", got, monitor.HealthAuthExpired)
	}

	healthy := payerStatus(t, done, "tawuniya")
	if healthy.Health != monitor.HealthOK || healthy.Ingested != 1 {
		t.Errorf("tawuniya: health %s ingested %d, want ok/1", healthy.Health, healthy.Ingested)
	}
}

func TestRunCountsDuplicates(t *testing.T) {
	client := &fakePortal{
		files: map[string][]portal.FileRef{
			"bupa": {
				{PayerID: "bupa", Name: "same-a.csv"},
				{PayerID: "bupa", Name: "same-b.csv"},
			},
		},
		data: map[string][]byte{
			// identical bytes under different names
			"same-a.csv": []byte("identical content"),
			"same-b.csv": []byte("identical content"),
		},
	}
	f := newFixture(t, []string{"bupa"}, client)

	cycle, _ := f.monitor.Run(context.Background())
	done := awaitCycle(t, f.monitor, cycle.ID)

	status := payerStatus(t, done, "bupa")
	if status.Ingested != 1 || status.Duplicates != 1 {
		t.Errorf("counts: ingested %d duplicates %d, want 1/1", status.Ingested, status.Duplicates)
	}
	if !f.audit.contains("duplicate discarded") {
		t.Error("duplicate discard not audited")
	}
}

func TestRunCountsStageFailures(t *testing.T) {
	client := &fakePortal{
		files: map[string][]portal.FileRef{
			"bupa": {
				{PayerID: "bupa", Name: "missing.csv"},
				{PayerID: "bupa", Name: "broken.csv"},
				{PayerID: "bupa", Name: "good.csv"},
			},
		},
		data: map[string][]byte{
			"broken.csv": []byte("unparseable"),
			"good.csv":   []byte("good rows"),
		},
	}
	f := newFixture(t, []string{"bupa"}, client)

	cycle, _ := f.monitor.Run(context.Background())
	done := awaitCycle(t, f.monitor, cycle.ID)

	status := payerStatus(t, done, "bupa")
	if status.StageFailures[monitor.StageDownload] != 1 {
		t.Errorf("download failures: got %d, want 1", status.StageFailures[monitor.StageDownload])
	}
	if status.StageFailures[monitor.StageNormalize] != 1 {
		t.Errorf("normalize failures: got %d, want 1", status.StageFailures[monitor.StageNormalize])
	}
	if status.Ingested != 1 {
		t.Errorf("ingested: got %d, want 1", status.Ingested)
	}
}

func TestRunNoPayers(t *testing.T) {
	f := newFixture(t, nil, &fakePortal{})

	if _, err := f.monitor.Run(context.Background()); !errors.Is(err, monitor.ErrNoPayers) {
		t.Fatalf("error: got %v, want ErrNoPayers", err)
	}
}

func TestStatusUnknownCycle(t *testing.T) {
	f := newFixture(t, []string{"bupa"}, &fakePortal{})

	if _, err := f.monitor.Status(uuid.New()); !errors.Is(err, monitor.ErrCycleNotFound) {
		t.Fatalf("error: got %v, want ErrCycleNotFound", err)
	}
}

func TestStatusSnapshotIsolated(t *testing.T) {
	client := &fakePortal{
		files: map[string][]portal.FileRef{"bupa": nil},
	}
	f := newFixture(t, []string{"bupa"}, client)

	cycle, _ := f.monitor.Run(context.Background())
	done := awaitCycle(t, f.monitor, cycle.ID)

	// mutating a snapshot never leaks into the registry
	done.Payers[0].Ingested = 999
	done.Payers[0].StageFailures["download"] = 999

	fresh, err := f.monitor.Status(cycle.ID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if fresh.Payers[0].Ingested == 999 || fresh.Payers[0].StageFailures["download"] == 999 {
		t.Error("snapshot mutation leaked into the registry")
	}
}

func TestIngestDuplicateAudited(t *testing.T) {
	f := newFixture(t, []string{"bupa"}, &fakePortal{})

	cmd := sheets.CreateCommand{
		Data:     []byte("manual upload"),
		PayerID:  "bupa",
		Filename: "upload.csv",
	}

	if _, err := f.monitor.Ingest(context.Background(), cmd); err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}

	_, err := f.monitor.Ingest(context.Background(), cmd)
	if !errors.Is(err, sheets.ErrDuplicate) {
		t.Fatalf("error: got %v, want ErrDuplicate", err)
	}
	if !f.audit.contains(audit.EntityDiscard + ":discarded:duplicate discarded") {
		t.Error("duplicate discard not audited against the discard entity")
	}
}
