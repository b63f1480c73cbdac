package api

import (
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

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Audit      audit.System
	Sheets     sheets.System
	Records    records.System
	Normalizer normalizer.System
	Analyzer   analyzer.System
	Notify     notify.System
	Tracker    tracker.System
	Monitor    monitor.System
}

// NewDomain creates all domain systems from the API runtime. Wiring follows
// the pipeline order: sheets and records feed the normalizer, the analyzer
// reads records, the router consumes analyses, and the tracker closes the
// loop from branch responses back to records.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()
	cfg := runtime.Config

	auditSys := audit.New(db, runtime.Logger)

	sheetSys := sheets.New(
		db,
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	recordSys := records.New(db, runtime.Logger, runtime.Pagination)

	normalizerSys := normalizer.New(sheetSys, recordSys, auditSys, runtime.Logger)

	analyzerSys := analyzer.New(db, recordSys, auditSys, runtime.Logger)

	webhook := notify.NewWebhookAdapter(0)
	notifySys := notify.NewRouter(
		notify.NewStore(db),
		notify.AdapterRegistry{
			notify.ChannelEmail:    webhook,
			notify.ChannelChat:     webhook,
			notify.ChannelSMS:      webhook,
			notify.ChannelInternal: notify.NewLogAdapter(runtime.Logger),
		},
		auditSys,
		cfg.Notify.Options(),
		runtime.Logger,
	)

	trackerSys := tracker.New(
		tracker.NewStore(db),
		notifySys,
		analyzerSys,
		recordSys,
		auditSys,
		cfg.Workflow.SLADays,
		runtime.Logger,
	)

	portalClient := portal.NewHTTPClient(
		cfg.Portal.BaseURL,
		cfg.Portal.Token,
		cfg.Portal.TimeoutDuration(),
	)

	monitorSys := monitor.New(
		portalClient,
		sheetSys,
		normalizerSys,
		analyzerSys,
		notifySys,
		trackerSys,
		auditSys,
		monitor.Options{
			Payers:       cfg.Portal.Payers,
			CycleTimeout: cfg.Portal.CycleTimeoutDuration(),
			WindowDays:   cfg.Portal.WindowDays,
		},
		runtime.Logger,
	)

	return &Domain{
		Audit:      auditSys,
		Sheets:     sheetSys,
		Records:    recordSys,
		Normalizer: normalizerSys,
		Analyzer:   analyzerSys,
		Notify:     notifySys,
		Tracker:    trackerSys,
		Monitor:    monitorSys,
	}
}
