package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/finchhealth/denialwatch/internal/analyzer"
	"github.com/finchhealth/denialwatch/internal/audit"
)

// Options controls retry, pacing, and routing for the router.
type Options struct {
	// MaxAttempts bounds delivery attempts per notification.
	MaxAttempts int
	// BackoffBase is the delay before the second attempt; each further
	// attempt doubles it up to BackoffMax.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// RatePerSecond throttles sends across all channels and branches to
	// stay under provider limits. Zero disables throttling.
	RatePerSecond float64
	// Routes maps a branch id to its configured delivery targets.
	Routes map[string][]Route
	// DefaultRoutes serves branches with no explicit configuration.
	DefaultRoutes []Route
}

func (o *Options) normalize() {
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 30 * time.Second
	}
}

// Router implements System over a store, a set of channel adapters, and the
// audit ledger.
type Router struct {
	store    store
	adapters AdapterRegistry
	audit    audit.System
	limiter  *rate.Limiter
	opts     Options
	logger   *slog.Logger
}

// NewRouter creates a notification router. Channels without a registered
// adapter fail delivery immediately rather than panicking at send time.
func NewRouter(
	st store,
	adapters AdapterRegistry,
	auditSys audit.System,
	opts Options,
	logger *slog.Logger,
) *Router {
	opts.normalize()

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}

	return &Router{
		store:    st,
		adapters: adapters,
		audit:    auditSys,
		limiter:  limiter,
		opts:     opts,
		logger:   logger.With("system", "notify"),
	}
}

func (r *Router) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *Router) Dispatch(ctx context.Context, a *analyzer.Analysis) ([]Notification, error) {
	if a == nil {
		return nil, ErrInvalidInput
	}

	targets := r.opts.Routes[a.BranchID]
	if len(targets) == 0 {
		targets = r.opts.DefaultRoutes
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, a.BranchID)
	}

	payload := buildPayload(a)

	out := make([]Notification, 0, len(targets))
	for _, target := range targets {
		if !ValidChannel(target.Channel) {
			return nil, fmt.Errorf("%w: channel %q", ErrInvalidInput, target.Channel)
		}

		n, created, err := r.store.create(ctx, Notification{
			ID:         uuid.New(),
			AnalysisID: a.ID,
			BranchID:   a.BranchID,
			Channel:    target.Channel,
			Address:    target.Address,
			Status:     StatusQueued,
		})
		if err != nil {
			return nil, fmt.Errorf("queue notification: %w", err)
		}
		if !created {
			// already dispatched for this (analysis, channel); never resent
			out = append(out, n)
			continue
		}

		if err := r.audit.Record(ctx,
			audit.EntityNotification, n.ID.String(),
			"", StatusQueued,
			audit.ActorRouter,
			string(target.Channel),
		); err != nil {
			return nil, err
		}

		n, err = r.deliver(ctx, n, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}

	return out, nil
}

// deliver drives one notification through its attempt budget. The returned
// error is reserved for infrastructure faults (store, audit, cancelled
// context); channel outcomes land on the notification row.
func (r *Router) deliver(ctx context.Context, n Notification, payload Payload) (Notification, error) {
	adapter, ok := r.adapters[n.Channel]
	if !ok {
		return r.exhaust(ctx, n, n.AttemptCount, "no adapter registered")
	}

	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return n, err
		}

		err := adapter.Send(ctx, n.Channel, n.Address, payload)
		if err == nil {
			sent, serr := r.store.recordAttempt(ctx, n.ID, StatusSent, attempt, "")
			if serr != nil {
				return n, fmt.Errorf("record delivery: %w", serr)
			}
			if aerr := r.audit.Record(ctx,
				audit.EntityNotification, n.ID.String(),
				StatusQueued, StatusSent,
				audit.ActorRouter,
				fmt.Sprintf("attempt %d", attempt),
			); aerr != nil {
				return sent, aerr
			}
			r.logger.Info("notification sent", "id", n.ID, "channel", n.Channel, "attempt", attempt)
			return sent, nil
		}

		if errors.Is(err, ErrChannelRejected) {
			return r.exhaust(ctx, n, attempt, err.Error())
		}

		r.logger.Warn("delivery attempt failed",
			"id", n.ID, "channel", n.Channel, "attempt", attempt, "error", err)

		if attempt == r.opts.MaxAttempts {
			return r.exhaust(ctx, n, attempt, err.Error())
		}

		if _, serr := r.store.recordAttempt(ctx, n.ID, StatusQueued, attempt, err.Error()); serr != nil {
			return n, fmt.Errorf("record attempt: %w", serr)
		}

		if werr := sleepContext(ctx, r.backoff(attempt)); werr != nil {
			return n, werr
		}
	}

	return n, nil
}

// exhaust marks the notification failed and writes the escalation audit
// entry. The notification is never resubmitted automatically after this.
func (r *Router) exhaust(ctx context.Context, n Notification, attempts int, lastError string) (Notification, error) {
	failed, err := r.store.recordAttempt(ctx, n.ID, StatusFailed, attempts, lastError)
	if err != nil {
		return n, fmt.Errorf("record failure: %w", err)
	}

	if err := r.audit.Record(ctx,
		audit.EntityNotification, n.ID.String(),
		StatusQueued, StatusFailed,
		audit.ActorRouter,
		fmt.Sprintf("escalation: delivery exhausted after %d attempts: %s", attempts, lastError),
	); err != nil {
		return failed, err
	}

	r.logger.Error("notification delivery exhausted",
		"id", n.ID, "channel", n.Channel, "attempts", attempts, "error", lastError)
	return failed, nil
}

func (r *Router) backoff(attempt int) time.Duration {
	d := r.opts.BackoffBase << (attempt - 1)
	if d > r.opts.BackoffMax {
		d = r.opts.BackoffMax
	}
	return d
}

func (r *Router) Find(ctx context.Context, id uuid.UUID) (*Notification, error) {
	n, err := r.store.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *Router) ForAnalysis(ctx context.Context, analysisID uuid.UUID) ([]Notification, error) {
	return r.store.forAnalysis(ctx, analysisID)
}

func buildPayload(a *analyzer.Analysis) Payload {
	summary := fmt.Sprintf("%d rejections, %s at risk", a.RecordCount, a.TotalAtRisk.StringFixed(2))
	if len(a.Clusters) > 0 {
		top := a.Clusters[0]
		summary = fmt.Sprintf("%s; top reason %s (%d records, %s)",
			summary, top.ReasonCode, top.Count, top.AmountAtRisk.StringFixed(2))
	}

	return Payload{
		AnalysisID:  a.ID,
		BranchID:    a.BranchID,
		PayerID:     a.PayerID,
		WindowStart: a.WindowStart,
		WindowEnd:   a.WindowEnd,
		RecordCount: a.RecordCount,
		TotalAtRisk: a.TotalAtRisk.StringFixed(2),
		Summary:     summary,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
