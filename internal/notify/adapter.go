package notify

import (
	"context"
	"log/slog"
)

// Adapter delivers a payload over one channel. Implementations live outside
// the core: SMTP relays, chat webhooks, SMS gateways. Send returns
// ErrChannelRejected when the provider refused the message outright and
// ErrChannelTimeout when the attempt may succeed on retry.
type Adapter interface {
	Send(ctx context.Context, channel Channel, address string, payload Payload) error
}

// AdapterRegistry resolves the adapter for each configured channel.
type AdapterRegistry map[Channel]Adapter

// LogAdapter writes payloads to the structured log instead of an external
// provider. It backs the internal channel and development configurations.
type LogAdapter struct {
	logger *slog.Logger
}

func NewLogAdapter(logger *slog.Logger) *LogAdapter {
	return &LogAdapter{logger: logger.With("system", "notify.log-adapter")}
}

func (a *LogAdapter) Send(_ context.Context, channel Channel, address string, payload Payload) error {
	a.logger.Info("notification delivered",
		"channel", channel,
		"address", address,
		"analysis", payload.AnalysisID,
		"branch", payload.BranchID,
		"records", payload.RecordCount,
		"at_risk", payload.TotalAtRisk,
	)
	return nil
}
