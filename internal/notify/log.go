package notify

import (
	"context"
	"log/slog"

	"iinfinder/internal/autosearch"
	"iinfinder/internal/platform/metrics"
	"iinfinder/pkg/requestcontext"
)

// LogNotifier writes matches to the structured log. Used when no delivery
// channel is configured.
type LogNotifier struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewLogNotifier(logger *slog.Logger, m *metrics.Metrics) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger, metrics: m}
}

func (n *LogNotifier) Notify(ctx context.Context, match autosearch.Match) error {
	msg := NewMessage(match, requestcontext.Now(ctx))
	ids := make([]string, 0, len(msg.Found))
	for _, f := range msg.Found {
		ids = append(ids, f.IIN)
	}
	n.logger.InfoContext(ctx, "auto-search match",
		"task_id", msg.TaskID,
		"owner_id", msg.OwnerID,
		"found", ids,
	)
	n.metrics.RecordNotification(DriverLog, "sent")
	return nil
}

func (n *LogNotifier) Close() error { return nil }
