package notify

import (
	"context"
	"log/slog"

	"boxstand/internal/domain/shared/events"
)

// LogNotifier is the broker-less fallback for dev mode: events land in the
// log instead of Kafka.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, ev events.DomainEvent) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification", "event", ev.EventName(), "aggregate", ev.AggregateID(), "occurred_at", ev.OccurredAt())
	return nil
}
