package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"boxstand/internal/domain/shared/events"
)

// Publisher is the broker side of the notifier; the Kafka producer
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// KafkaNotifier publishes booking lifecycle events for the customer- and
// operator-facing notification services. Delivery is best effort: callers
// log failures, nothing rolls back.
type KafkaNotifier struct {
	Producer    Publisher
	TopicPrefix string
	Source      string
	Logger      *slog.Logger
}

func (n KafkaNotifier) Notify(ctx context.Context, ev events.DomainEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	envelope := map[string]any{
		"id":          uuid.NewString(),
		"type":        ev.EventName() + ".v1",
		"source":      n.source(),
		"time":        ev.OccurredAt().Format(time.RFC3339),
		"aggregate":   ev.AggregateID(),
		"data":        json.RawMessage(data),
		"contenttype": "application/json",
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	topic := n.TopicPrefix + ev.EventName()
	return n.Producer.Publish(ctx, topic, ev.AggregateID(), payload, map[string]string{
		"content-type": "application/json",
	})
}

func (n KafkaNotifier) source() string {
	if n.Source != "" {
		return n.Source
	}
	return "boxstand"
}
