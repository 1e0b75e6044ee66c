package policies

import (
	"context"

	"boxstand/internal/domain/shared/events"
)

// Notifier dispatches booking lifecycle events to customers and operators.
// Delivery is fire-and-forget: callers log failures and move on.
type Notifier interface {
	Notify(ctx context.Context, event events.DomainEvent) error
}
