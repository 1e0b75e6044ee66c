package booking

import (
	"context"
	"log/slog"
	"time"

	"boxstand/internal/app/policies"
	"boxstand/internal/app/uow"
	domainbooking "boxstand/internal/domain/booking"
)

type ReturnBoxCommand struct {
	BookingID  string
	ReturnedAt time.Time
}

type ReturnBoxResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

// ReturnBoxHandler confirms the physical box came back and completes the
// booking even when the rental window is still open.
type ReturnBoxHandler struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.Notifier
	Logger     *slog.Logger
}

func (h *ReturnBoxHandler) Handle(ctx context.Context, cmd ReturnBoxCommand) (*ReturnBoxResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	at := cmd.ReturnedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if err := b.MarkReturned(at); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	if h.Notifier != nil {
		for _, ev := range b.PendingEvents() {
			if err := h.Notifier.Notify(context.WithoutCancel(ctx), ev); err != nil {
				h.logger().Warn("return notification failed", "booking_id", b.ID, "event", ev.EventName(), "error", err)
			}
		}
		b.ClearEvents()
	}

	return &ReturnBoxResult{BookingID: string(b.ID), Status: string(b.Status)}, nil
}

func (h *ReturnBoxHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
