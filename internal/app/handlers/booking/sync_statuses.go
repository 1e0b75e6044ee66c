package booking

import (
	"context"
	"log/slog"
	"time"

	"boxstand/internal/app/uow"
	domainbooking "boxstand/internal/domain/booking"
)

type SyncStatusesResult struct {
	Examined int   `json:"examined"`
	Drifted  int   `json:"drifted"`
	Applied  int64 `json:"applied"`
}

// SyncStatusesHandler is the maintenance entry point that persists status
// drift: it recomputes status for every non-terminal booking and applies
// only the diffs through conditional writes. Safe to run concurrently from
// multiple schedulers; identical recomputation is a no-op.
type SyncStatusesHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
	Clock      func() time.Time
}

func (h *SyncStatusesHandler) Handle(ctx context.Context) (*SyncStatusesResult, error) {
	if h.UoWFactory == nil {
		return nil, ErrUnitOfWorkRequired
	}
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	ctx = uow.ContextWithUnitOfWork(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	bookings, err := unit.Bookings().ListNonTerminal(ctx)
	if err != nil {
		return nil, err
	}
	now := h.now()
	for _, b := range bookings {
		if err := b.Range.Validate(); err != nil {
			h.logger().Warn("booking has invalid dates, status falls back to upcoming", "booking_id", b.ID, "error", err)
		}
	}
	changes := domainbooking.DiffStatuses(bookings, now)
	applied, err := unit.Bookings().ApplyStatusChanges(ctx, changes)
	if err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	if len(changes) > 0 {
		h.logger().Info("booking statuses synchronized", "examined", len(bookings), "drifted", len(changes), "applied", applied)
	}
	return &SyncStatusesResult{Examined: len(bookings), Drifted: len(changes), Applied: applied}, nil
}

func (h *SyncStatusesHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *SyncStatusesHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now().UTC()
}
