package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"boxstand/internal/app/policies"
	"boxstand/internal/app/uow"
	"boxstand/internal/domain/availability"
	domainbooking "boxstand/internal/domain/booking"
	domainboxes "boxstand/internal/domain/boxes"
	domainpayments "boxstand/internal/domain/payments"
	"boxstand/internal/domain/shared/daterange"
	"boxstand/internal/domain/shared/money"
)

var (
	ErrBoxUnavailable = errors.New("booking: box is not available for the requested range")
	ErrBoxInactive    = errors.New("booking: box is not active")
)

type CreateBookingCommand struct {
	BookingID  string
	BoxID      string
	StandID    string
	CustomerID string
	Start      time.Time
	End        time.Time
	Total      money.Money
	// ChargeRef references the charge made upstream; this service never
	// initiates one. Empty means payment is still pending.
	ChargeRef string
}

type CreateBookingResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type CreateBookingHandler struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.Notifier
	Logger     *slog.Logger
	Clock      func() time.Time
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
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

	dr, err := daterange.New(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}

	box, err := unit.Boxes().ByID(ctx, domainboxes.BoxID(cmd.BoxID))
	if err != nil {
		return nil, err
	}
	if !box.Active {
		return nil, ErrBoxInactive
	}

	engine := availability.Engine{Bookings: unit.Bookings()}
	free, err := engine.IsAvailable(ctx, box.ID, dr.Start, dr.End)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, ErrBoxUnavailable
	}

	now := h.now()
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         domainbooking.BookingID(cmd.BookingID),
		BoxID:      box.ID,
		StandID:    cmd.StandID,
		CustomerID: cmd.CustomerID,
		Range:      dr,
		Total:      cmd.Total,
		ChargeRef:  cmd.ChargeRef,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}

	pay := &domainpayments.Payment{
		BookingID: string(b.ID),
		UserID:    cmd.CustomerID,
		ChargeRef: cmd.ChargeRef,
		Amount:    cmd.Total,
		Status:    domainpayments.StatusPaid,
		CreatedAt: now,
		UpdatedAt: now,
	}

	box.AccrueHours(b.ScheduledHours())

	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := unit.Payments().Save(ctx, pay); err != nil {
		return nil, err
	}
	if err := unit.Boxes().Save(ctx, box); err != nil {
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
				h.logger().Warn("booking notification failed", "booking_id", b.ID, "event", ev.EventName(), "error", err)
			}
		}
		b.ClearEvents()
	}

	return &CreateBookingResult{BookingID: string(b.ID), Status: string(b.Status)}, nil
}

func (h *CreateBookingHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *CreateBookingHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now().UTC()
}
