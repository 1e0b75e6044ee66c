package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"boxstand/internal/app/policies"
	"boxstand/internal/app/uow"
	domainbooking "boxstand/internal/domain/booking"
	domainpayments "boxstand/internal/domain/payments"
	"boxstand/internal/domain/shared/money"
)

var ErrUnitOfWorkRequired = errors.New("booking: unit of work required")

// CriticalInconsistencyError reports the one failure mode that must never be
// retried silently: the processor refunded real money but the local commit
// did not converge. It carries the external refund id for manual
// reconciliation.
type CriticalInconsistencyError struct {
	BookingID string
	RefundID  string
	Err       error
}

func (e *CriticalInconsistencyError) Error() string {
	return fmt.Sprintf("booking %s: refund %s issued but local state did not commit: %v", e.BookingID, e.RefundID, e.Err)
}

func (e *CriticalInconsistencyError) Unwrap() error { return e.Err }

type CancelBookingCommand struct {
	BookingID        string
	RequestingUserID string
}

type CancelBookingResult struct {
	Cancelled        bool        `json:"cancelled"`
	AlreadyCancelled bool        `json:"already_cancelled"`
	// Reconciled marks a cancellation that found the charge already
	// refunded out of band and therefore issued nothing new.
	Reconciled bool        `json:"reconciled,omitempty"`
	Refund     money.Money `json:"refund"`
	Percentage int         `json:"percentage"`
	RefundID   string      `json:"refund_id,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

// CancelBookingHandler runs a single cancellation attempt: authorize,
// compute the tiered refund, reconcile it against the processor ledger,
// issue the refund, then atomically flip booking, payment and box score.
// The refund round-trip happens before the local commit because the
// processor owns real money movement; local state follows it, never
// precedes it.
type CancelBookingHandler struct {
	UoWFactory    uow.UoWFactory
	Ledger        policies.LedgerPort
	Notifier      policies.Notifier
	Policy        domainbooking.RefundPolicy
	Logger        *slog.Logger
	LedgerTimeout time.Duration
	Clock         func() time.Time
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*CancelBookingResult, error) {
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

	now := h.now()

	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	pay, err := unit.Payments().ByBookingID(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if err := pay.Authorize(cmd.RequestingUserID); err != nil {
		return nil, err
	}

	if b.Status == domainbooking.StatusCancelled {
		// Retried cancellation: deterministic no-op, never a second refund.
		return &CancelBookingResult{
			AlreadyCancelled: true,
			Refund:           pay.Refunded,
			RefundID:         pay.RefundID,
			Reason:           "booking already cancelled",
		}, nil
	}

	calc := h.Policy.Calculate(b, now)
	if !calc.Eligible {
		return &CancelBookingResult{Reason: calc.Reason}, nil
	}

	refund := calc.Amount
	refundID := ""
	reconciled := false
	if refund.IsPositive() {
		refund, reconciled, err = h.reconcileRefund(ctx, b, pay, calc)
		if err != nil {
			return nil, err
		}
	}
	if refund.IsPositive() {
		refundID, err = h.issueRefund(ctx, pay.ChargeRef, refund, calc, cmd.BookingID)
		if err != nil {
			return nil, err
		}
	}

	if err := b.Cancel(now); err != nil {
		return nil, h.maybeCritical(cmd.BookingID, refundID, err)
	}
	b.Record(domainbooking.BookingCancelled{
		BookingID:  b.ID,
		BoxID:      b.BoxID,
		CustomerID: b.CustomerID,
		Refund:     refund,
		Percentage: calc.Percentage,
		RefundID:   refundID,
		Reason:     calc.Reason,
		At:         now.UTC(),
	})
	pay.MarkRefunded(refund, refundID, now)

	box, err := unit.Boxes().ByID(ctx, b.BoxID)
	if err != nil {
		return nil, h.maybeCritical(cmd.BookingID, refundID, err)
	}
	box.ReleaseHours(b.ScheduledHours())

	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, h.maybeCritical(cmd.BookingID, refundID, err)
	}
	if err := unit.Payments().Save(ctx, pay); err != nil {
		return nil, h.maybeCritical(cmd.BookingID, refundID, err)
	}
	if err := unit.Boxes().Save(ctx, box); err != nil {
		return nil, h.maybeCritical(cmd.BookingID, refundID, err)
	}
	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, h.maybeCritical(cmd.BookingID, refundID, err)
		}
		committed = true
	}

	h.notify(b)

	return &CancelBookingResult{
		Cancelled:  true,
		Reconciled: reconciled,
		Refund:     refund,
		Percentage: calc.Percentage,
		RefundID:   refundID,
		Reason:     calc.Reason,
	}, nil
}

// reconcileRefund clamps the proposed refund to the processor's available
// balance. An exhausted balance means an out-of-band refund already
// happened: the cancellation proceeds with no new refund.
func (h *CancelBookingHandler) reconcileRefund(ctx context.Context, b *domainbooking.Booking, pay *domainpayments.Payment, calc domainbooking.RefundCalculation) (money.Money, bool, error) {
	lctx, cancel := context.WithTimeout(ctx, h.ledgerTimeout())
	defer cancel()
	state, err := h.Ledger.ChargeState(lctx, pay.ChargeRef)
	if err != nil {
		return money.Money{}, false, fmt.Errorf("booking %s: charge state lookup failed: %w", b.ID, err)
	}
	available := state.Available()
	if !available.IsPositive() {
		h.logger().Warn("charge already fully refunded out of band, cancelling without new refund",
			"booking_id", b.ID, "charge_ref", pay.ChargeRef,
			"charged", state.Amount.Amount, "refunded", state.AmountRefunded.Amount)
		return money.Money{Currency: calc.Amount.Currency}, true, nil
	}
	refund, err := calc.Amount.Min(available)
	if err != nil {
		return money.Money{}, false, fmt.Errorf("booking %s: ledger currency mismatch: %w", b.ID, err)
	}
	if refund.Amount < calc.Amount.Amount {
		h.logger().Warn("refund clamped to processor balance",
			"booking_id", b.ID, "proposed", calc.Amount.Amount, "available", available.Amount)
	}
	return refund, false, nil
}

func (h *CancelBookingHandler) issueRefund(ctx context.Context, chargeRef string, refund money.Money, calc domainbooking.RefundCalculation, bookingID string) (string, error) {
	lctx, cancel := context.WithTimeout(ctx, h.ledgerTimeout())
	defer cancel()
	refundID, err := h.Ledger.IssueRefund(lctx, chargeRef, refund, policies.RefundMetadata{
		BookingID:      bookingID,
		Percentage:     calc.Percentage,
		ProposedAmount: calc.Amount,
		IssuedAmount:   refund,
	})
	if err != nil {
		// Money-moving calls are never guessed as "probably succeeded";
		// the caller retries with the same idempotency metadata.
		return "", fmt.Errorf("booking %s: refund issuance failed: %w", bookingID, err)
	}
	return refundID, nil
}

// maybeCritical upgrades a local failure to a loud inconsistency error when
// external money already moved.
func (h *CancelBookingHandler) maybeCritical(bookingID, refundID string, err error) error {
	if refundID == "" {
		return err
	}
	critical := &CriticalInconsistencyError{BookingID: bookingID, RefundID: refundID, Err: err}
	h.logger().Error("refund issued but local state failed to converge",
		"booking_id", bookingID, "refund_id", refundID, "error", err)
	return critical
}

func (h *CancelBookingHandler) notify(b *domainbooking.Booking) {
	if h.Notifier == nil {
		return
	}
	for _, ev := range b.PendingEvents() {
		// Best effort: notification failures never unwind a cancellation.
		nctx, cancel := context.WithTimeout(context.Background(), h.ledgerTimeout())
		if err := h.Notifier.Notify(nctx, ev); err != nil {
			h.logger().Warn("cancellation notification failed", "booking_id", b.ID, "event", ev.EventName(), "error", err)
		}
		cancel()
	}
	b.ClearEvents()
}

func (h *CancelBookingHandler) ledgerTimeout() time.Duration {
	if h.LedgerTimeout > 0 {
		return h.LedgerTimeout
	}
	return 10 * time.Second
}

func (h *CancelBookingHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *CancelBookingHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now().UTC()
}
