package payments

import (
	"context"
	"errors"
	"time"

	"boxstand/internal/domain/shared/money"
)

var (
	ErrPaymentNotFound = errors.New("payments: not found")
	ErrNotOwner        = errors.New("payments: booking does not belong to caller")
)

type PaymentStatus string

const (
	StatusPaid     PaymentStatus = "PAID"
	StatusRefunded PaymentStatus = "REFUNDED"
)

// Payment is the local record of the charge backing a booking (1:1). The
// processor ledger, not this row, is authoritative for amounts already
// moved; Amount here is the price quoted at reservation time.
type Payment struct {
	BookingID string
	UserID    string
	ChargeRef string
	Amount    money.Money
	Status    PaymentStatus
	RefundID  string
	Refunded  money.Money
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

type Repository interface {
	ByBookingID(ctx context.Context, bookingID string) (*Payment, error)
	Save(ctx context.Context, payment *Payment) error
}

// Authorize fails closed unless the caller owns the payment.
func (p *Payment) Authorize(userID string) error {
	if p.UserID == "" || p.UserID != userID {
		return ErrNotOwner
	}
	return nil
}

// MarkRefunded moves the payment to its terminal state. A cancellation that
// issued no new refund still lands here: cancelled-without-refund is a
// terminal payment state, not an error.
func (p *Payment) MarkRefunded(refunded money.Money, refundID string, now time.Time) {
	p.Status = StatusRefunded
	p.Refunded = refunded
	p.RefundID = refundID
	p.UpdatedAt = now.UTC()
}

// ChargeState is the processor's ground truth for one charge.
type ChargeState struct {
	Amount         money.Money
	AmountRefunded money.Money
}

// Available is the balance still refundable on the charge.
func (s ChargeState) Available() money.Money {
	avail, err := s.Amount.Sub(s.AmountRefunded)
	if err != nil {
		return money.Money{Currency: s.Amount.Currency}
	}
	return avail.ClampNonNegative()
}
