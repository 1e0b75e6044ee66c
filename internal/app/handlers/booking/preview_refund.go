package booking

import (
	"context"
	"time"

	"boxstand/internal/app/uow"
	domainbooking "boxstand/internal/domain/booking"
	"boxstand/internal/domain/shared/money"
)

type PreviewRefundQuery struct {
	BookingID        string
	RequestingUserID string
}

type PreviewRefundResult struct {
	Eligible       bool        `json:"eligible"`
	Amount         money.Money `json:"amount"`
	Percentage     int         `json:"percentage"`
	TransactionFee money.Money `json:"transaction_fee"`
	Reason         string      `json:"reason"`
}

// PreviewRefundHandler exposes the refund calculation with no side effects,
// so the UI can show the customer what a cancellation would pay back.
type PreviewRefundHandler struct {
	UoWFactory uow.UoWFactory
	Policy     domainbooking.RefundPolicy
	Clock      func() time.Time
}

func (h *PreviewRefundHandler) Handle(ctx context.Context, q PreviewRefundQuery) (*PreviewRefundResult, error) {
	if h.UoWFactory == nil {
		return nil, ErrUnitOfWorkRequired
	}
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	ctx = uow.ContextWithUnitOfWork(ctx, unit)
	defer func() { _ = unit.Rollback(ctx) }()

	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return nil, err
	}
	pay, err := unit.Payments().ByBookingID(ctx, q.BookingID)
	if err != nil {
		return nil, err
	}
	if err := pay.Authorize(q.RequestingUserID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if h.Clock != nil {
		now = h.Clock()
	}
	calc := h.Policy.Calculate(b, now)
	return &PreviewRefundResult{
		Eligible:       calc.Eligible,
		Amount:         calc.Amount,
		Percentage:     calc.Percentage,
		TransactionFee: calc.TransactionFee,
		Reason:         calc.Reason,
	}, nil
}
