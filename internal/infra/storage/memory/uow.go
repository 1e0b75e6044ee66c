package memory

import (
	"context"
	"errors"

	"boxstand/internal/app/uow"
	domainbooking "boxstand/internal/domain/booking"
	domainboxes "boxstand/internal/domain/boxes"
	domainpayments "boxstand/internal/domain/payments"
)

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	BookingRepo domainbooking.Repository
	PaymentRepo domainpayments.Repository
	BoxRepo     domainboxes.Repository
}

// NewFactory builds a factory over fresh in-memory stores.
func NewFactory() Factory {
	return Factory{
		BookingRepo: NewBookingRepository(),
		PaymentRepo: NewPaymentRepository(),
		BoxRepo:     NewBoxRepository(),
	}
}

// Begin starts a lightweight transaction boundary. No isolation is provided
// but the abstraction matches the application ports.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.BookingRepo == nil || f.PaymentRepo == nil || f.BoxRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{bookings: f.BookingRepo, payments: f.PaymentRepo, boxes: f.BoxRepo}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	bookings domainbooking.Repository
	payments domainpayments.Repository
	boxes    domainboxes.Repository
}

func (u *Unit) Bookings() domainbooking.Repository  { return u.bookings }
func (u *Unit) Payments() domainpayments.Repository { return u.payments }
func (u *Unit) Boxes() domainboxes.Repository       { return u.boxes }

func (u *Unit) Commit(ctx context.Context) error   { return nil }
func (u *Unit) Rollback(ctx context.Context) error { return nil }
