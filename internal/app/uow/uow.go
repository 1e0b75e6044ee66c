package uow

import (
	"context"

	domainbooking "boxstand/internal/domain/booking"
	domainboxes "boxstand/internal/domain/boxes"
	domainpayments "boxstand/internal/domain/payments"
)

// UnitOfWork coordinates repositories inside one transaction boundary. A
// cancellation reads booking+payment and writes status, payment state and
// the box utilization score through a single unit.
type UnitOfWork interface {
	Bookings() domainbooking.Repository
	Payments() domainpayments.Repository
	Boxes() domainboxes.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
