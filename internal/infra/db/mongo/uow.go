package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"boxstand/internal/app/uow"
	domainbooking "boxstand/internal/domain/booking"
	domainboxes "boxstand/internal/domain/boxes"
	domainpayments "boxstand/internal/domain/payments"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory wires Mongo sessions into the generic UnitOfWork interface. One
// cancellation attempt runs inside one session transaction.
type Factory struct {
	DB *mongo.Database

	BookingRepo domainbooking.Repository
	PaymentRepo domainpayments.Repository
	BoxRepo     domainboxes.Repository
}

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		session:  session,
		bookings: f.BookingRepo,
		payments: f.PaymentRepo,
		boxes:    f.BoxRepo,
	}, nil
}

type Unit struct {
	session  mongo.Session
	bookings domainbooking.Repository
	payments domainpayments.Repository
	boxes    domainboxes.Repository
}

func (u *Unit) Bookings() domainbooking.Repository  { return u.bookings }
func (u *Unit) Payments() domainpayments.Repository { return u.payments }
func (u *Unit) Boxes() domainboxes.Repository       { return u.boxes }

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures the Mongo session is available in context for
// downstream repositories.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
