package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainpayments "boxstand/internal/domain/payments"
	"boxstand/internal/domain/shared/money"
)

type PaymentRepository struct {
	col *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	return &PaymentRepository{col: db.Collection("payments")}
}

func (r *PaymentRepository) ByBookingID(ctx context.Context, bookingID string) (*domainpayments.Payment, error) {
	var doc paymentDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": bookingID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainpayments.ErrPaymentNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PaymentRepository) Save(ctx context.Context, p *domainpayments.Payment) error {
	doc := newPaymentDocument(p)
	filter := bson.M{"_id": doc.ID, "version": p.Version}
	doc.Version = p.Version + 1
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	p.Version = doc.Version
	return nil
}

type paymentDocument struct {
	ID               string `bson:"_id"` // booking id, payments are 1:1
	UserID           string `bson:"user_id"`
	ChargeRef        string `bson:"charge_ref"`
	Amount           int64  `bson:"amount"`
	Currency         string `bson:"currency"`
	Status           string `bson:"status"`
	RefundID         string `bson:"refund_id,omitempty"`
	RefundedAmount   int64  `bson:"refunded_amount"`
	RefundedCurrency string `bson:"refunded_currency,omitempty"`
	CreatedAt        int64  `bson:"created_at"`
	UpdatedAt        int64  `bson:"updated_at"`
	Version          int64  `bson:"version"`
}

func newPaymentDocument(p *domainpayments.Payment) paymentDocument {
	return paymentDocument{
		ID:               p.BookingID,
		UserID:           p.UserID,
		ChargeRef:        p.ChargeRef,
		Amount:           p.Amount.Amount,
		Currency:         p.Amount.Currency,
		Status:           string(p.Status),
		RefundID:         p.RefundID,
		RefundedAmount:   p.Refunded.Amount,
		RefundedCurrency: p.Refunded.Currency,
		CreatedAt:        p.CreatedAt.UnixMilli(),
		UpdatedAt:        p.UpdatedAt.UnixMilli(),
		Version:          p.Version,
	}
}

func (d paymentDocument) toAggregate() *domainpayments.Payment {
	return &domainpayments.Payment{
		BookingID: d.ID,
		UserID:    d.UserID,
		ChargeRef: d.ChargeRef,
		Amount:    money.Money{Amount: d.Amount, Currency: d.Currency},
		Status:    domainpayments.PaymentStatus(d.Status),
		RefundID:  d.RefundID,
		Refunded:  money.Money{Amount: d.RefundedAmount, Currency: d.RefundedCurrency},
		CreatedAt: time.UnixMilli(d.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(d.UpdatedAt).UTC(),
		Version:   d.Version,
	}
}
