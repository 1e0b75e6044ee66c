package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "boxstand/internal/domain/booking"
	domainboxes "boxstand/internal/domain/boxes"
	"boxstand/internal/domain/shared/daterange"
	"boxstand/internal/domain/shared/money"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection("bookings")}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save writes the aggregate with an optimistic version filter. Two racing
// cancellations of one booking serialize here: the loser sees
// ErrConcurrentUpdate, reloads and exits through the already-cancelled path.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
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
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) BlockingByBox(ctx context.Context, boxID domainboxes.BoxID) ([]*domainbooking.Booking, error) {
	filter := bson.M{"box_id": string(boxID), "status": bson.M{"$in": blockingStatuses()}}
	return r.find(ctx, filter)
}

func (r *BookingRepository) ListNonTerminal(ctx context.Context) ([]*domainbooking.Booking, error) {
	filter := bson.M{"status": bson.M{"$nin": []string{
		string(domainbooking.StatusCompleted),
		string(domainbooking.StatusCancelled),
	}}}
	return r.find(ctx, filter)
}

// ApplyStatusChanges persists drift as one bulk of conditional updates:
// each write matches only while the stored status still differs, so
// concurrent synchronizers collapse to a no-op instead of conflicting.
func (r *BookingRepository) ApplyStatusChanges(ctx context.Context, changes []domainbooking.StatusChange) (int64, error) {
	if len(changes) == 0 {
		return 0, nil
	}
	models := make([]mongo.WriteModel, 0, len(changes))
	now := time.Now().UTC().UnixMilli()
	for _, ch := range changes {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": string(ch.BookingID), "status": bson.M{"$ne": string(ch.To)}}).
			SetUpdate(bson.M{
				"$set": bson.M{"status": string(ch.To), "updated_at": now},
				"$inc": bson.M{"version": 1},
			}))
	}
	res, err := r.col.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func blockingStatuses() []string {
	return []string{
		string(domainbooking.StatusPending),
		string(domainbooking.StatusUpcoming),
		string(domainbooking.StatusActive),
		string(domainbooking.StatusOverdue),
	}
}

type bookingDocument struct {
	ID             string `bson:"_id"`
	BoxID          string `bson:"box_id"`
	StandID        string `bson:"stand_id"`
	CustomerID     string `bson:"customer_id"`
	Start          int64  `bson:"start"`
	End            int64  `bson:"end"`
	Status         string `bson:"status"`
	ReturnedAt     *int64 `bson:"returned_at,omitempty"`
	TotalAmount    int64  `bson:"total_amount"`
	TotalCurrency  string `bson:"total_currency"`
	ExtensionCount int    `bson:"extension_count"`
	CreatedAt      int64  `bson:"created_at"`
	UpdatedAt      int64  `bson:"updated_at"`
	Version        int64  `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
		ID:             string(b.ID),
		BoxID:          string(b.BoxID),
		StandID:        b.StandID,
		CustomerID:     b.CustomerID,
		Start:          b.Range.Start.UnixMilli(),
		End:            b.Range.End.UnixMilli(),
		Status:         string(b.Status),
		TotalAmount:    b.Total.Amount,
		TotalCurrency:  b.Total.Currency,
		ExtensionCount: b.ExtensionCount,
		CreatedAt:      b.CreatedAt.UnixMilli(),
		UpdatedAt:      b.UpdatedAt.UnixMilli(),
		Version:        b.Version,
	}
	if b.ReturnedAt != nil {
		ms := b.ReturnedAt.UnixMilli()
		doc.ReturnedAt = &ms
	}
	return doc
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	b := &domainbooking.Booking{
		ID:             domainbooking.BookingID(d.ID),
		BoxID:          domainboxes.BoxID(d.BoxID),
		StandID:        d.StandID,
		CustomerID:     d.CustomerID,
		Range:          daterange.DateRange{Start: timestampToTime(d.Start), End: timestampToTime(d.End)},
		Status:         domainbooking.BookingStatus(d.Status),
		Total:          money.Money{Amount: d.TotalAmount, Currency: d.TotalCurrency},
		ExtensionCount: d.ExtensionCount,
		CreatedAt:      timestampToTime(d.CreatedAt),
		UpdatedAt:      timestampToTime(d.UpdatedAt),
		Version:        d.Version,
	}
	if d.ReturnedAt != nil {
		ret := timestampToTime(*d.ReturnedAt)
		b.ReturnedAt = &ret
	}
	return b
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
