package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainboxes "boxstand/internal/domain/boxes"
)

type BoxRepository struct {
	col *mongo.Collection
}

func NewBoxRepository(db *mongo.Database) *BoxRepository {
	return &BoxRepository{col: db.Collection("boxes")}
}

func (r *BoxRepository) ByID(ctx context.Context, id domainboxes.BoxID) (*domainboxes.Box, error) {
	var doc boxDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainboxes.ErrBoxNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BoxRepository) ListByStand(ctx context.Context, standID string) ([]*domainboxes.Box, error) {
	cur, err := r.col.Find(ctx, bson.M{"stand_id": standID}, options.Find().SetSort(bson.D{{Key: "label", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainboxes.Box
	for cur.Next(ctx) {
		var doc boxDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *BoxRepository) Save(ctx context.Context, box *domainboxes.Box) error {
	doc := newBoxDocument(box)
	filter := bson.M{"_id": doc.ID, "version": box.Version}
	doc.Version = box.Version + 1
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
	box.Version = doc.Version
	return nil
}

type boxDocument struct {
	ID               string `bson:"_id"`
	StandID          string `bson:"stand_id"`
	Label            string `bson:"label"`
	Active           bool   `bson:"active"`
	UtilizationHours int    `bson:"utilization_hours"`
	Version          int64  `bson:"version"`
}

func newBoxDocument(b *domainboxes.Box) boxDocument {
	return boxDocument{
		ID:               string(b.ID),
		StandID:          b.StandID,
		Label:            b.Label,
		Active:           b.Active,
		UtilizationHours: b.UtilizationHours,
		Version:          b.Version,
	}
}

func (d boxDocument) toAggregate() *domainboxes.Box {
	return &domainboxes.Box{
		ID:               domainboxes.BoxID(d.ID),
		StandID:          d.StandID,
		Label:            d.Label,
		Active:           d.Active,
		UtilizationHours: d.UtilizationHours,
		Version:          d.Version,
	}
}
