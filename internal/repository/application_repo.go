package repository

import (
	"context"
	"ithakabot/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type applicationRepo struct {
	collection *mongo.Collection
}

// NewApplicationRepo creates a Mongo-backed application store
func NewApplicationRepo(db *mongo.Database) ApplicationStore {
	return &applicationRepo{collection: db.Collection("applications")}
}

func (r *applicationRepo) Store(ctx context.Context, record *model.ApplicationRecord) (*model.ApplicationRecord, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored model.ApplicationRecord
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"sessionId": record.SessionID},
		bson.M{"$setOnInsert": record},
		opts,
	).Decode(&stored)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *applicationRepo) GetByID(ctx context.Context, id string) (*model.ApplicationRecord, error) {
	var record model.ApplicationRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *applicationRepo) List(ctx context.Context, filter model.ApplicationFilter) ([]*model.ApplicationRecord, error) {
	query := bson.M{}
	if filter.Path != "" {
		query["path"] = filter.Path
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "submittedAt", Value: -1}}).
		SetLimit(listLimit(filter))

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := make([]*model.ApplicationRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
