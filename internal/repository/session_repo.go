package repository

import (
	"context"
	"ithakabot/internal/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type sessionRepo struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewSessionRepo creates a Mongo-backed session store
func NewSessionRepo(db *mongo.Database) SessionStore {
	return newSessionRepo(db.Collection("wizard_sessions"))
}

func newSessionRepo(coll *mongo.Collection) *sessionRepo {
	return &sessionRepo{
		collection: coll,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *sessionRepo) LoadByConversation(ctx context.Context, conversationID string) (*model.WizardSession, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var session model.WizardSession
	err := r.collection.FindOne(ctx, bson.M{"conversationId": conversationID}, opts).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) Save(ctx context.Context, session *model.WizardSession) error {
	expected := session.Version
	next := *session
	next.Version = expected + 1
	next.UpdatedAt = r.now()

	if expected == 0 {
		_, err := r.collection.InsertOne(ctx, &next)
		if mongo.IsDuplicateKeyError(err) {
			return ErrVersionConflict
		}
		if err != nil {
			return err
		}
	} else {
		res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ID, "version": expected}, &next)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ErrVersionConflict
		}
	}

	session.Version = next.Version
	session.UpdatedAt = next.UpdatedAt
	return nil
}
