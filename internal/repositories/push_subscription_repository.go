package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/hexagon/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PushSubscriptionRepository stores FCM registration tokens per user.
type PushSubscriptionRepository interface {
	SaveSubscription(ctx context.Context, sub *models.PushSubscription) error
	DeleteSubscription(ctx context.Context, userID, token string) error
	GetTokensByUserID(ctx context.Context, userID string) ([]string, error)
	DeleteTokens(ctx context.Context, tokens []string) (int64, error)
}

// MongoPushSubscriptionRepository implements PushSubscriptionRepository for MongoDB
type MongoPushSubscriptionRepository struct {
	collection *mongo.Collection
}

func NewMongoPushSubscriptionRepository(db *mongo.Database) *MongoPushSubscriptionRepository {
	return &MongoPushSubscriptionRepository{collection: db.Collection("push_subscriptions")}
}

// EnsureIndexes makes tokens unique and indexes the owner.
func (r *MongoPushSubscriptionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
	})
	return err
}

// SaveSubscription upserts by token. A token that moves to another user is reassigned.
func (r *MongoPushSubscriptionRepository) SaveSubscription(ctx context.Context, sub *models.PushSubscription) error {
	now := time.Now()
	sub.UpdatedAt = now
	filter := bson.M{"token": sub.Token}
	update := bson.M{
		"$set":         bson.M{"userId": sub.UserID, "platform": sub.Platform, "updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent upsert inserted the token first; the retry matches it.
		_, err = r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	}
	if err != nil {
		return fmt.Errorf("save push subscription: %w", err)
	}
	return nil
}

func (r *MongoPushSubscriptionRepository) DeleteSubscription(ctx context.Context, userID, token string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"userId": userID, "token": token})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("push subscription: %w", ErrNotFound)
	}
	return nil
}

func (r *MongoPushSubscriptionRepository) GetTokensByUserID(ctx context.Context, userID string) ([]string, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, options.Find().SetProjection(bson.M{"token": 1, "_id": 0}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var subs []models.PushSubscription
	if err = cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	tokens := make([]string, 0, len(subs))
	for _, s := range subs {
		tokens = append(tokens, s.Token)
	}
	return tokens, nil
}

// DeleteTokens removes tokens the push service no longer accepts.
func (r *MongoPushSubscriptionRepository) DeleteTokens(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	res, err := r.collection.DeleteMany(ctx, bson.M{"token": bson.M{"$in": tokens}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
