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

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	InsertIfAbsent(ctx context.Context, like *models.Like) (bool, error)
	DeleteLike(ctx context.Context, targetType, targetID, accountID string) error
	GetLikesByTarget(ctx context.Context, filter LikeFilter, limit int64) ([]models.Like, error)
	CountLikesByTarget(ctx context.Context, filter LikeFilter) (int64, error)
}

// LikeFilter selects likes on one target, optionally by a single account.
type LikeFilter struct {
	TargetType string
	TargetID   string
	AccountID  string
}

func (f LikeFilter) query() bson.M {
	m := bson.M{"targetType": f.TargetType, "targetId": f.TargetID}
	if f.AccountID != "" {
		m["accountId"] = f.AccountID
	}
	return m
}

// MongoLikeRepository implements LikeRepository for MongoDB
type MongoLikeRepository struct {
	collection *mongo.Collection
}

// NewMongoLikeRepository creates a new MongoLikeRepository
func NewMongoLikeRepository(db *mongo.Database) *MongoLikeRepository {
	return &MongoLikeRepository{collection: db.Collection("likes")}
}

// EnsureIndexes creates the unique (targetType, targetId, accountId) index.
func (r *MongoLikeRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "targetType", Value: 1},
			{Key: "targetId", Value: 1},
			{Key: "accountId", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// InsertIfAbsent stores the like and reports whether it was new.
func (r *MongoLikeRepository) InsertIfAbsent(ctx context.Context, like *models.Like) (bool, error) {
	like.CreatedAt = time.Now()
	filter := bson.M{"targetType": like.TargetType, "targetId": like.TargetID, "accountId": like.AccountID}
	return upsertIfAbsent(ctx, r.collection, filter, bson.M{"$setOnInsert": like})
}

func (r *MongoLikeRepository) DeleteLike(ctx context.Context, targetType, targetID, accountID string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"targetType": targetType, "targetId": targetID, "accountId": accountID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("like: %w", ErrNotFound)
	}
	return nil
}

// GetLikesByTarget returns the newest likes matching filter.
func (r *MongoLikeRepository) GetLikesByTarget(ctx context.Context, filter LikeFilter, limit int64) ([]models.Like, error) {
	likes := []models.Like{}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter.query(), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &likes); err != nil {
		return nil, err
	}
	return likes, nil
}

func (r *MongoLikeRepository) CountLikesByTarget(ctx context.Context, filter LikeFilter) (int64, error) {
	return r.collection.CountDocuments(ctx, filter.query())
}
