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

// FollowRepository defines the interface for follow data operations
type FollowRepository interface {
	InsertIfAbsent(ctx context.Context, followerID, followingID string) (bool, error)
	DeleteFollow(ctx context.Context, followerID, followingID string) error
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	GetFollowerIDs(ctx context.Context, userID string) ([]string, error)
	GetFollowersCount(ctx context.Context, userID string) (int64, error)
	GetFollowingCount(ctx context.Context, userID string) (int64, error)
}

// MongoFollowRepository implements FollowRepository for MongoDB
type MongoFollowRepository struct {
	collection *mongo.Collection
}

// NewMongoFollowRepository creates a new MongoFollowRepository
func NewMongoFollowRepository(db *mongo.Database) *MongoFollowRepository {
	return &MongoFollowRepository{collection: db.Collection("follows")}
}

// EnsureIndexes creates the unique (followerId, followingId) index and the follower lookup index.
func (r *MongoFollowRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "followerId", Value: 1}, {Key: "followingId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "followingId", Value: 1}}},
	})
	return err
}

// InsertIfAbsent stores the relationship and reports whether it was new.
// Concurrent callers for the same pair see exactly one true.
func (r *MongoFollowRepository) InsertIfAbsent(ctx context.Context, followerID, followingID string) (bool, error) {
	filter := bson.M{"followerId": followerID, "followingId": followingID}
	update := bson.M{"$setOnInsert": models.Follow{
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   time.Now(),
	}}
	return upsertIfAbsent(ctx, r.collection, filter, update)
}

func upsertIfAbsent(ctx context.Context, coll *mongo.Collection, filter, update interface{}) (bool, error) {
	res, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// Two upserts racing on a unique index: the loser did not insert.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return res.UpsertedCount == 1, nil
}

func (r *MongoFollowRepository) DeleteFollow(ctx context.Context, followerID, followingID string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"followerId": followerID, "followingId": followingID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("follow relationship: %w", ErrNotFound)
	}
	return nil
}

func (r *MongoFollowRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"followerId": followerID, "followingId": followingID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetFollowerIDs returns the ids of every account following userID.
func (r *MongoFollowRepository) GetFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	findOptions := options.Find().SetProjection(bson.M{"followerId": 1, "_id": 0})
	cursor, err := r.collection.Find(ctx, bson.M{"followingId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []models.Follow
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.FollowerID)
	}
	return ids, nil
}

func (r *MongoFollowRepository) GetFollowersCount(ctx context.Context, userID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"followingId": userID})
}

func (r *MongoFollowRepository) GetFollowingCount(ctx context.Context, userID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"followerId": userID})
}
