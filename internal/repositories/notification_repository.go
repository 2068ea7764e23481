package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/hexagon/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	CreateNotifications(ctx context.Context, notifications []*models.Notification) ([]*models.Notification, error)
	GetNotificationByID(ctx context.Context, id string) (*models.Notification, error)
	GetRecentByRecipientID(ctx context.Context, recipientID string, limit int64) ([]models.Notification, error)
	GetByRecipientID(ctx context.Context, recipientID string, page, limit int64) ([]models.Notification, int64, error)
	GetUnreadCount(ctx context.Context, recipientID string) (int64, error)
	MarkAsRead(ctx context.Context, id, recipientID string) (*models.Notification, error)
	MarkAllAsRead(ctx context.Context, recipientID string) (int64, error)
}

// MongoNotificationRepository implements NotificationRepository for MongoDB
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new MongoNotificationRepository
func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection("notifications")}
}

// EnsureIndexes creates the per-recipient listing index.
func (r *MongoNotificationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "recipientId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

func stamp(n *models.Notification, now time.Time) {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	n.IsRead = false
	n.CreatedAt = now
	n.UpdatedAt = now
}

// CreateNotification persists a single notification. The ID is assigned
// before the insert so callers can deliver the stored record as-is.
func (r *MongoNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	stamp(notification, time.Now())
	if _, err := r.collection.InsertOne(ctx, notification); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// CreateNotifications inserts the batch unordered and returns the documents
// that were stored. When some documents fail the survivors are returned
// together with a non-nil error.
func (r *MongoNotificationRepository) CreateNotifications(ctx context.Context, notifications []*models.Notification) ([]*models.Notification, error) {
	if len(notifications) == 0 {
		return nil, nil
	}

	now := time.Now()
	docs := make([]interface{}, len(notifications))
	for i, n := range notifications {
		stamp(n, now)
		docs[i] = n
	}

	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return notifications, nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil {
		return nil, fmt.Errorf("insert notifications: %w", err)
	}
	failed := make([]int, 0, len(bwe.WriteErrors))
	for _, we := range bwe.WriteErrors {
		failed = append(failed, we.Index)
	}
	stored := survivors(notifications, failed)
	return stored, fmt.Errorf("insert notifications: %d of %d failed: %w", len(notifications)-len(stored), len(notifications), err)
}

// survivors returns the batch minus the documents at the failed indexes.
func survivors(batch []*models.Notification, failed []int) []*models.Notification {
	skip := make(map[int]struct{}, len(failed))
	for _, i := range failed {
		skip[i] = struct{}{}
	}
	out := make([]*models.Notification, 0, len(batch)-len(skip))
	for i, n := range batch {
		if _, ok := skip[i]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// GetNotificationByID retrieves a notification by ID from MongoDB
func (r *MongoNotificationRepository) GetNotificationByID(ctx context.Context, id string) (*models.Notification, error) {
	objID, err := objectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var notification models.Notification
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&notification)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("notification %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &notification, nil
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// GetRecentByRecipientID returns the newest notifications for a recipient.
func (r *MongoNotificationRepository) GetRecentByRecipientID(ctx context.Context, recipientID string, limit int64) ([]models.Notification, error) {
	notifications := []models.Notification{}
	findOptions := options.Find().SetSort(newestFirst).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"recipientId": recipientID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// GetByRecipientID returns one page of a recipient's notifications and the total count.
func (r *MongoNotificationRepository) GetByRecipientID(ctx context.Context, recipientID string, page, limit int64) ([]models.Notification, int64, error) {
	filter := bson.M{"recipientId": recipientID}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	notifications := []models.Notification{}
	findOptions := options.Find().SetSort(newestFirst).SetSkip((page - 1) * limit).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *MongoNotificationRepository) GetUnreadCount(ctx context.Context, recipientID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"recipientId": recipientID, "isRead": false})
}

// MarkAsRead sets isRead on a notification owned by recipientID and
// returns the updated record. A notification addressed to someone else
// yields ErrForbidden and is left unchanged.
func (r *MongoNotificationRepository) MarkAsRead(ctx context.Context, id, recipientID string) (*models.Notification, error) {
	objID, err := objectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var updated models.Notification
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": objID, "recipientId": recipientID},
		bson.M{"$set": bson.M{"isRead": true, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// Distinguish a missing notification from one addressed to another user.
	n, lookupErr := r.GetNotificationByID(ctx, id)
	if lookupErr != nil {
		return nil, lookupErr
	}
	if n.RecipientID != recipientID {
		return nil, fmt.Errorf("notification %s: %w", id, ErrForbidden)
	}
	return nil, fmt.Errorf("notification %s: %w", id, ErrNotFound)
}

func (r *MongoNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID string) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"recipientId": recipientID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "updatedAt": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
