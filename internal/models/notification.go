package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification categories. The set is open: producers may add new types
// without changes to storage or delivery.
const (
	NotificationTypeComment = "comment"
	NotificationTypeLike    = "like"
	NotificationTypeFollow  = "follow"
	NotificationTypeNewPost = "new_post"
)

// Notification represents a user notification stored in MongoDB.
// IsRead is the only field that changes after creation.
type Notification struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RecipientID     string             `json:"recipientId" bson:"recipientId" validate:"required"`
	Type            string             `json:"type" bson:"type" validate:"required"`
	Message         string             `json:"message" bson:"message" validate:"required"`
	RelatedUserID   string             `json:"relatedUserId" bson:"relatedUserId"`
	RelatedUsername string             `json:"relatedUsername" bson:"relatedUsername"` // copied at creation, not kept in sync
	RelatedPostID   string             `json:"relatedPostId" bson:"relatedPostId"`
	IsRead          bool               `json:"isRead" bson:"isRead"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// NotificationRead is the acknowledgment sent after a notification is marked as read.
type NotificationRead struct {
	NotificationID string `json:"notificationId"`
	IsRead         bool   `json:"isRead"`
}
