package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxCommentLength is the number of characters kept from a comment body.
const MaxCommentLength = 1000

// Comment represents a comment on a target (usually a post)
type Comment struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TargetType string             `json:"targetType" bson:"targetType"`
	TargetID   string             `json:"targetId" bson:"targetId"`
	AccountID  string             `json:"accountId" bson:"accountId"`
	Content    string             `json:"content" bson:"content"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	TargetType string `json:"targetType" validate:"required"`
	TargetID   string `json:"targetId" validate:"required"`
	AccountID  string `json:"accountId" validate:"required"`
	Content    string `json:"content" validate:"required"`
}
