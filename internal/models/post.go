package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxPostLength is the number of characters kept from a post body.
const MaxPostLength = 5000

// TargetTypePost is the like/comment target type that refers to a Post.
const TargetTypePost = "post"

// Post represents a social media post stored in MongoDB
type Post struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AccountID     string             `json:"accountId" bson:"accountId"`
	Content       string             `json:"content" bson:"content"`
	LikesCount    int                `json:"likes" bson:"likesCount"`
	CommentsCount int                `json:"comments" bson:"commentsCount"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Content string `json:"content" form:"content" validate:"required"`
}
