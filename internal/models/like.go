package models

import "time"

// Like represents a like on a target (post, comment, ...)
type Like struct {
	TargetType string    `json:"targetType" bson:"targetType"`
	TargetID   string    `json:"targetId" bson:"targetId"`
	AccountID  string    `json:"accountId" bson:"accountId"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

// CreateLikeRequest defines the request body for liking a target
type CreateLikeRequest struct {
	TargetType string `json:"targetType" validate:"required"`
	TargetID   string `json:"targetId" validate:"required"`
	AccountID  string `json:"accountId" validate:"required"`
}

// DeleteLikeRequest defines the request body for removing a like
type DeleteLikeRequest struct {
	TargetType string `json:"targetType" query:"targetType" validate:"required"`
	TargetID   string `json:"targetId" query:"targetId" validate:"required"`
}
