package models

import "time"

// Follow represents an Instagram-style follow relationship
type Follow struct {
	FollowerID  string    `json:"followerId" bson:"followerId"`
	FollowingID string    `json:"followingId" bson:"followingId"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// FollowRequest defines the request body for following or unfollowing a user
type FollowRequest struct {
	FollowingID string `json:"followingId" query:"followingId" validate:"required"`
}
