package models

import "time"

// PushSubscription is a device registration token for Firebase Cloud Messaging.
type PushSubscription struct {
	UserID    string    `json:"userId" bson:"userId"`
	Token     string    `json:"-" bson:"token"`
	Platform  string    `json:"platform" bson:"platform"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// PushSubscriptionRequest registers or removes a device token.
type PushSubscriptionRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"omitempty,oneof=web android ios"`
}
