package realtime

import "encoding/json"

// Event names on the live channel.
const (
	EventSnapshot     = "notifications"
	EventNotification = "newNotification"
	EventRead         = "notificationRead"
	EventError        = "error"

	EventMarkRead = "markRead"
)

// Error codes carried by EventError.
const (
	CodeBadRequest = "bad_request"
	CodeForbidden  = "forbidden"
	CodeNotFound   = "not_found"
	CodeInternal   = "internal"
)

// Envelope is the server to client frame.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Inbound is a client to server frame. Data is decoded per event.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type MarkReadRequest struct {
	NotificationID string `json:"notificationId"`
}
