// Package push delivers notifications through an out-of-band push service.
package push

import (
	"context"

	"github.com/anonto42/hexagon/backend/pkg/log"
)

// Message is a push notification addressed to every device of one user.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Dispatcher sends a push message to a user. Implementations make one
// attempt; retries and queueing are left to the push service.
type Dispatcher interface {
	Send(ctx context.Context, userID string, msg Message) error
}

// LogDispatcher only logs. It stands in when no push credentials are configured.
type LogDispatcher struct {
	logger log.Logger
}

func NewLogDispatcher(logger log.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(_ context.Context, userID string, msg Message) error {
	d.logger.Debugf("push: (disabled) to=%s title=%q body=%q", userID, msg.Title, msg.Body)
	return nil
}
