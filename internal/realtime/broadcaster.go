package realtime

import (
	"fmt"

	"github.com/anonto42/hexagon/backend/internal/models"
)

// Broadcaster pushes freshly persisted notifications to live channels.
// Delivery is at most once: nothing is queued for offline users.
type Broadcaster struct {
	registry *Registry
}

func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

// Deliver reports false with a nil error when the user has no live channel.
func (b *Broadcaster) Deliver(userID string, n *models.Notification) (bool, error) {
	ch, ok := b.registry.Lookup(userID)
	if !ok {
		return false, nil
	}
	if err := ch.Send(EventNotification, n); err != nil {
		return false, fmt.Errorf("deliver notification %s to %s: %w", n.ID.Hex(), userID, err)
	}
	return true, nil
}
