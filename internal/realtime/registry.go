package realtime

import (
	"sync"

	"github.com/anonto42/hexagon/backend/pkg/log"
)

// Channel is a live, per-user outbound connection.
type Channel interface {
	ID() string
	UserID() string
	Send(event string, data any) error
	Close()
}

// Registry maps each user to at most one live Channel.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Channel
	logger  log.Logger
}

func NewRegistry(logger log.Logger) *Registry {
	return &Registry{
		entries: make(map[string]Channel),
		logger:  logger,
	}
}

// Register binds ch to its user. A previously bound channel is closed.
func (r *Registry) Register(ch Channel) {
	r.mu.Lock()
	prev := r.entries[ch.UserID()]
	r.entries[ch.UserID()] = ch
	r.mu.Unlock()

	if prev != nil && prev != ch {
		r.logger.Infof("realtime: user %s reconnected, closing channel %s", ch.UserID(), prev.ID())
		prev.Close()
	}
}

// Unregister removes ch only if it is still the user's current channel.
// It reports whether an entry was removed.
func (r *Registry) Unregister(ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.entries[ch.UserID()]; ok && cur == ch {
		delete(r.entries, ch.UserID())
		return true
	}
	return false
}

func (r *Registry) Lookup(userID string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.entries[userID]
	return ch, ok
}

// Len returns the number of users with a live channel.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// CloseAll empties the registry and closes every channel.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]Channel)
	r.mu.Unlock()

	for _, ch := range entries {
		ch.Close()
	}
}
