package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/anonto42/hexagon/backend/internal/models"
	"github.com/anonto42/hexagon/backend/internal/push"
)

type memStore struct {
	mu      sync.Mutex
	saved   []*models.Notification
	failFor map[string]bool
	err     error
}

func (s *memStore) CreateNotification(_ context.Context, n *models.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = primitive.NewObjectID()
	s.saved = append(s.saved, n)
	return nil
}

func (s *memStore) CreateNotifications(_ context.Context, ns []*models.Notification) ([]*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stored []*models.Notification
	for _, n := range ns {
		if s.failFor[n.RecipientID] {
			continue
		}
		n.ID = primitive.NewObjectID()
		s.saved = append(s.saved, n)
		stored = append(stored, n)
	}
	if len(stored) < len(ns) {
		return stored, errors.New("bulk write exception")
	}
	return stored, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

type fakeLive struct {
	mu        sync.Mutex
	offline   map[string]bool
	err       error
	delivered []*models.Notification
}

func (f *fakeLive) Deliver(userID string, n *models.Notification) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.offline[userID] {
		return false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, n)
	return true, nil
}

func (f *fakeLive) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.delivered)
}

type fakePush struct {
	mu    sync.Mutex
	sent  map[string]push.Message
	err   error
	block chan struct{}
	delay time.Duration
}

func (f *fakePush) Send(_ context.Context, userID string, msg push.Message) error {
	if f.block != nil {
		<-f.block
	}
	time.Sleep(f.delay)
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = make(map[string]push.Message)
	}
	f.sent[userID] = msg
	return nil
}

func (f *fakePush) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
