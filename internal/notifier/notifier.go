// Package notifier turns social events into persisted notifications and
// fans them out to live channels and the push service.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/anonto42/hexagon/backend/internal/models"
	"github.com/anonto42/hexagon/backend/internal/push"
	"github.com/anonto42/hexagon/backend/pkg/log"
)

var (
	ErrSelfNotification    = errors.New("notifier: recipient is the actor")
	ErrInvalidNotification = errors.New("notifier: invalid notification")
)

// Store persists notifications.
type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	CreateNotifications(ctx context.Context, ns []*models.Notification) ([]*models.Notification, error)
}

// LiveDispatcher delivers to a connected user, reporting false when offline.
type LiveDispatcher interface {
	Deliver(userID string, n *models.Notification) (bool, error)
}

type Config struct {
	PushTimeout       time.Duration
	FanoutConcurrency int
}

// Event describes one notification to create.
type Event struct {
	RecipientID     string
	Type            string
	Message         string
	RelatedUserID   string
	RelatedUsername string
	RelatedPostID   string
}

type Notifier struct {
	store    Store
	live     LiveDispatcher
	push     push.Dispatcher
	tasks    *Supervisor
	observer Observer
	validate *validator.Validate
	cfg      Config
	logger   log.Logger
}

func New(
	store Store,
	live LiveDispatcher,
	pusher push.Dispatcher,
	tasks *Supervisor,
	observer Observer,
	cfg Config,
	logger log.Logger,
) *Notifier {
	if cfg.FanoutConcurrency < 1 {
		cfg.FanoutConcurrency = 1
	}
	return &Notifier{
		store:    store,
		live:     live,
		push:     pusher,
		tasks:    tasks,
		observer: observer,
		validate: validator.New(),
		cfg:      cfg,
		logger:   logger,
	}
}

func (n *Notifier) build(ev Event) (*models.Notification, error) {
	if ev.RelatedUserID != "" && ev.RecipientID == ev.RelatedUserID {
		return nil, ErrSelfNotification
	}
	rec := &models.Notification{
		RecipientID:     ev.RecipientID,
		Type:            ev.Type,
		Message:         ev.Message,
		RelatedUserID:   ev.RelatedUserID,
		RelatedUsername: ev.RelatedUsername,
		RelatedPostID:   ev.RelatedPostID,
	}
	if err := n.validate.Struct(rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}
	return rec, nil
}

// Notify persists one notification and returns once it is stored. Live
// and push delivery continue in a supervised background task.
func (n *Notifier) Notify(ctx context.Context, ev Event) (*models.Notification, error) {
	rec, err := n.build(ev)
	if err != nil {
		return nil, err
	}

	if err := n.store.CreateNotification(ctx, rec); err != nil {
		n.observer.Failed(StagePersist, rec.RecipientID, err)
		return nil, fmt.Errorf("persist notification for %s: %w", rec.RecipientID, err)
	}
	n.observer.Delivered(StagePersist, rec.RecipientID)

	n.tasks.Go("deliver:"+rec.Type, rec.RecipientID, func(ctx context.Context) error {
		n.deliver(ctx, rec)
		return nil
	})
	return rec, nil
}

// NotifyMany creates one notification per recipient from template and
// delivers every stored one before returning. Invalid and self-addressed
// entries are skipped. When the bulk insert partly fails, the stored
// notifications are still delivered and returned with the error.
func (n *Notifier) NotifyMany(ctx context.Context, recipientIDs []string, template func(recipientID string) Event) ([]*models.Notification, error) {
	batch := make([]*models.Notification, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		rec, err := n.build(template(id))
		if err != nil {
			n.logger.Warnf("notifier: skipping recipient %q: %v", id, err)
			continue
		}
		batch = append(batch, rec)
	}
	if len(batch) == 0 {
		return nil, nil
	}

	stored, insertErr := n.store.CreateNotifications(ctx, batch)
	n.reportPersisted(batch, stored, insertErr)
	if len(stored) == 0 {
		return nil, insertErr
	}

	// Legs are not bound by ctx: a fan-out that outlives the caller's
	// deadline keeps attempting every recipient, each within PushTimeout.
	legCtx := n.tasks.Context()
	var g errgroup.Group
	g.SetLimit(n.cfg.FanoutConcurrency)
	for _, rec := range stored {
		rec := rec
		g.Go(func() error {
			n.deliver(legCtx, rec)
			return nil
		})
	}
	_ = g.Wait()

	return stored, insertErr
}

func (n *Notifier) reportPersisted(batch, stored []*models.Notification, err error) {
	ok := make(map[*models.Notification]struct{}, len(stored))
	for _, rec := range stored {
		ok[rec] = struct{}{}
		n.observer.Delivered(StagePersist, rec.RecipientID)
	}
	if err == nil {
		return
	}
	n.logger.Errorf("notifier: stored %d of %d notifications: %v", len(stored), len(batch), err)
	for _, rec := range batch {
		if _, found := ok[rec]; !found {
			n.observer.Failed(StagePersist, rec.RecipientID, err)
		}
	}
}

// Background runs fn as a supervised task.
func (n *Notifier) Background(name, userID string, fn func(ctx context.Context) error) {
	n.tasks.Go(name, userID, fn)
}

// deliver runs the live leg then the push leg. A failure in one does not
// affect the other.
func (n *Notifier) deliver(ctx context.Context, rec *models.Notification) {
	userID := rec.RecipientID

	delivered, err := n.live.Deliver(userID, rec)
	switch {
	case err != nil:
		n.logger.Warnf("notifier: live delivery of %s to %s failed: %v", rec.ID.Hex(), userID, err)
		n.observer.Failed(StageLive, userID, err)
	case delivered:
		n.observer.Delivered(StageLive, userID)
	}

	if err := n.sendPush(ctx, rec); err != nil {
		n.logger.Warnf("notifier: push of %s to %s failed: %v", rec.ID.Hex(), userID, err)
		n.observer.Failed(StagePush, userID, err)
		return
	}
	n.observer.Delivered(StagePush, userID)
}

// sendPush bounds the push call by PushTimeout even when the dispatcher
// ignores its context.
func (n *Notifier) sendPush(ctx context.Context, rec *models.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.PushTimeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errc <- fmt.Errorf("push dispatcher panicked: %v", r)
			}
		}()
		errc <- n.push.Send(ctx, rec.RecipientID, pushMessageFor(rec))
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return fmt.Errorf("push abandoned: %w", ctx.Err())
	}
}

var pushTitles = map[string]string{
	models.NotificationTypeLike:    "New Like",
	models.NotificationTypeComment: "New Comment",
	models.NotificationTypeFollow:  "New Follower",
	models.NotificationTypeNewPost: "New Post",
}

func pushMessageFor(rec *models.Notification) push.Message {
	title, ok := pushTitles[rec.Type]
	if !ok {
		title = "Notification"
	}
	data := map[string]string{
		"url":            "/notifications",
		"notificationId": rec.ID.Hex(),
		"type":           rec.Type,
	}
	if rec.Type == models.NotificationTypeNewPost {
		data["url"] = "/profile"
	}
	if rec.RelatedPostID != "" {
		data["postId"] = rec.RelatedPostID
	}
	return push.Message{Title: title, Body: rec.Message, Data: data}
}
