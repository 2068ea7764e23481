package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/hexagon/backend/internal/models"
	"github.com/anonto42/hexagon/backend/internal/notifier"
	"github.com/anonto42/hexagon/backend/internal/repositories"
	"github.com/anonto42/hexagon/backend/pkg/log"
)

const fallbackUsername = "Someone"

// NotificationProducer creates and fans out notifications.
type NotificationProducer interface {
	Notify(ctx context.Context, ev notifier.Event) (*models.Notification, error)
	NotifyMany(ctx context.Context, recipientIDs []string, template func(recipientID string) notifier.Event) ([]*models.Notification, error)
	Background(name, userID string, fn func(ctx context.Context) error)
}

// Producer emits notifications for social actions. Every method returns
// immediately; the work runs as a supervised task and its failures are
// logged, never surfaced to the HTTP caller.
type Producer struct {
	notifications NotificationProducer
	users         repositories.UserRepository
	posts         repositories.PostRepository
	follows       repositories.FollowRepository
	logger        log.Logger
}

func NewProducer(
	notifications NotificationProducer,
	users repositories.UserRepository,
	posts repositories.PostRepository,
	follows repositories.FollowRepository,
	logger log.Logger,
) *Producer {
	return &Producer{
		notifications: notifications,
		users:         users,
		posts:         posts,
		follows:       follows,
		logger:        logger,
	}
}

func (p *Producer) username(ctx context.Context, userID string) string {
	user, err := p.users.GetUserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			p.logger.Warnf("handlers: username lookup for %s: %v", userID, err)
		}
		return fallbackUsername
	}
	if user.Username == "" {
		return fallbackUsername
	}
	return user.Username
}

// PostReaction notifies the owner of postID that actorID liked or commented on it.
func (p *Producer) PostReaction(kind, actorID, postID string) {
	format := "%s liked your post."
	if kind == models.NotificationTypeComment {
		format = "%s commented on your post."
	}

	p.notifications.Background("notify:"+kind, actorID, func(ctx context.Context) error {
		post, err := p.posts.GetPostByID(ctx, postID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) || errors.Is(err, repositories.ErrInvalidID) {
				return nil
			}
			return fmt.Errorf("load post %s: %w", postID, err)
		}
		if post.AccountID == actorID {
			return nil
		}

		name := p.username(ctx, actorID)
		_, err = p.notifications.Notify(ctx, notifier.Event{
			RecipientID:     post.AccountID,
			Type:            kind,
			Message:         fmt.Sprintf(format, name),
			RelatedUserID:   actorID,
			RelatedUsername: name,
			RelatedPostID:   postID,
		})
		return err
	})
}

// Followed notifies followingID of a new follower.
func (p *Producer) Followed(followerID, followingID string) {
	p.notifications.Background("notify:follow", followerID, func(ctx context.Context) error {
		name := p.username(ctx, followerID)
		_, err := p.notifications.Notify(ctx, notifier.Event{
			RecipientID:     followingID,
			Type:            models.NotificationTypeFollow,
			Message:         fmt.Sprintf("%s started following you.", name),
			RelatedUserID:   followerID,
			RelatedUsername: name,
		})
		if errors.Is(err, notifier.ErrSelfNotification) {
			return nil
		}
		return err
	})
}

// Posted notifies every follower of posterID about a new post.
func (p *Producer) Posted(posterID, postID string) {
	p.notifications.Background("notify:new_post", posterID, func(ctx context.Context) error {
		followers, err := p.follows.GetFollowerIDs(ctx, posterID)
		if err != nil {
			return fmt.Errorf("load followers of %s: %w", posterID, err)
		}
		if len(followers) == 0 {
			return nil
		}

		name := p.username(ctx, posterID)
		msg := fmt.Sprintf("%s posted something new.", name)
		stored, err := p.notifications.NotifyMany(ctx, followers, func(recipientID string) notifier.Event {
			return notifier.Event{
				RecipientID:     recipientID,
				Type:            models.NotificationTypeNewPost,
				Message:         msg,
				RelatedUserID:   posterID,
				RelatedUsername: name,
				RelatedPostID:   postID,
			}
		})
		p.logger.Debugf("handlers: post %s notified %d of %d followers", postID, len(stored), len(followers))
		return err
	})
}
