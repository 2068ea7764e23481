package push

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"

	"github.com/anonto42/hexagon/backend/pkg/log"
)

// maxMulticastTokens is the FCM limit on tokens per multicast request.
const maxMulticastTokens = 500

// MulticastSender is implemented by *messaging.Client.
type MulticastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// TokenStore resolves and prunes a user's device tokens.
type TokenStore interface {
	GetTokensByUserID(ctx context.Context, userID string) ([]string, error)
	DeleteTokens(ctx context.Context, tokens []string) (int64, error)
}

// FCMDispatcher sends through Firebase Cloud Messaging.
type FCMDispatcher struct {
	sender  MulticastSender
	tokens  TokenStore
	logger  log.Logger
	isStale func(error) bool
}

func NewFCMDispatcher(sender MulticastSender, tokens TokenStore, logger log.Logger) *FCMDispatcher {
	return &FCMDispatcher{
		sender:  sender,
		tokens:  tokens,
		logger:  logger,
		isStale: messaging.IsUnregistered,
	}
}

// Send delivers msg to every registered device of userID. A user without
// devices is not an error. It fails only when no device accepted the message.
func (d *FCMDispatcher) Send(ctx context.Context, userID string, msg Message) error {
	tokens, err := d.tokens.GetTokensByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("push: load tokens for %s: %w", userID, err)
	}
	if len(tokens) == 0 {
		return nil
	}

	var (
		delivered int
		stale     []string
		lastErr   error
	)
	for start := 0; start < len(tokens); start += maxMulticastTokens {
		end := min(start+maxMulticastTokens, len(tokens))
		chunk := tokens[start:end]

		resp, err := d.sender.SendEachForMulticast(ctx, d.multicast(chunk, msg))
		if err != nil {
			lastErr = err
			continue
		}
		delivered += resp.SuccessCount
		for i, r := range resp.Responses {
			if r.Success {
				continue
			}
			lastErr = r.Error
			if d.isStale(r.Error) {
				stale = append(stale, chunk[i])
			}
		}
	}

	if len(stale) > 0 {
		if n, err := d.tokens.DeleteTokens(ctx, stale); err != nil {
			d.logger.Warnf("push: prune %d tokens for %s: %v", len(stale), userID, err)
		} else {
			d.logger.Infof("push: pruned %d unregistered tokens for %s", n, userID)
		}
	}

	if delivered == 0 {
		return fmt.Errorf("push: no device of %s accepted the message: %w", userID, lastErr)
	}
	return nil
}

func (d *FCMDispatcher) multicast(tokens []string, msg Message) *messaging.MulticastMessage {
	m := &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   msg.Data,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
	}
	if link := msg.Data["url"]; link != "" {
		m.Webpush = &messaging.WebpushConfig{
			FCMOptions: &messaging.WebpushFCMOptions{Link: link},
		}
	}
	return m
}
