package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/anonto42/hexagon/backend/internal/middleware"
	"github.com/anonto42/hexagon/backend/internal/models"
	"github.com/anonto42/hexagon/backend/internal/repositories"
	"github.com/anonto42/hexagon/backend/pkg/log"
	"github.com/anonto42/hexagon/backend/pkg/token"
)

// Handshake rejection reasons, returned as {"error": reason} with 401.
const (
	ReasonMissingCredential = "missing credential"
	ReasonInvalidCredential = "invalid or expired credential"
	ReasonInactiveAccount   = "account not found or inactive"
)

// AccountLookup resolves the account behind a verified token.
type AccountLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// NotificationStore is the part of the notification repository the gateway reads and updates.
type NotificationStore interface {
	GetRecentByRecipientID(ctx context.Context, recipientID string, limit int64) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id, recipientID string) (*models.Notification, error)
}

// Options configures connections accepted by the Gateway.
type Options struct {
	PingInterval    time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	MaxMessageSize  int64
	SendBuffer      int
	ReadBufferSize  int
	WriteBufferSize int

	SnapshotLimit int64
	StoreTimeout  time.Duration
}

func DefaultOptions() Options {
	return Options{
		PingInterval:    30 * time.Second,
		PongWait:        60 * time.Second,
		WriteWait:       10 * time.Second,
		MaxMessageSize:  4096,
		SendBuffer:      256,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SnapshotLimit:   50,
		StoreTimeout:    5 * time.Second,
	}
}

// Gateway authenticates websocket handshakes and serves the live channel.
type Gateway struct {
	registry      *Registry
	tokens        *token.Manager
	accounts      AccountLookup
	notifications NotificationStore
	opts          Options
	upgrader      websocket.Upgrader
	logger        log.Logger
}

func NewGateway(
	registry *Registry,
	tokens *token.Manager,
	accounts AccountLookup,
	notifications NotificationStore,
	opts Options,
	logger log.Logger,
) *Gateway {
	return &Gateway{
		registry:      registry,
		tokens:        tokens,
		accounts:      accounts,
		notifications: notifications,
		opts:          opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  opts.ReadBufferSize,
			WriteBufferSize: opts.WriteBufferSize,
			// Browsers connect from the web app origin; the token is the access control.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// RegisterRoutes mounts the live endpoint.
func (g *Gateway) RegisterRoutes(e *echo.Echo) {
	e.GET("/notifications/ws", g.Handle)
}

// Handle authenticates the handshake, upgrades, sends the snapshot and
// then serves inbound events until the connection ends.
func (g *Gateway) Handle(c echo.Context) error {
	user, reason := g.authenticate(c)
	if reason != "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": reason})
	}

	conn, err := g.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written an HTTP error.
		g.logger.Warnf("realtime: upgrade failed for user %s: %v", user.ID, err)
		return nil
	}

	client := newClient(conn, user.ID, g.opts, g.logger)
	g.registry.Register(client)
	go client.writePump()

	g.sendSnapshot(client)
	g.logger.Debugf("realtime: user %s connected as %s", user.ID, client.ID())

	client.readPump(g.registry, g.handle)
	g.logger.Debugf("realtime: client %s disconnected", client.ID())
	return nil
}

func credential(r *http.Request) string {
	if raw, ok := middleware.BearerToken(r.Header.Get("Authorization")); ok {
		return raw
	}
	return r.URL.Query().Get("token")
}

func (g *Gateway) authenticate(c echo.Context) (*models.User, string) {
	raw := credential(c.Request())
	if raw == "" {
		return nil, ReasonMissingCredential
	}

	claims, err := g.tokens.Verify(raw)
	if err != nil {
		return nil, ReasonInvalidCredential
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), g.opts.StoreTimeout)
	defer cancel()
	user, err := g.accounts.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			g.logger.Errorf("realtime: account lookup for %s failed: %v", claims.UserID, err)
		}
		return nil, ReasonInactiveAccount
	}
	if !user.IsActive {
		return nil, ReasonInactiveAccount
	}
	return user, ""
}

func (g *Gateway) sendSnapshot(client *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), g.opts.StoreTimeout)
	defer cancel()

	recent, err := g.notifications.GetRecentByRecipientID(ctx, client.UserID(), g.opts.SnapshotLimit)
	if err != nil {
		g.logger.Errorf("realtime: snapshot for user %s failed: %v", client.UserID(), err)
		client.reply(EventError, ErrorPayload{Message: "Failed to load notifications", Code: CodeInternal})
		return
	}
	client.reply(EventSnapshot, recent)
}

func (g *Gateway) handle(client *Client, msg Inbound) {
	switch msg.Event {
	case EventMarkRead:
		g.markRead(client, msg.Data)
	default:
		client.reply(EventError, ErrorPayload{Message: "Unknown event " + msg.Event, Code: CodeBadRequest})
	}
}

func (g *Gateway) markRead(client *Client, data json.RawMessage) {
	var req MarkReadRequest
	if err := json.Unmarshal(data, &req); err != nil || req.NotificationID == "" {
		client.reply(EventError, ErrorPayload{Message: "notificationId is required", Code: CodeBadRequest})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.opts.StoreTimeout)
	defer cancel()

	n, err := g.notifications.MarkAsRead(ctx, req.NotificationID, client.UserID())
	switch {
	case err == nil:
		client.reply(EventRead, models.NotificationRead{NotificationID: n.ID.Hex(), IsRead: true})
	case errors.Is(err, repositories.ErrForbidden):
		g.logger.Warnf("realtime: user %s tried to mark notification %s", client.UserID(), req.NotificationID)
		client.reply(EventError, ErrorPayload{Message: "Notification belongs to another user", Code: CodeForbidden})
	case errors.Is(err, repositories.ErrNotFound), errors.Is(err, repositories.ErrInvalidID):
		client.reply(EventError, ErrorPayload{Message: "Notification not found", Code: CodeNotFound})
	default:
		g.logger.Errorf("realtime: mark read %s for user %s failed: %v", req.NotificationID, client.UserID(), err)
		client.reply(EventError, ErrorPayload{Message: "Failed to mark notification as read", Code: CodeInternal})
	}
}
