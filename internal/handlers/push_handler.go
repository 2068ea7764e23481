package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/hexagon/backend/internal/models"
	"github.com/anonto42/hexagon/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// PushHandler manages the caller's push device registrations
type PushHandler struct {
	subscriptions repositories.PushSubscriptionRepository
}

func NewPushHandler(subs repositories.PushSubscriptionRepository) *PushHandler {
	return &PushHandler{subscriptions: subs}
}

func (h *PushHandler) RegisterPushRoutes(g *echo.Group) {
	g.POST("/push/subscriptions", h.Subscribe)
	g.DELETE("/push/subscriptions", h.Unsubscribe)
}

// Subscribe registers an FCM token for the caller
func (h *PushHandler) Subscribe(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req models.PushSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	platform := req.Platform
	if platform == "" {
		platform = "web"
	}
	sub := &models.PushSubscription{UserID: userID, Token: req.Token, Platform: platform}
	if err := h.subscriptions.SaveSubscription(c.Request().Context(), sub); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, echo.Map{"ok": true})
}

// Unsubscribe removes one of the caller's tokens
func (h *PushHandler) Unsubscribe(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req models.PushSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.subscriptions.DeleteSubscription(c.Request().Context(), userID, req.Token); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Subscription not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
