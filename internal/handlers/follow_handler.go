package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/hexagon/backend/internal/models"
	"github.com/anonto42/hexagon/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	followRepository repositories.FollowRepository
	producer         *Producer
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, producer *Producer) *FollowHandler {
	return &FollowHandler{
		followRepository: followRepo,
		producer:         producer,
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/follow", h.FollowUser)
	g.DELETE("/follow", h.UnfollowUser)
	g.GET("/follow/stats", h.GetFollowStats)
	g.GET("/follow/status", h.GetFollowStatus)
}

// FollowUser follows a user. Following twice is reported, not rejected.
func (h *FollowHandler) FollowUser(c echo.Context) error {
	currentUserID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req models.FollowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.FollowingID == currentUserID {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot follow self")
	}

	created, err := h.followRepository.InsertIfAbsent(c.Request().Context(), currentUserID, req.FollowingID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !created {
		return c.JSON(http.StatusOK, echo.Map{"ok": true, "alreadyFollowing": true})
	}

	h.producer.Followed(currentUserID, req.FollowingID)

	return c.JSON(http.StatusCreated, echo.Map{"ok": true})
}

// UnfollowUser unfollows a user
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	currentUserID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req models.FollowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err = h.followRepository.DeleteFollow(c.Request().Context(), currentUserID, req.FollowingID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// GetFollowStats returns follower and following counts for accountId
func (h *FollowHandler) GetFollowStats(c echo.Context) error {
	accountID := c.QueryParam("accountId")
	if accountID == "" {
		return c.JSON(http.StatusOK, echo.Map{"followers": 0, "following": 0})
	}

	ctx := c.Request().Context()
	followers, err := h.followRepository.GetFollowersCount(ctx, accountID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	following, err := h.followRepository.GetFollowingCount(ctx, accountID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"followers": followers, "following": following})
}

// GetFollowStatus reports whether followerId (default: caller) follows followingId
func (h *FollowHandler) GetFollowStatus(c echo.Context) error {
	followerID := c.QueryParam("followerId")
	if followerID == "" {
		followerID = getUserIDFromContext(c)
	}
	followingID := c.QueryParam("followingId")
	if followingID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "followingId required")
	}

	following, err := h.followRepository.IsFollowing(c.Request().Context(), followerID, followingID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"following": following})
}
