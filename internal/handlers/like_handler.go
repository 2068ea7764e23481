package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/hexagon/backend/internal/models"
	"github.com/anonto42/hexagon/backend/internal/repositories"
	"github.com/anonto42/hexagon/backend/pkg/log"
	"github.com/labstack/echo/v4"
)

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	likeRepository repositories.LikeRepository
	postRepository repositories.PostRepository // To update like counts in posts
	producer       *Producer
	logger         log.Logger
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(likeRepo repositories.LikeRepository, postRepo repositories.PostRepository, producer *Producer, logger log.Logger) *LikeHandler {
	return &LikeHandler{
		likeRepository: likeRepo,
		postRepository: postRepo,
		producer:       producer,
		logger:         logger,
	}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.GET("/likes", h.GetLikes)
	g.POST("/likes", h.CreateLike)
	g.DELETE("/likes", h.DeleteLike)
}

// GetLikes lists likes on a target, or counts them with count=1
func (h *LikeHandler) GetLikes(c echo.Context) error {
	filter := repositories.LikeFilter{
		TargetType: c.QueryParam("targetType"),
		TargetID:   c.QueryParam("targetId"),
		AccountID:  c.QueryParam("accountId"),
	}
	if filter.TargetType == "" || filter.TargetID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "targetType and targetId are required")
	}

	ctx := c.Request().Context()
	if c.QueryParam("count") == "1" {
		count, err := h.likeRepository.CountLikesByTarget(ctx, filter)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, echo.Map{"count": count})
	}

	likes, err := h.likeRepository.GetLikesByTarget(ctx, filter, listLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, likes)
}

// CreateLike likes a target. Only a newly created like notifies the post owner.
func (h *LikeHandler) CreateLike(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req models.CreateLikeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.AccountID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "account mismatch")
	}

	like := &models.Like{
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		AccountID:  userID,
	}
	created, err := h.likeRepository.InsertIfAbsent(c.Request().Context(), like)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !created {
		return c.JSON(http.StatusOK, echo.Map{"message": "already liked"})
	}

	if like.TargetType == models.TargetTypePost {
		if err := h.postRepository.IncrementLikesCount(c.Request().Context(), like.TargetID, 1); err != nil {
			h.logger.Warnf("handlers: likes counter for post %s: %v", like.TargetID, err)
		}
		h.producer.PostReaction(models.NotificationTypeLike, userID, like.TargetID)
	}

	return c.JSON(http.StatusCreated, like)
}

// DeleteLike removes the caller's like. Removing a missing like is not an error.
func (h *LikeHandler) DeleteLike(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req models.DeleteLikeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err = h.likeRepository.DeleteLike(c.Request().Context(), req.TargetType, req.TargetID, userID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if req.TargetType == models.TargetTypePost {
		if err := h.postRepository.IncrementLikesCount(c.Request().Context(), req.TargetID, -1); err != nil {
			h.logger.Warnf("handlers: likes counter for post %s: %v", req.TargetID, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
