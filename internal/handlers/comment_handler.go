package handlers

import (
	"net/http"

	"github.com/anonto42/hexagon/backend/internal/models"
	"github.com/anonto42/hexagon/backend/internal/repositories"
	"github.com/anonto42/hexagon/backend/pkg/log"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	postRepository    repositories.PostRepository
	producer          *Producer
	logger            log.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentRepo repositories.CommentRepository, postRepo repositories.PostRepository, producer *Producer, logger log.Logger) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		postRepository:    postRepo,
		producer:          producer,
		logger:            logger,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.GET("/comments", h.GetComments)
	g.POST("/comments", h.CreateComment)
}

// GetComments lists comments on a target, or counts them with count=1
func (h *CommentHandler) GetComments(c echo.Context) error {
	targetType := c.QueryParam("targetType")
	targetID := c.QueryParam("targetId")
	if targetType == "" || targetID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "targetType and targetId are required")
	}

	ctx := c.Request().Context()
	if c.QueryParam("count") == "1" {
		count, err := h.commentRepository.CountCommentsByTarget(ctx, targetType, targetID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, echo.Map{"count": count})
	}

	comments, err := h.commentRepository.GetCommentsByTarget(ctx, targetType, targetID, listLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, comments)
}

// CreateComment adds a comment and notifies the post owner
func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.AccountID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "account mismatch")
	}

	comment := &models.Comment{
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		AccountID:  userID,
		Content:    truncate(req.Content, models.MaxCommentLength),
	}
	if err := h.commentRepository.CreateComment(c.Request().Context(), comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if comment.TargetType == models.TargetTypePost {
		if err := h.postRepository.IncrementCommentsCount(c.Request().Context(), comment.TargetID); err != nil {
			h.logger.Warnf("handlers: comments counter for post %s: %v", comment.TargetID, err)
		}
		h.producer.PostReaction(models.NotificationTypeComment, userID, comment.TargetID)
	}

	return c.JSON(http.StatusCreated, comment)
}
