package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/anonto42/hexagon/backend/internal/handlers"
	"github.com/anonto42/hexagon/backend/internal/middleware"
	"github.com/anonto42/hexagon/backend/internal/models"
	"github.com/anonto42/hexagon/backend/internal/notifier"
	"github.com/anonto42/hexagon/backend/internal/push"
	"github.com/anonto42/hexagon/backend/internal/realtime"
	"github.com/anonto42/hexagon/backend/internal/repositories"
	"github.com/anonto42/hexagon/backend/pkg/log"
	"github.com/anonto42/hexagon/backend/pkg/token"
)

// Deps carries the long-lived services built in main.
type Deps struct {
	Postgres *gorm.DB
	Mongo    *mongo.Database

	Tokens   *token.Manager
	Registry *realtime.Registry
	Monitor  *notifier.Monitor
	Tasks    *notifier.Supervisor
	// Sender is nil when Firebase is not configured; pushes are then only logged.
	Sender push.MulticastSender

	WebSocket    realtime.Options
	Notification notifier.Config
	// MigrateAccounts creates the users table for local development. The
	// account service owns that schema everywhere else.
	MigrateAccounts bool
	Logger          log.Logger
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, logger log.Logger) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	e.Use(eMiddleware.RequestLoggerWithConfig(eMiddleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURIPath:  true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v eMiddleware.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Warnf("%s %s %d %s: %v", v.Method, v.URIPath, v.Status, v.Latency, v.Error)
				return nil
			}
			logger.Debugf("%s %s %d %s", v.Method, v.URIPath, v.Status, v.Latency)
			return nil
		},
	}))
	logger.Infof("Global middleware configured.")
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// SetupRoutes wires repositories, the notification pipeline and the HTTP surface.
func SetupRoutes(e *echo.Echo, deps Deps) error {
	logger := deps.Logger

	if deps.MigrateAccounts {
		if err := deps.Postgres.AutoMigrate(&models.User{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		logger.Infof("PostgreSQL auto-migrations completed.")
	}

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(deps.Postgres)
	postRepo := repositories.NewMongoPostRepository(deps.Mongo)
	commentRepo := repositories.NewMongoCommentRepository(deps.Mongo)
	likeRepo := repositories.NewMongoLikeRepository(deps.Mongo)
	followRepo := repositories.NewMongoFollowRepository(deps.Mongo)
	notificationRepo := repositories.NewMongoNotificationRepository(deps.Mongo)
	pushRepo := repositories.NewMongoPushSubscriptionRepository(deps.Mongo)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, r := range []indexer{postRepo, commentRepo, likeRepo, followRepo, notificationRepo, pushRepo} {
		if err := r.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
	}
	logger.Infof("MongoDB indexes ensured.")

	// --- Notification pipeline ---
	var pusher push.Dispatcher = push.NewLogDispatcher(logger)
	if deps.Sender != nil {
		pusher = push.NewFCMDispatcher(deps.Sender, pushRepo, logger)
	}
	notify := notifier.New(
		notificationRepo,
		realtime.NewBroadcaster(deps.Registry),
		pusher,
		deps.Tasks,
		deps.Monitor,
		deps.Notification,
		logger,
	)
	producer := handlers.NewProducer(notify, userRepo, postRepo, followRepo, logger)

	// Health check - always accessible
	health := handlers.NewHealthHandler(deps.Registry, deps.Monitor)
	e.GET("/health", health.HealthCheck)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "hexagon notifications"})
	})

	// Live channel authenticates its own handshake.
	gateway := realtime.NewGateway(deps.Registry, deps.Tokens, userRepo, notificationRepo, deps.WebSocket, logger)
	gateway.RegisterRoutes(e)
	logger.Infof("Websocket gateway configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(deps.Tokens))

	handlers.NewPostHandler(postRepo, producer).RegisterPostRoutes(api)
	handlers.NewFollowHandler(followRepo, producer).RegisterFollowRoutes(api)
	handlers.NewCommentHandler(commentRepo, postRepo, producer, logger).RegisterCommentRoutes(api)
	handlers.NewLikeHandler(likeRepo, postRepo, producer, logger).RegisterLikeRoutes(api)
	handlers.NewNotificationHandler(notificationRepo).RegisterNotificationRoutes(api)
	handlers.NewPushHandler(pushRepo).RegisterPushRoutes(api)

	logger.Infof("All routes configured.")
	return nil
}
