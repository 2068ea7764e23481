package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/hexagon/backend/internal/notifier"
	"github.com/anonto42/hexagon/backend/internal/push"
	"github.com/anonto42/hexagon/backend/internal/realtime"
	"github.com/anonto42/hexagon/backend/internal/router"
	"github.com/anonto42/hexagon/backend/pkg/config"
	"github.com/anonto42/hexagon/backend/pkg/firebase"
	"github.com/anonto42/hexagon/backend/pkg/log"
	"github.com/anonto42/hexagon/backend/pkg/token"
	"github.com/anonto42/hexagon/backend/validators"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Init(log.ZapConfig{}).Fatalf("Failed to load configuration: %v", err)
	}
	logger := log.Init(log.ZapConfig{
		Level:    cfg.Logger.Level,
		Mode:     cfg.Logger.Mode,
		Encoding: cfg.Logger.Encoding,
	})

	// Initialize database connections
	db, err := config.InitDB(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize databases: %v", err)
	}

	// run returns instead of exiting so the databases are always closed here.
	err = run(cfg, db, logger)
	db.CloseDB()
	if err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(cfg *config.Config, db *config.DB, logger log.Logger) error {
	// Firebase is optional; without it pushes are logged instead of sent.
	var sender push.MulticastSender
	if cfg.FirebaseCredentialsPath != "" {
		app, err := firebase.InitFirebase(context.Background(), cfg.FirebaseCredentialsPath)
		if err != nil {
			return fmt.Errorf("initialize firebase: %w", err)
		}
		sender = app.Messaging
	} else {
		logger.Warnf("FIREBASE_CREDENTIALS_PATH not set, push notifications disabled")
	}

	monitor := notifier.NewMonitor()
	registry := realtime.NewRegistry(logger)
	tasks := notifier.NewSupervisor(cfg.Notification.TaskTimeout, monitor, logger)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	router.SetupMiddleware(e, logger)
	err := router.SetupRoutes(e, router.Deps{
		Postgres: db.Postgres,
		Mongo:    db.Mongo.Database(cfg.MongoDatabase),
		Tokens:   token.NewManager(cfg.JWTSecret),
		Registry: registry,
		Monitor:  monitor,
		Tasks:    tasks,
		Sender:   sender,
		WebSocket: realtime.Options{
			PingInterval:    cfg.WebSocket.PingInterval,
			PongWait:        cfg.WebSocket.PongWait,
			WriteWait:       cfg.WebSocket.WriteWait,
			MaxMessageSize:  cfg.WebSocket.MaxMessageSize,
			SendBuffer:      cfg.WebSocket.SendBuffer,
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			SnapshotLimit:   cfg.Notification.SnapshotLimit,
			StoreTimeout:    cfg.Notification.StoreTimeout,
		},
		Notification: notifier.Config{
			PushTimeout:       cfg.Notification.PushTimeout,
			FanoutConcurrency: cfg.Notification.FanoutConcurrency,
		},
		MigrateAccounts: !cfg.IsProduction(),
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("set up routes: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("Server listening on :%s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var stopErr error
	select {
	case <-quit:
		logger.Infof("Shutting down")
	case stopErr = <-serveErr:
		logger.Errorf("Server stopped: %v", stopErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	drain(ctx, e, registry, tasks, logger)
	return stopErr
}

type httpServer interface {
	Shutdown(ctx context.Context) error
}

type liveConnections interface {
	CloseAll()
}

type taskRunner interface {
	Shutdown(ctx context.Context) error
}

// drain stops intake first, then live connections, then waits for
// in-flight deliveries. Every step runs even when an earlier one fails.
func drain(ctx context.Context, srv httpServer, live liveConnections, tasks taskRunner, logger log.Logger) {
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("HTTP shutdown: %v", err)
	}
	// Hijacked websocket connections are not tracked by the HTTP server.
	live.CloseAll()
	if err := tasks.Shutdown(ctx); err != nil {
		logger.Warnf("Delivery tasks abandoned: %v", err)
	}
}
