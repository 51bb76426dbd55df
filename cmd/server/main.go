package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/singnet/snet-marketplace-service-sub000/internal/api"
	"github.com/singnet/snet-marketplace-service-sub000/internal/api/middleware"
	"github.com/singnet/snet-marketplace-service-sub000/internal/app"
	"github.com/singnet/snet-marketplace-service-sub000/internal/auth"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database"
	"github.com/singnet/snet-marketplace-service-sub000/internal/notify"
	"github.com/singnet/snet-marketplace-service-sub000/internal/tasks"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/config"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/queue"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/util"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting publisher API",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	ctx := context.Background()

	// Connect to database
	db, err := database.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Schema changes run through publisherctl migrate in production
	if cfg.Server.IsDevelopment() {
		if err := database.AutoMigrate(db); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("failed to connect to Redis", "error", err)
		redisClient = nil
	}

	// Without a queue, notifications are delivered inline and chain events are
	// applied by the request that delivers them
	var (
		asynqClient *asynq.Client
		notifier    notify.Sender
	)
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
		notifier = tasks.NewEnqueuer(asynqClient)
	} else {
		notifier = app.DirectNotifier(&cfg.Notify, logger)
	}

	publisher, err := app.NewPublisher(ctx, cfg, db, notifier, logger)
	if err != nil {
		logger.Error("failed to initialize publisher", "error", err)
		os.Exit(1)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())

	publishLimiter := middleware.NewRateLimiter(cfg.Server.RateLimitRequests, cfg.Server.RateLimitWindow())
	go func() {
		for range time.Tick(5 * time.Minute) {
			publishLimiter.Prune()
		}
	}()

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		JWTService:     jwtService,
		Publisher:      publisher.Service,
		AsynqClient:    asynqClient,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		PublishLimiter: publishLimiter,
	})

	// Create HTTP server. Publishing uploads assets to the content store, so
	// writes get more time than reads.
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	publisher.Close()

	// Close Asynq client
	if asynqClient != nil {
		asynqClient.Close()
	}

	// Close Redis connection
	if redisClient != nil {
		redisClient.Close()
	}

	// Close database connection
	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
