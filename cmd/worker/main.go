package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/singnet/snet-marketplace-service-sub000/internal/app"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database"
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

	logger.Info("starting publisher worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// The worker is the one place notifications leave the system
	sender := app.DirectNotifier(&cfg.Notify, logger)

	// Notifications raised while handling tasks go back through the queue so a
	// webhook outage retries them without replaying the task
	client := queue.NewClient(&cfg.Redis)
	defer client.Close()

	publisher, err := app.NewPublisher(ctx, cfg, db, tasks.NewEnqueuer(client), logger)
	if err != nil {
		logger.Error("failed to initialize publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, 10)

	// Create task handler
	handler := tasks.NewHandler(publisher.Service, sender, logger)

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Schedule the reconciliation pass
	var scheduler *asynq.Scheduler
	if cfg.Reconciler.Enabled {
		if err := util.ValidateCronExpr(cfg.Reconciler.Cron); err != nil {
			logger.Error("invalid reconciler schedule", "cron", cfg.Reconciler.Cron, "error", err)
			os.Exit(1)
		}
		scheduler = queue.NewScheduler(&cfg.Redis)
		entryID, err := scheduler.Register(cfg.Reconciler.Cron, tasks.NewReconcileTask(), asynq.Queue(queue.QueueDefault), asynq.MaxRetry(0))
		if err != nil {
			logger.Error("failed to register reconciler", "error", err)
			os.Exit(1)
		}
		if err := scheduler.Start(); err != nil {
			logger.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
		logger.Info("reconciler scheduled", "cron", cfg.Reconciler.Cron, "entry_id", entryID)
	}

	// Handle shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		if scheduler != nil {
			scheduler.Shutdown()
		}
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	// Start the server
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
		if scheduler != nil {
			scheduler.Shutdown()
		}
		cancel()
	}

	// Wait for context cancellation
	<-ctx.Done()

	// Close database connection
	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
