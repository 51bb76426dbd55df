package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the postgres pool and pings it until it answers or the configured
// number of attempts is used up.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.SSLMode == "disable" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying db: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, sqlDB.PingContext(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("database not ready", "error", err, "retry_in", next)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	log.Info("connected to database", "host", cfg.Host, "database", cfg.Name)

	return db, nil
}

// Models lists every table the publisher owns, live tables first.
func Models() []any {
	return []any{
		&models.Organization{},
		&models.OrganizationHistory{},
		&models.OrganizationMember{},
		&models.OrganizationMemberHistory{},
		&models.Service{},
		&models.ServiceHistory{},
		&models.Comment{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
