package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/singnet/snet-marketplace-service-sub000/internal/auth"
	"github.com/singnet/snet-marketplace-service-sub000/internal/chain"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"github.com/singnet/snet-marketplace-service-sub000/internal/reconciler"
	"github.com/singnet/snet-marketplace-service-sub000/internal/repository"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/config"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/util"
	"gorm.io/gorm"
)

// env is what every database backed command needs.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
}

func connect(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := util.NewLogger(cfg.Server.Env)
	db, err := database.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, db: db}, nil
}

func (e *env) close() {
	if sqlDB, err := e.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (e *env) reconciler(ctx context.Context) (*reconciler.Reconciler, func(), error) {
	eth, err := chain.Dial(ctx, e.cfg.Chain.RPCURL)
	if err != nil {
		return nil, nil, err
	}
	return reconciler.New(repository.NewDatabase(e.db), eth, e.logger), eth.Close, nil
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx context.Context) error {
	e, err := connect(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	if err := database.AutoMigrate(e.db); err != nil {
		return err
	}
	fmt.Printf("migrated %d tables\n", len(database.Models()))
	return nil
}

type ReconcileCmd struct{}

func (c *ReconcileCmd) Run(ctx context.Context) error {
	e, err := connect(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	r, closeChain, err := e.reconciler(ctx)
	if err != nil {
		return err
	}
	defer closeChain()

	report, err := r.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("checked=%d succeeded=%d failed=%d pending=%d\n",
		report.Checked, report.Succeeded, report.Failed, report.Pending)
	for _, err := range report.Errors {
		fmt.Printf("error: %v\n", err)
	}
	return nil
}

// FailTransactionCmd resolves a transaction that was never mined. The reconciler
// leaves those in flight indefinitely.
type FailTransactionCmd struct {
	Kind string `arg:"" enum:"organization,service,member" help:"Entity kind (organization, service, member)."`
	Key  string `arg:"" help:"Organization or service uuid, or member invite code."`
}

func (c *FailTransactionCmd) Run(ctx context.Context) error {
	e, err := connect(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	r, closeChain, err := e.reconciler(ctx)
	if err != nil {
		return err
	}
	defer closeChain()

	if err := r.FailTransaction(ctx, lifecycle.Kind(c.Kind), c.Key); err != nil {
		return err
	}
	fmt.Printf("%s %s marked %s\n", c.Kind, c.Key, lifecycle.StatusFailed)
	return nil
}

type ScheduleCmd struct {
	Count int `help:"Number of runs to show" default:"5"`
}

func (c *ScheduleCmd) Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.Reconciler.Enabled {
		fmt.Println("reconciler disabled")
		return nil
	}

	next := time.Now()
	for i := 0; i < c.Count; i++ {
		next, err = util.NextCronTime(cfg.Reconciler.Cron, next)
		if err != nil {
			return err
		}
		fmt.Println(next.Format(time.RFC3339))
	}
	return nil
}

type TokenCmd struct {
	Subject string        `help:"Username the token is issued to" required:""`
	Role    string        `help:"Caller role" enum:"system,approver,publisher" default:"system"`
	TTL     time.Duration `help:"Token lifetime" default:"24h"`
}

func (c *TokenCmd) Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token, err := auth.NewJWTService(cfg.JWT.Secret, c.TTL).GenerateToken(c.Subject, "", c.Role)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
