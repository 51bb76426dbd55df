// Package app wires the publisher service from configuration for the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/singnet/snet-marketplace-service-sub000/internal/chain"
	"github.com/singnet/snet-marketplace-service-sub000/internal/clients"
	"github.com/singnet/snet-marketplace-service-sub000/internal/invitation"
	"github.com/singnet/snet-marketplace-service-sub000/internal/notify"
	"github.com/singnet/snet-marketplace-service-sub000/internal/objectstore"
	"github.com/singnet/snet-marketplace-service-sub000/internal/publisher"
	"github.com/singnet/snet-marketplace-service-sub000/internal/reconciler"
	"github.com/singnet/snet-marketplace-service-sub000/internal/repository"
	"github.com/singnet/snet-marketplace-service-sub000/internal/storage"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/config"
	"gorm.io/gorm"
)

const slackTimeout = 10 * time.Second

// Publisher is a wired publisher service plus the connections it holds.
type Publisher struct {
	*publisher.Service
	chain *chain.EthClient
}

// NewPublisher connects the chain client and object store and builds the service.
// notifier receives invite and review notifications.
func NewPublisher(ctx context.Context, cfg *config.Config, db *gorm.DB, notifier notify.Sender, logger *slog.Logger) (*Publisher, error) {
	eth, err := chain.Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to chain: %w", err)
	}

	assets, err := objectstore.New(ctx, &cfg.AWS, cfg.Storage.TempDir)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("creating object store: %w", err)
	}

	rdb := repository.NewDatabase(db)
	svc := publisher.New(publisher.Deps{
		DB:         rdb,
		Store:      storage.NewFromConfig(&cfg.Storage),
		Assets:     assets,
		Ratings:    clients.NewContractAPI(cfg.ContractAPI.BaseURL, cfg.ContractAPI.Timeout()),
		Members:    invitation.New(rdb, notifier, logger),
		Reconciler: reconciler.New(rdb, eth, logger),
		Notifier:   notifier,
		Logger:     logger,
		Provider:   cfg.Storage.DefaultProvider,
	})

	return &Publisher{Service: svc, chain: eth}, nil
}

func (p *Publisher) Close() {
	p.chain.Close()
}

// DirectNotifier delivers notifications inline: to Slack when a webhook is
// configured, to the log otherwise.
func DirectNotifier(cfg *config.NotifyConfig, logger *slog.Logger) notify.Sender {
	if cfg.SlackWebhookURL == "" {
		return notify.NewLog(logger)
	}
	return notify.NewSlack(cfg.SlackWebhookURL, slackTimeout)
}
