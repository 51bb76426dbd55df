// Package publisher composes the lifecycle, repositories, storage and chain
// clients into the publishing use cases: drafting and submitting organizations and
// services, approver review, publishing metadata to storage, recording the
// registry transaction and applying what the chain reports back.
package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"github.com/singnet/snet-marketplace-service-sub000/internal/invitation"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"github.com/singnet/snet-marketplace-service-sub000/internal/notify"
	"github.com/singnet/snet-marketplace-service-sub000/internal/reconciler"
	"github.com/singnet/snet-marketplace-service-sub000/internal/repository"
	"github.com/singnet/snet-marketplace-service-sub000/internal/storage"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
)

// ContentStore publishes to and reads from the content-addressed store.
type ContentStore interface {
	Publish(ctx context.Context, path, provider string, archive bool) (string, error)
	PublishBytes(ctx context.Context, name string, data []byte, provider string) (string, error)
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// AssetDownloader fetches publisher uploads from object storage.
type AssetDownloader interface {
	Download(ctx context.Context, rawURL string) (file string, cleanup func(), err error)
}

type RatingUpdater interface {
	UpdateServiceRating(ctx context.Context, orgID, serviceID string, rating float64, totalRated int) error
}

type Deps struct {
	DB         *repository.Database
	Store      ContentStore
	Assets     AssetDownloader
	Ratings    RatingUpdater
	Members    *invitation.Workflow
	Reconciler *reconciler.Reconciler
	Notifier   notify.Sender
	Logger     *slog.Logger
	// Provider is where metadata and assets are published, ipfs when empty.
	Provider string
}

type Service struct {
	db         *repository.Database
	store      ContentStore
	assets     AssetDownloader
	ratings    RatingUpdater
	members    *invitation.Workflow
	reconciler *reconciler.Reconciler
	notifier   notify.Sender
	logger     *slog.Logger
	provider   string
}

func New(d Deps) *Service {
	provider := d.Provider
	if provider == "" {
		provider = storage.ProviderIPFS
	}
	return &Service{
		db:         d.DB,
		store:      d.Store,
		assets:     d.Assets,
		ratings:    d.Ratings,
		members:    d.Members,
		reconciler: d.Reconciler,
		notifier:   d.Notifier,
		logger:     d.Logger,
		provider:   provider,
	}
}

// Members exposes the invitation workflow of this service.
func (s *Service) Members() *invitation.Workflow {
	return s.members
}

// Reconcile runs one reconciliation pass over in-flight publish transactions.
func (s *Service) Reconcile(ctx context.Context) (*reconciler.Report, error) {
	return s.reconciler.Run(ctx)
}

// Review is an approver decision on a submitted organization or service.
type Review struct {
	Approver string
	Action   lifecycle.Action
	Comment  string
}

func (r Review) validate(op string) error {
	switch r.Action {
	case lifecycle.ActionApprove, lifecycle.ActionReject, lifecycle.ActionRequestChanges:
	default:
		return apperr.Validation(op, "unsupported review action %q", r.Action)
	}
	if r.Approver == "" {
		return apperr.Validation(op, "approver is required")
	}
	return nil
}

// AddComment records free text left by the provider or an approver.
func (s *Service) AddComment(ctx context.Context, c *models.Comment) error {
	if c.Text == "" {
		return apperr.Validation("add comment", "comment text is required")
	}
	if c.Role != models.CommentRoleProvider && c.Role != models.CommentRoleApprover {
		return apperr.Validation("add comment", "unknown comment role %q", c.Role)
	}
	return s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		if err := entityExists(ctx, uow, c.EntityKind, c); err != nil {
			return err
		}
		return uow.Comments.Add(ctx, c)
	})
}

func entityExists(ctx context.Context, uow *repository.UnitOfWork, kind lifecycle.Kind, c *models.Comment) error {
	switch kind {
	case lifecycle.KindOrganization:
		_, err := uow.Organizations.Get(ctx, c.EntityUUID)
		return err
	case lifecycle.KindService:
		_, err := uow.Services.Get(ctx, c.EntityUUID)
		return err
	default:
		return apperr.Validation("add comment", "comments are not supported on %q", kind)
	}
}

func (s *Service) notify(ctx context.Context, m notify.Message) {
	if err := s.notifier.Send(ctx, m); err != nil {
		s.logger.Warn("failed to send notification", "event", m.Event, "recipient", m.Recipient, "error", err)
	}
}

func reviewText(kind lifecycle.Kind, name string, status lifecycle.Status, comment string) string {
	text := fmt.Sprintf("Your %s %s is now %s.", kind, name, status)
	if comment != "" {
		text += " Comment: " + comment
	}
	return text
}

func notPublishable(op string, kind lifecycle.Kind, status lifecycle.Status) error {
	return apperr.Conflict(op, fmt.Errorf("%w: %s in %q cannot be published", lifecycle.ErrOperationNotAllowed, kind, status))
}

// ListComments returns the comments left on an organization or service, oldest first.
func (s *Service) ListComments(ctx context.Context, entityUUID uuid.UUID) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		comments, err = uow.Comments.List(ctx, entityUUID)
		return err
	})
	return comments, err
}
