package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/singnet/snet-marketplace-service-sub000/internal/chain"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"github.com/singnet/snet-marketplace-service-sub000/internal/notify"
	"github.com/singnet/snet-marketplace-service-sub000/internal/repository"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
	"gorm.io/datatypes"
)

// ServiceInput is the editable part of a service.
type ServiceInput struct {
	ServiceID        string
	DisplayName      string
	ShortDescription string
	Description      string
	ProjectURL       string
	Proto            models.ProtoDescriptor
	Assets           models.ServiceAssets
	Groups           []models.ServiceGroup
	Tags             []string
}

func (in ServiceInput) validate(op string) error {
	if !identifierRegex.MatchString(in.ServiceID) {
		return apperr.Validation(op, "invalid service_id %q", in.ServiceID)
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		return apperr.Validation(op, "display name is required")
	}
	for _, g := range in.Groups {
		if g.GroupID == "" {
			return apperr.Validation(op, "group id is required")
		}
		defaults := 0
		for _, p := range g.Pricing {
			if p.PriceInCogs < 0 {
				return apperr.Validation(op, "negative price in group %s", g.GroupName)
			}
			if p.Default {
				defaults++
			}
		}
		if len(g.Pricing) > 0 && defaults != 1 {
			return apperr.Validation(op, "group %s needs exactly one default price", g.GroupName)
		}
	}
	return nil
}

func (in ServiceInput) apply(svc *models.Service) {
	svc.DisplayName = strings.TrimSpace(in.DisplayName)
	svc.ShortDescription = in.ShortDescription
	svc.Description = in.Description
	svc.ProjectURL = in.ProjectURL
	svc.Proto = datatypes.NewJSONType(in.Proto)

	// Published hashes and build statuses survive edits of the upload URLs.
	assets := svc.Assets.Data()
	mergeAsset(&assets.ProtoFiles, in.Assets.ProtoFiles)
	mergeAsset(&assets.DemoFiles, in.Assets.DemoFiles)
	mergeAsset(&assets.HeroImage, in.Assets.HeroImage)
	svc.Assets = datatypes.NewJSONType(assets)

	svc.Groups = datatypes.NewJSONType(nonNil(in.Groups))
	svc.Tags = datatypes.NewJSONType(nonNil(in.Tags))
}

func mergeAsset(dst *models.AssetRef, in models.AssetRef) {
	if in.URL != dst.URL {
		*dst = models.AssetRef{URL: in.URL}
		if in.URL != "" {
			dst.Status = models.AssetStatusPending
		}
	}
}

func ownedService(ctx context.Context, uow *repository.UnitOfWork, orgUUID, serviceUUID uuid.UUID, owner string) (*models.Organization, *models.Service, error) {
	org, err := ownedOrganization(ctx, uow, orgUUID, owner)
	if err != nil {
		return nil, nil, err
	}
	svc, err := uow.Services.Get(ctx, serviceUUID)
	if err != nil {
		return nil, nil, err
	}
	if svc.OrgUUID != orgUUID {
		return nil, nil, apperr.NotFound("get service", "%s", serviceUUID)
	}
	return org, svc, nil
}

// CreateService persists a DRAFT service under an organization the caller owns.
func (s *Service) CreateService(ctx context.Context, owner string, orgUUID uuid.UUID, in ServiceInput) (*models.Service, error) {
	const op = "create service"
	if err := in.validate(op); err != nil {
		return nil, err
	}

	svc := &models.Service{UUID: uuid.New(), OrgUUID: orgUUID, ServiceID: in.ServiceID}
	in.apply(svc)

	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		if _, err := ownedOrganization(ctx, uow, orgUUID, owner); err != nil {
			return err
		}
		taken, err := uow.Services.ServiceIDExists(ctx, orgUUID, in.ServiceID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Validation(op, "service_id %q is already taken", in.ServiceID)
		}
		return uow.Services.Create(ctx, svc, lifecycle.ActionCreate, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("service created", "org_uuid", orgUUID, "service_uuid", svc.UUID, "service_id", svc.ServiceID)
	return svc, nil
}

// IsServiceIDAvailable reports whether serviceID is free within the organization.
func (s *Service) IsServiceIDAvailable(ctx context.Context, orgUUID uuid.UUID, serviceID string) (bool, error) {
	if !identifierRegex.MatchString(serviceID) {
		return false, nil
	}
	var taken bool
	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		if _, err := uow.Organizations.Get(ctx, orgUUID); err != nil {
			return err
		}
		var err error
		taken, err = uow.Services.ServiceIDExists(ctx, orgUUID, serviceID)
		return err
	})
	return !taken, err
}

func (s *Service) GetService(ctx context.Context, orgUUID, serviceUUID uuid.UUID) (*models.Service, error) {
	var svc *models.Service
	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		svc, err = uow.Services.Get(ctx, serviceUUID)
		if err != nil {
			return err
		}
		if svc.OrgUUID != orgUUID {
			return apperr.NotFound("get service", "%s", serviceUUID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Service) ListServices(ctx context.Context, orgUUID uuid.UUID) ([]models.Service, error) {
	var services []models.Service
	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		if _, err := uow.Organizations.Get(ctx, orgUUID); err != nil {
			return err
		}
		var err error
		services, err = uow.Services.ListByOrg(ctx, orgUUID)
		return err
	})
	return services, err
}

// ServiceHistory returns the archived versions of a service, oldest first.
func (s *Service) ServiceHistory(ctx context.Context, orgUUID, serviceUUID uuid.UUID) ([]models.ServiceHistory, error) {
	if _, err := s.GetService(ctx, orgUUID, serviceUUID); err != nil {
		return nil, err
	}
	var rows []models.ServiceHistory
	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		rows, err = uow.Services.History(ctx, serviceUUID)
		return err
	})
	return rows, err
}

func (s *Service) SaveServiceDraft(ctx context.Context, owner string, orgUUID, serviceUUID uuid.UUID, in ServiceInput) (*models.Service, error) {
	const op = "save service draft"
	if err := in.validate(op); err != nil {
		return nil, err
	}
	return s.transitionService(ctx, owner, orgUUID, serviceUUID, lifecycle.ActionSaveDraft, func(svc *models.Service) error {
		if in.ServiceID != svc.ServiceID {
			return apperr.Validation(op, "service_id cannot be changed")
		}
		in.apply(svc)
		svc.MetadataURI = nil
		return nil
	})
}

func (s *Service) SubmitService(ctx context.Context, owner string, orgUUID, serviceUUID uuid.UUID) (*models.Service, error) {
	svc, err := s.transitionService(ctx, owner, orgUUID, serviceUUID, lifecycle.ActionSubmit, nil)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, notify.Message{
		Event: notify.EventSubmittedForApproval,
		Text:  fmt.Sprintf("Service %s (%s) was submitted for approval by %s.", svc.DisplayName, svc.ServiceID, owner),
	})
	return svc, nil
}

func (s *Service) transitionService(
	ctx context.Context,
	owner string,
	orgUUID, serviceUUID uuid.UUID,
	action lifecycle.Action,
	edit func(*models.Service) error,
) (*models.Service, error) {
	var svc *models.Service
	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		_, svc, err = ownedService(ctx, uow, orgUUID, serviceUUID, owner)
		if err != nil {
			return err
		}

		var editErr error
		err = uow.Services.Apply(ctx, svc, repository.Change[*models.Service]{
			Action: action,
			Mutate: func(sv *models.Service) {
				if edit != nil {
					editErr = edit(sv)
				}
			},
		})
		if editErr != nil {
			return editErr
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("service transitioned", "service_uuid", serviceUUID, "action", action, "status", svc.Status)
	return svc, nil
}

// ReviewService applies an approver decision and records the comment.
func (s *Service) ReviewService(ctx context.Context, orgUUID, serviceUUID uuid.UUID, r Review) (*models.Service, error) {
	const op = "review service"
	if err := r.validate(op); err != nil {
		return nil, err
	}

	var (
		svc   *models.Service
		owner string
	)
	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		org, err := uow.Organizations.Get(ctx, orgUUID)
		if err != nil {
			return err
		}
		owner = org.Owner

		svc, err = uow.Services.Get(ctx, serviceUUID)
		if err != nil {
			return err
		}
		if svc.OrgUUID != orgUUID {
			return apperr.NotFound("get service", "%s", serviceUUID)
		}
		if err := uow.Services.Apply(ctx, svc, repository.Change[*models.Service]{Action: r.Action}); err != nil {
			return err
		}
		if r.Comment == "" {
			return nil
		}
		return uow.Comments.Add(ctx, &models.Comment{
			EntityUUID: serviceUUID,
			EntityKind: lifecycle.KindService,
			Author:     r.Approver,
			Role:       models.CommentRoleApprover,
			Text:       r.Comment,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("service reviewed", "service_uuid", serviceUUID, "action", r.Action, "status", svc.Status, "approver", r.Approver)
	s.notify(ctx, notify.Message{
		Event:     notify.EventReviewed,
		Recipient: owner,
		Text:      reviewText(lifecycle.KindService, svc.DisplayName, svc.Status, r.Comment),
	})
	return svc, nil
}

func (s *Service) ApproveService(ctx context.Context, approver string, orgUUID, serviceUUID uuid.UUID, comment string) (*models.Service, error) {
	return s.ReviewService(ctx, orgUUID, serviceUUID, Review{Approver: approver, Action: lifecycle.ActionApprove, Comment: comment})
}

func (s *Service) RejectService(ctx context.Context, approver string, orgUUID, serviceUUID uuid.UUID, comment string) (*models.Service, error) {
	return s.ReviewService(ctx, orgUUID, serviceUUID, Review{Approver: approver, Action: lifecycle.ActionReject, Comment: comment})
}

func (s *Service) RequestServiceChanges(ctx context.Context, approver string, orgUUID, serviceUUID uuid.UUID, comment string) (*models.Service, error) {
	return s.ReviewService(ctx, orgUUID, serviceUUID, Review{Approver: approver, Action: lifecycle.ActionRequestChanges, Comment: comment})
}

// PublishServiceToStorage publishes the service's proto and demo bundles as
// normalized archives, its hero image as is, and then its metadata document. The
// organization must already be on chain.
func (s *Service) PublishServiceToStorage(ctx context.Context, owner string, orgUUID, serviceUUID uuid.UUID) (*models.Service, error) {
	const op = "publish service"

	var (
		org *models.Organization
		svc *models.Service
	)
	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		org, svc, err = ownedService(ctx, uow, orgUUID, serviceUUID, owner)
		if err != nil {
			return err
		}
		return checkServicePublishable(op, uow, org, svc)
	})
	if err != nil {
		return nil, err
	}

	assets := svc.Assets.Data()
	for _, a := range []struct {
		name    string
		ref     *models.AssetRef
		archive bool
	}{
		{"proto_files", &assets.ProtoFiles, true},
		{"demo_files", &assets.DemoFiles, true},
		{"hero_image", &assets.HeroImage, false},
	} {
		if a.ref.URL == "" {
			continue
		}
		uri, err := s.publishAsset(ctx, a.ref.URL, a.archive)
		if err != nil {
			return nil, fmt.Errorf("publishing asset %s: %w", a.name, err)
		}
		a.ref.IPFSHash = uri
		a.ref.Status = models.AssetStatusSucceeded
	}
	if assets.ProtoFiles.IPFSHash == "" {
		return nil, apperr.Validation(op, "service has no proto files")
	}

	proto := svc.Proto.Data()
	proto.ModelIPFSHash = assets.ProtoFiles.IPFSHash
	svc.Proto = datatypes.NewJSONType(proto)
	svc.Assets = datatypes.NewJSONType(assets)

	doc, err := encodeMetadata(serviceMetadata(svc))
	if err != nil {
		return nil, err
	}
	uri, err := s.store.PublishBytes(ctx, svc.ServiceID+"_service_metadata.json", doc, s.provider)
	if err != nil {
		return nil, err
	}

	err = s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		current, err := uow.Services.Get(ctx, serviceUUID)
		if err != nil {
			return err
		}
		if err := checkServicePublishable(op, uow, org, current); err != nil {
			return err
		}
		svc, err = uow.Services.Amend(ctx, serviceUUID, func(sv *models.Service) {
			sv.Proto = datatypes.NewJSONType(proto)
			sv.Assets = datatypes.NewJSONType(assets)
			sv.MetadataURI = &uri
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("service published to storage", "service_uuid", serviceUUID, "metadata_uri", uri)
	return svc, nil
}

func checkServicePublishable(op string, uow *repository.UnitOfWork, org *models.Organization, svc *models.Service) error {
	if org.Status != lifecycle.StatusPublished && org.Status != lifecycle.StatusPublishedUnapproved {
		return apperr.Conflict(op, fmt.Errorf("%w: organization %s is not published", lifecycle.ErrOperationNotAllowed, org.OrgID))
	}
	if !uow.Services.Policy().Permits(svc.Status, lifecycle.ActionPublish) {
		return notPublishable(op, lifecycle.KindService, svc.Status)
	}
	return nil
}

// SaveServiceTransaction records the registry transaction for the service's
// metadata URI and moves it to PUBLISH_IN_PROGRESS.
func (s *Service) SaveServiceTransaction(ctx context.Context, owner string, orgUUID, serviceUUID uuid.UUID, txHash string) (*models.Service, error) {
	const op = "save service transaction"
	if !chain.ValidTxHash(txHash) {
		return nil, apperr.Validation(op, "malformed transaction hash %q", txHash)
	}

	var svc *models.Service
	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		var (
			org *models.Organization
			err error
		)
		org, svc, err = ownedService(ctx, uow, orgUUID, serviceUUID, owner)
		if err != nil {
			return err
		}
		if err := checkServicePublishable(op, uow, org, svc); err != nil {
			return err
		}
		if svc.MetadataURI == nil {
			return apperr.Validation(op, "service has not been published to storage")
		}
		return uow.Services.Apply(ctx, svc, repository.Change[*models.Service]{
			Action: lifecycle.ActionPublish,
			TxHash: &txHash,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("service publish in progress", "service_uuid", serviceUUID, "tx_hash", txHash)
	return svc, nil
}

// ApplyServiceEvent reconciles a registry service event with the stored service,
// the same way ApplyOrganizationEvent does for organizations. The organization
// must be known; the event is retried until it is.
func (s *Service) ApplyServiceEvent(ctx context.Context, ev *chain.Event) (*models.Service, error) {
	if !ev.IsServiceEvent() {
		return nil, apperr.Validation("apply service event", "unexpected %s event", ev.Name)
	}

	fetched, err := s.fetchMetadata(ctx, ev.MetadataURI)
	if err != nil {
		return nil, err
	}

	var svc *models.Service
	err = s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		org, err := uow.Organizations.GetByOrgID(ctx, ev.OrgID)
		if err != nil {
			return err
		}

		existing, err := uow.Services.GetByServiceID(ctx, org.UUID, ev.ServiceID)
		if errors.Is(err, repository.ErrNotFound) {
			_, md, err := sameMetadata(ServiceMetadata{}, fetched)
			if err != nil {
				return apperr.Wrap(apperr.KindValidation, "apply service event", err)
			}
			svc = &models.Service{UUID: uuid.New(), OrgUUID: org.UUID, ServiceID: ev.ServiceID}
			applyServiceMetadata(svc, md, ev.MetadataURI)
			return uow.Services.Create(ctx, svc, lifecycle.ActionSyncFromChain, nil)
		}
		if err != nil {
			return err
		}
		svc = existing

		same, md, err := sameMetadata(serviceMetadata(svc), fetched)
		if err != nil {
			return apperr.Wrap(apperr.KindValidation, "apply service event", err)
		}

		switch {
		case same && svc.Status == lifecycle.StatusPublishInProgress:
			return uow.Services.Apply(ctx, svc, repository.Change[*models.Service]{
				Action: lifecycle.ActionConfirmPublish,
				Mutate: func(sv *models.Service) { sv.MetadataURI = &ev.MetadataURI },
			})
		case same && (svc.Status == lifecycle.StatusPublished || svc.Status == lifecycle.StatusPublishedUnapproved):
			return nil
		}

		known, err := uow.Services.PublishedBefore(ctx, svc, ev.MetadataURI)
		if err != nil {
			return err
		}
		if known {
			return nil
		}
		return uow.Services.Apply(ctx, svc, repository.Change[*models.Service]{
			Action: lifecycle.ActionSyncFromChain,
			Mutate: func(sv *models.Service) { applyServiceMetadata(sv, md, ev.MetadataURI) },
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("service event applied",
		"event", ev.Name,
		"org_id", ev.OrgID,
		"service_id", ev.ServiceID,
		"status", svc.Status,
		"tx_hash", ev.TransactionHash,
	)
	return svc, nil
}

// UpdateServiceRating forwards the aggregated rating of a known service to the
// contract API.
func (s *Service) UpdateServiceRating(ctx context.Context, orgID, serviceID string, rating float64, totalRated int) error {
	const op = "update service rating"
	if rating < 0 || rating > 5 {
		return apperr.Validation(op, "rating %.2f out of range", rating)
	}
	if totalRated < 0 {
		return apperr.Validation(op, "negative rating count")
	}

	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		org, err := uow.Organizations.GetByOrgID(ctx, orgID)
		if err != nil {
			return err
		}
		_, err = uow.Services.GetByServiceID(ctx, org.UUID, serviceID)
		return err
	})
	if err != nil {
		return err
	}
	return s.ratings.UpdateServiceRating(ctx, orgID, serviceID, rating, totalRated)
}
