package publisher

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/singnet/snet-marketplace-service-sub000/internal/chain"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"github.com/singnet/snet-marketplace-service-sub000/internal/invitation"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"github.com/singnet/snet-marketplace-service-sub000/internal/notify"
	"github.com/singnet/snet-marketplace-service-sub000/internal/repository"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
	"gorm.io/datatypes"
)

// identifierRegex matches org_id and service_id values the registry accepts.
var identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// OrganizationInput is the editable part of an organization.
type OrganizationInput struct {
	OrgID            string
	Name             string
	Type             models.OrgType
	ShortDescription string
	LongDescription  string
	URL              string
	Contacts         []models.Contact
	Assets           map[string]models.AssetRef
	Groups           []models.OrgGroup
	Addresses        models.Addresses
	WalletAddress    string
}

func (in OrganizationInput) validate(op string) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Validation(op, "name is required")
	}
	switch in.Type {
	case models.OrgTypeOrganization:
		if !identifierRegex.MatchString(in.OrgID) {
			return apperr.Validation(op, "invalid org_id %q", in.OrgID)
		}
	case models.OrgTypeIndividual:
	default:
		return apperr.Validation(op, "invalid organization type %q", in.Type)
	}
	if in.WalletAddress != "" && !common.IsHexAddress(in.WalletAddress) {
		return apperr.Validation(op, "invalid wallet address %q", in.WalletAddress)
	}
	for _, g := range in.Groups {
		if g.ID == "" || g.Name == "" {
			return apperr.Validation(op, "group id and name are required")
		}
		if !common.IsHexAddress(g.PaymentAddress) {
			return apperr.Validation(op, "invalid payment address %q for group %s", g.PaymentAddress, g.Name)
		}
	}
	return nil
}

func (in OrganizationInput) apply(org *models.Organization) {
	org.Name = strings.TrimSpace(in.Name)
	org.Type = in.Type
	org.ShortDescription = in.ShortDescription
	org.LongDescription = in.LongDescription
	org.URL = in.URL
	org.Contacts = datatypes.NewJSONType(nonNil(in.Contacts))
	assets := in.Assets
	if assets == nil {
		assets = map[string]models.AssetRef{}
	}
	org.Assets = datatypes.NewJSONType(assets)
	org.Groups = datatypes.NewJSONType(nonNil(in.Groups))
	org.Addresses = datatypes.NewJSONType(in.Addresses)
	if in.WalletAddress != "" {
		org.WalletAddress = common.HexToAddress(in.WalletAddress).Hex()
	}
}

// CreateOrganization persists a DRAFT organization owned by owner together with
// the owner's membership. Individual organizations use their uuid as org_id.
func (s *Service) CreateOrganization(ctx context.Context, owner string, in OrganizationInput) (*models.Organization, error) {
	const op = "create organization"
	if owner == "" {
		return nil, apperr.Validation(op, "owner is required")
	}
	if err := in.validate(op); err != nil {
		return nil, err
	}

	org := &models.Organization{UUID: uuid.New()}
	org.OrgID = in.OrgID
	if in.Type == models.OrgTypeIndividual {
		org.OrgID = org.UUID.String()
	}
	org.Owner = owner
	in.apply(org)

	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		taken, err := uow.Organizations.OrgIDExists(ctx, org.OrgID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Validation(op, "org_id %q is already taken", org.OrgID)
		}
		if err := uow.Organizations.Create(ctx, org, lifecycle.ActionCreate, nil); err != nil {
			return err
		}
		_, err = invitation.AddOwner(ctx, uow, org.UUID, owner, org.WalletAddress, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("organization created", "org_uuid", org.UUID, "org_id", org.OrgID, "owner", owner)
	return org, nil
}

// GetOrganization loads an organization by uuid.
func (s *Service) GetOrganization(ctx context.Context, orgUUID uuid.UUID) (*models.Organization, error) {
	var org *models.Organization
	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		org, err = uow.Organizations.Get(ctx, orgUUID)
		return err
	})
	return org, err
}

func (s *Service) ListOrganizations(ctx context.Context, f repository.OrganizationFilter) ([]models.Organization, error) {
	if f.Status != lifecycle.StatusNone && !lifecycle.Organization.Valid(f.Status) {
		return nil, apperr.Validation("list organizations", "unknown status %q", f.Status)
	}
	var orgs []models.Organization
	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		orgs, err = uow.Organizations.List(ctx, f)
		return err
	})
	return orgs, err
}

// OrganizationHistory returns the archived versions of an organization, oldest first.
func (s *Service) OrganizationHistory(ctx context.Context, orgUUID uuid.UUID) ([]models.OrganizationHistory, error) {
	var rows []models.OrganizationHistory
	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		if _, err := uow.Organizations.Get(ctx, orgUUID); err != nil {
			return err
		}
		var err error
		rows, err = uow.Organizations.History(ctx, orgUUID)
		return err
	})
	return rows, err
}

// ownedOrganization loads the organization and checks it belongs to owner. Other
// publishers get a not found error.
func ownedOrganization(ctx context.Context, uow *repository.UnitOfWork, orgUUID uuid.UUID, owner string) (*models.Organization, error) {
	org, err := uow.Organizations.Get(ctx, orgUUID)
	if err != nil {
		return nil, err
	}
	if org.Owner != owner {
		return nil, apperr.NotFound("get organization", "%s", orgUUID)
	}
	return org, nil
}

// SaveOrganizationDraft stores edits. The org_id cannot change once chosen.
func (s *Service) SaveOrganizationDraft(ctx context.Context, owner string, orgUUID uuid.UUID, in OrganizationInput) (*models.Organization, error) {
	const op = "save organization draft"
	if err := in.validate(op); err != nil {
		return nil, err
	}
	return s.transitionOrganization(ctx, owner, orgUUID, lifecycle.ActionSaveDraft, func(org *models.Organization) error {
		if in.Type == models.OrgTypeOrganization && in.OrgID != org.OrgID {
			return apperr.Validation(op, "org_id cannot be changed")
		}
		if in.Type != org.Type {
			return apperr.Validation(op, "organization type cannot be changed")
		}
		in.apply(org)
		// Edits invalidate the last published document; the next transaction
		// needs a fresh publish.
		org.MetadataURI = nil
		return nil
	})
}

// SubmitOrganization sends the organization for approval, or straight to APPROVED
// on the onboarding fast path.
func (s *Service) SubmitOrganization(ctx context.Context, owner string, orgUUID uuid.UUID) (*models.Organization, error) {
	org, err := s.transitionOrganization(ctx, owner, orgUUID, lifecycle.ActionSubmit, nil)
	if err != nil {
		return nil, err
	}
	if org.Status == lifecycle.StatusApprovalPending {
		s.notify(ctx, notify.Message{
			Event: notify.EventSubmittedForApproval,
			Text:  fmt.Sprintf("Organization %s (%s) was submitted for approval by %s.", org.Name, org.OrgID, owner),
		})
	}
	return org, nil
}

// OnboardOrganization submits a first organization through onboarding review.
func (s *Service) OnboardOrganization(ctx context.Context, owner string, orgUUID uuid.UUID) (*models.Organization, error) {
	org, err := s.transitionOrganization(ctx, owner, orgUUID, lifecycle.ActionOnboard, nil)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, notify.Message{
		Event: notify.EventSubmittedForApproval,
		Text:  fmt.Sprintf("Organization %s (%s) was submitted for onboarding by %s.", org.Name, org.OrgID, owner),
	})
	return org, nil
}

func (s *Service) transitionOrganization(
	ctx context.Context,
	owner string,
	orgUUID uuid.UUID,
	action lifecycle.Action,
	edit func(*models.Organization) error,
) (*models.Organization, error) {
	var org *models.Organization
	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		org, err = ownedOrganization(ctx, uow, orgUUID, owner)
		if err != nil {
			return err
		}
		oc, err := uow.Organizations.OnboardingContext(ctx, owner)
		if err != nil {
			return err
		}

		var editErr error
		err = uow.Organizations.Apply(ctx, org, repository.Change[*models.Organization]{
			Action:     action,
			Onboarding: &oc,
			Mutate: func(o *models.Organization) {
				if edit != nil {
					editErr = edit(o)
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

	s.logger.Info("organization transitioned", "org_uuid", orgUUID, "action", action, "status", org.Status)
	return org, nil
}

// ReviewOrganization applies an approver decision and records the comment.
func (s *Service) ReviewOrganization(ctx context.Context, orgUUID uuid.UUID, r Review) (*models.Organization, error) {
	const op = "review organization"
	if err := r.validate(op); err != nil {
		return nil, err
	}

	var org *models.Organization
	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		org, err = uow.Organizations.Transition(ctx, orgUUID, repository.Change[*models.Organization]{Action: r.Action})
		if err != nil {
			return err
		}
		if r.Comment == "" {
			return nil
		}
		return uow.Comments.Add(ctx, &models.Comment{
			EntityUUID: orgUUID,
			EntityKind: lifecycle.KindOrganization,
			Author:     r.Approver,
			Role:       models.CommentRoleApprover,
			Text:       r.Comment,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("organization reviewed", "org_uuid", orgUUID, "action", r.Action, "status", org.Status, "approver", r.Approver)
	s.notify(ctx, notify.Message{
		Event:     notify.EventReviewed,
		Recipient: org.Owner,
		Text:      reviewText(lifecycle.KindOrganization, org.Name, org.Status, r.Comment),
	})
	return org, nil
}

func (s *Service) ApproveOrganization(ctx context.Context, approver string, orgUUID uuid.UUID, comment string) (*models.Organization, error) {
	return s.ReviewOrganization(ctx, orgUUID, Review{Approver: approver, Action: lifecycle.ActionApprove, Comment: comment})
}

func (s *Service) RejectOrganization(ctx context.Context, approver string, orgUUID uuid.UUID, comment string) (*models.Organization, error) {
	return s.ReviewOrganization(ctx, orgUUID, Review{Approver: approver, Action: lifecycle.ActionReject, Comment: comment})
}

func (s *Service) RequestOrganizationChanges(ctx context.Context, approver string, orgUUID uuid.UUID, comment string) (*models.Organization, error) {
	return s.ReviewOrganization(ctx, orgUUID, Review{Approver: approver, Action: lifecycle.ActionRequestChanges, Comment: comment})
}

// PublishOrganizationToStorage republishes the organization's assets from object
// storage to the content store, then publishes its metadata document and records
// the metadata URI. Only an APPROVED organization can be published, and the
// status is left unchanged until the registry transaction is saved.
func (s *Service) PublishOrganizationToStorage(ctx context.Context, owner string, orgUUID uuid.UUID) (*models.Organization, error) {
	const op = "publish organization"

	org, err := s.loadPublishable(ctx, op, owner, orgUUID)
	if err != nil {
		return nil, err
	}

	assets := org.Assets.Data()
	for name, a := range assets {
		if a.URL == "" {
			continue
		}
		uri, err := s.publishAsset(ctx, a.URL, false)
		if err != nil {
			return nil, fmt.Errorf("publishing asset %s: %w", name, err)
		}
		a.IPFSHash = uri
		assets[name] = a
	}
	org.Assets = datatypes.NewJSONType(assets)

	doc, err := encodeMetadata(organizationMetadata(org))
	if err != nil {
		return nil, err
	}
	uri, err := s.store.PublishBytes(ctx, org.OrgID+"_org_metadata.json", doc, s.provider)
	if err != nil {
		return nil, err
	}

	err = s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		current, err := uow.Organizations.Get(ctx, orgUUID)
		if err != nil {
			return err
		}
		if !uow.Organizations.Policy().Permits(current.Status, lifecycle.ActionPublish) {
			return notPublishable(op, lifecycle.KindOrganization, current.Status)
		}
		org, err = uow.Organizations.Amend(ctx, orgUUID, func(o *models.Organization) {
			o.Assets = datatypes.NewJSONType(assets)
			o.MetadataURI = &uri
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("organization published to storage", "org_uuid", orgUUID, "metadata_uri", uri)
	return org, nil
}

func (s *Service) loadPublishable(ctx context.Context, op, owner string, orgUUID uuid.UUID) (*models.Organization, error) {
	var org *models.Organization
	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		org, err = ownedOrganization(ctx, uow, orgUUID, owner)
		if err != nil {
			return err
		}
		if !uow.Organizations.Policy().Permits(org.Status, lifecycle.ActionPublish) {
			return notPublishable(op, lifecycle.KindOrganization, org.Status)
		}
		return nil
	})
	return org, err
}

// publishAsset copies one object storage upload to the content store.
func (s *Service) publishAsset(ctx context.Context, url string, archive bool) (string, error) {
	file, cleanup, err := s.assets.Download(ctx, url)
	if err != nil {
		return "", err
	}
	defer cleanup()
	return s.store.Publish(ctx, file, s.provider, archive)
}

// SaveOrganizationTransaction records the registry transaction that publishes the
// organization's metadata URI and moves it to PUBLISH_IN_PROGRESS.
func (s *Service) SaveOrganizationTransaction(ctx context.Context, owner string, orgUUID uuid.UUID, txHash string) (*models.Organization, error) {
	const op = "save organization transaction"
	if !chain.ValidTxHash(txHash) {
		return nil, apperr.Validation(op, "malformed transaction hash %q", txHash)
	}

	var org *models.Organization
	err := s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		org, err = ownedOrganization(ctx, uow, orgUUID, owner)
		if err != nil {
			return err
		}
		if org.MetadataURI == nil && uow.Organizations.Policy().Permits(org.Status, lifecycle.ActionPublish) {
			return apperr.Validation(op, "organization has not been published to storage")
		}
		return uow.Organizations.Apply(ctx, org, repository.Change[*models.Organization]{
			Action: lifecycle.ActionPublish,
			TxHash: &txHash,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("organization publish in progress", "org_uuid", orgUUID, "tx_hash", txHash)
	return org, nil
}

// ApplyOrganizationEvent reconciles a registry event with the stored organization.
// The metadata behind the event's URI is compared with the stored draft: an
// organization waiting on its publish transaction that matches is confirmed as
// PUBLISHED. A URI the portal published earlier leaves the live row alone, since
// membership transactions re-emit the current URI. Anything else adopts the
// chain's version as PUBLISHED_UNAPPROVED. Organizations unknown to the portal
// are created the same way, with their on-chain owner. Members listed by the
// event, or published by its transaction, are confirmed in every case.
func (s *Service) ApplyOrganizationEvent(ctx context.Context, ev *chain.Event) (*models.Organization, error) {
	if ev.IsServiceEvent() {
		return nil, apperr.Validation("apply organization event", "unexpected %s event", ev.Name)
	}

	fetched, err := s.fetchMetadata(ctx, ev.MetadataURI)
	if err != nil {
		return nil, err
	}

	var org *models.Organization
	err = s.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		existing, err := uow.Organizations.GetByOrgID(ctx, ev.OrgID)
		if errors.Is(err, repository.ErrNotFound) {
			org, err = s.createOrganizationFromChain(ctx, uow, ev, fetched)
			return err
		}
		if err != nil {
			return err
		}
		org = existing

		if err := s.applyOrganizationMetadataEvent(ctx, uow, org, ev, fetched); err != nil {
			return err
		}
		confirmed, err := invitation.ConfirmOnChain(ctx, uow, org.UUID, ev.Members, ev.TransactionHash)
		if err != nil {
			return err
		}
		if confirmed > 0 {
			s.logger.Info("members published", "org_uuid", org.UUID, "count", confirmed, "tx_hash", ev.TransactionHash)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("organization event applied",
		"event", ev.Name,
		"org_id", ev.OrgID,
		"status", org.Status,
		"tx_hash", ev.TransactionHash,
	)
	return org, nil
}

func (s *Service) applyOrganizationMetadataEvent(ctx context.Context, uow *repository.UnitOfWork, org *models.Organization, ev *chain.Event, fetched []byte) error {
	same, md, err := sameMetadata(organizationMetadata(org), fetched)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "apply organization event", err)
	}

	switch {
	case same && org.Status == lifecycle.StatusPublishInProgress:
		if err := uow.Organizations.Apply(ctx, org, repository.Change[*models.Organization]{
			Action: lifecycle.ActionConfirmPublish,
			Mutate: func(o *models.Organization) { o.MetadataURI = &ev.MetadataURI },
		}); err != nil {
			return err
		}
		return invitation.ConfirmOwner(ctx, uow, org.UUID)
	case same && (org.Status == lifecycle.StatusPublished || org.Status == lifecycle.StatusPublishedUnapproved):
		return nil
	}

	known, err := uow.Organizations.PublishedBefore(ctx, org, ev.MetadataURI)
	if err != nil {
		return err
	}
	if known {
		s.logger.Debug("organization event carries a known metadata uri", "org_uuid", org.UUID, "status", org.Status)
		return nil
	}
	return uow.Organizations.Apply(ctx, org, repository.Change[*models.Organization]{
		Action: lifecycle.ActionSyncFromChain,
		Mutate: func(o *models.Organization) { applyOrganizationMetadata(o, md, ev.MetadataURI) },
	})
}

func (s *Service) createOrganizationFromChain(ctx context.Context, uow *repository.UnitOfWork, ev *chain.Event, fetched []byte) (*models.Organization, error) {
	_, md, err := sameMetadata(OrganizationMetadata{}, fetched)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "apply organization event", err)
	}

	org := &models.Organization{UUID: uuid.New(), OrgID: ev.OrgID}
	org.Type = models.OrgTypeOrganization
	applyOrganizationMetadata(org, md, ev.MetadataURI)
	org.Addresses = datatypes.NewJSONType(models.Addresses{})
	org.WalletAddress = ev.Owner

	if err := uow.Organizations.Create(ctx, org, lifecycle.ActionSyncFromChain, nil); err != nil {
		return nil, err
	}

	// No portal account owns an organization created outside the portal, so its
	// owner membership is keyed by the registry owner address.
	if ev.Owner == "" {
		s.logger.Warn("organization event carries no owner", "org_id", ev.OrgID, "tx_hash", ev.TransactionHash)
		return org, nil
	}
	if _, err := invitation.AddOwner(ctx, uow, org.UUID, ev.Owner, ev.Owner, true); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *Service) fetchMetadata(ctx context.Context, uri string) ([]byte, error) {
	if uri == "" {
		return nil, apperr.Validation("fetch metadata", "event carries no metadata uri")
	}
	return s.store.Fetch(ctx, uri)
}
