package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/singnet/snet-marketplace-service-sub000/internal/api/dto"
	"github.com/singnet/snet-marketplace-service-sub000/internal/api/middleware"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"github.com/singnet/snet-marketplace-service-sub000/internal/publisher"
	"github.com/singnet/snet-marketplace-service-sub000/internal/repository"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
)

type OrganizationHandler struct {
	publisher *publisher.Service
	logger    *slog.Logger
}

func NewOrganizationHandler(p *publisher.Service, logger *slog.Logger) *OrganizationHandler {
	return &OrganizationHandler{publisher: p, logger: logger}
}

// Create stores a new DRAFT organization owned by the caller
func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.OrganizationRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	org, err := h.publisher.CreateOrganization(r.Context(), middleware.GetUsername(r.Context()), req.Input())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToOrganizationResponse(org))
}

// List returns the caller's organizations, optionally filtered by ?status=
func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.publisher.ListOrganizations(r.Context(), repository.OrganizationFilter{
		Owner:  middleware.GetUsername(r.Context()),
		Status: lifecycle.Status(r.URL.Query().Get("status")),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: dto.ToOrganizationResponses(orgs), Total: len(orgs)})
}

func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	org, ok := h.visible(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dto.ToOrganizationResponse(org))
}

// Update saves the body as the new draft
func (h *OrganizationHandler) Update(w http.ResponseWriter, r *http.Request) {
	orgUUID, ok := urlUUID(w, r, "orgUUID")
	if !ok {
		return
	}
	var req dto.OrganizationRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	org, err := h.publisher.SaveOrganizationDraft(r.Context(), middleware.GetUsername(r.Context()), orgUUID, req.Input())
	h.respond(w, r, org, err)
}

func (h *OrganizationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.ownerAction(w, r, h.publisher.SubmitOrganization)
}

func (h *OrganizationHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	h.ownerAction(w, r, h.publisher.OnboardOrganization)
}

// Publish pushes an APPROVED organization's metadata to the content store
func (h *OrganizationHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.ownerAction(w, r, h.publisher.PublishOrganizationToStorage)
}

// SaveTransaction records the registry transaction the publisher broadcast
func (h *OrganizationHandler) SaveTransaction(w http.ResponseWriter, r *http.Request) {
	orgUUID, ok := urlUUID(w, r, "orgUUID")
	if !ok {
		return
	}
	var req dto.TransactionRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	org, err := h.publisher.SaveOrganizationTransaction(r.Context(), middleware.GetUsername(r.Context()), orgUUID, req.TransactionHash)
	h.respond(w, r, org, err)
}

func (h *OrganizationHandler) History(w http.ResponseWriter, r *http.Request) {
	org, ok := h.visible(w, r)
	if !ok {
		return
	}
	rows, err := h.publisher.OrganizationHistory(r.Context(), org.UUID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToOrganizationHistory(rows))
}

func (h *OrganizationHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	org, ok := h.visible(w, r)
	if !ok {
		return
	}
	comments, err := h.publisher.ListComments(r.Context(), org.UUID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToCommentResponses(comments))
}

func (h *OrganizationHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	org, ok := h.visible(w, r)
	if !ok {
		return
	}
	var req dto.CommentRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	addComment(w, r, h.publisher, h.logger, org.UUID, lifecycle.KindOrganization, req.Comment)
}

func (h *OrganizationHandler) visible(w http.ResponseWriter, r *http.Request) (*models.Organization, bool) {
	return visibleOrganization(w, r, h.publisher, h.logger)
}

// visibleOrganization loads the organization named in the URL. Publishers only
// see their own organizations; approvers see all of them.
func visibleOrganization(w http.ResponseWriter, r *http.Request, p *publisher.Service, logger *slog.Logger) (*models.Organization, bool) {
	orgUUID, ok := urlUUID(w, r, "orgUUID")
	if !ok {
		return nil, false
	}
	org, err := p.GetOrganization(r.Context(), orgUUID)
	if err == nil && org.Owner != middleware.GetUsername(r.Context()) && !isApprover(r) {
		err = apperr.NotFound("get organization", "organization %s not found", orgUUID)
	}
	if err != nil {
		writeError(w, logger, r, err)
		return nil, false
	}
	return org, true
}

func (h *OrganizationHandler) ownerAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, owner string, orgUUID uuid.UUID) (*models.Organization, error),
) {
	orgUUID, ok := urlUUID(w, r, "orgUUID")
	if !ok {
		return
	}
	org, err := action(r.Context(), middleware.GetUsername(r.Context()), orgUUID)
	h.respond(w, r, org, err)
}

func (h *OrganizationHandler) respond(w http.ResponseWriter, r *http.Request, org *models.Organization, err error) {
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToOrganizationResponse(org))
}

func addComment(w http.ResponseWriter, r *http.Request, p *publisher.Service, logger *slog.Logger, entity uuid.UUID, kind lifecycle.Kind, text string) {
	role := models.CommentRoleProvider
	if isApprover(r) {
		role = models.CommentRoleApprover
	}
	c := &models.Comment{
		EntityUUID: entity,
		EntityKind: kind,
		Author:     middleware.GetUsername(r.Context()),
		Role:       role,
		Text:       text,
	}
	if err := p.AddComment(r.Context(), c); err != nil {
		writeError(w, logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToCommentResponses([]models.Comment{*c})[0])
}
