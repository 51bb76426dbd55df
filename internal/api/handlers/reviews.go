package handlers

import (
	"log/slog"
	"net/http"

	"github.com/singnet/snet-marketplace-service-sub000/internal/api/dto"
	"github.com/singnet/snet-marketplace-service-sub000/internal/api/middleware"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"github.com/singnet/snet-marketplace-service-sub000/internal/publisher"
	"github.com/singnet/snet-marketplace-service-sub000/internal/repository"
)

// ReviewHandler serves approvers. Routes are mounted behind RequireRole(approver).
type ReviewHandler struct {
	publisher *publisher.Service
	logger    *slog.Logger
}

func NewReviewHandler(p *publisher.Service, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{publisher: p, logger: logger}
}

// Queue lists organizations in ?status=, APPROVAL_PENDING by default
func (h *ReviewHandler) Queue(w http.ResponseWriter, r *http.Request) {
	status := lifecycle.Status(r.URL.Query().Get("status"))
	if status == lifecycle.StatusNone {
		status = lifecycle.StatusApprovalPending
	}
	orgs, err := h.publisher.ListOrganizations(r.Context(), repository.OrganizationFilter{Status: status})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: dto.ToOrganizationResponses(orgs), Total: len(orgs)})
}

func (h *ReviewHandler) ReviewOrganization(w http.ResponseWriter, r *http.Request) {
	orgUUID, ok := urlUUID(w, r, "orgUUID")
	if !ok {
		return
	}
	review, ok := h.decodeReview(w, r)
	if !ok {
		return
	}

	org, err := h.publisher.ReviewOrganization(r.Context(), orgUUID, review)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToOrganizationResponse(org))
}

func (h *ReviewHandler) ReviewService(w http.ResponseWriter, r *http.Request) {
	orgUUID, ok := urlUUID(w, r, "orgUUID")
	if !ok {
		return
	}
	serviceUUID, ok := urlUUID(w, r, "serviceUUID")
	if !ok {
		return
	}
	review, ok := h.decodeReview(w, r)
	if !ok {
		return
	}

	svc, err := h.publisher.ReviewService(r.Context(), orgUUID, serviceUUID, review)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToServiceResponse(svc))
}

func (h *ReviewHandler) decodeReview(w http.ResponseWriter, r *http.Request) (publisher.Review, bool) {
	var req dto.ReviewRequest
	if !decodeRequest(w, r, &req) {
		return publisher.Review{}, false
	}
	return publisher.Review{
		Approver: middleware.GetUsername(r.Context()),
		Action:   lifecycle.Action(req.Action),
		Comment:  req.Comment,
	}, true
}
