package handlers

import (
	"log/slog"
	"net/http"

	"github.com/singnet/snet-marketplace-service-sub000/internal/api/dto"
	"github.com/singnet/snet-marketplace-service-sub000/internal/api/middleware"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"github.com/singnet/snet-marketplace-service-sub000/internal/publisher"
)

type ServiceHandler struct {
	publisher *publisher.Service
	logger    *slog.Logger
}

func NewServiceHandler(p *publisher.Service, logger *slog.Logger) *ServiceHandler {
	return &ServiceHandler{publisher: p, logger: logger}
}

// Create stores a new DRAFT service under the organization
func (h *ServiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgUUID, ok := urlUUID(w, r, "orgUUID")
	if !ok {
		return
	}
	var req dto.ServiceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	svc, err := h.publisher.CreateService(r.Context(), middleware.GetUsername(r.Context()), orgUUID, req.Input())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToServiceResponse(svc))
}

func (h *ServiceHandler) List(w http.ResponseWriter, r *http.Request) {
	org, ok := visibleOrganization(w, r, h.publisher, h.logger)
	if !ok {
		return
	}
	services, err := h.publisher.ListServices(r.Context(), org.UUID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: dto.ToServiceResponses(services), Total: len(services)})
}

// Availability reports whether ?service_id= is still free in the organization
func (h *ServiceHandler) Availability(w http.ResponseWriter, r *http.Request) {
	org, ok := visibleOrganization(w, r, h.publisher, h.logger)
	if !ok {
		return
	}
	serviceID := r.URL.Query().Get("service_id")
	available, err := h.publisher.IsServiceIDAvailable(r.Context(), org.UUID, serviceID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AvailabilityResponse{ServiceID: serviceID, Available: available})
}

func (h *ServiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.visible(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dto.ToServiceResponse(svc))
}

func (h *ServiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	orgUUID, ok := urlUUID(w, r, "orgUUID")
	if !ok {
		return
	}
	serviceUUID, ok := urlUUID(w, r, "serviceUUID")
	if !ok {
		return
	}
	var req dto.ServiceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	svc, err := h.publisher.SaveServiceDraft(r.Context(), middleware.GetUsername(r.Context()), orgUUID, serviceUUID, req.Input())
	h.respond(w, r, svc, err)
}

func (h *ServiceHandler) Submit(w http.ResponseWriter, r *http.Request) {
	orgUUID, ok := urlUUID(w, r, "orgUUID")
	if !ok {
		return
	}
	serviceUUID, ok := urlUUID(w, r, "serviceUUID")
	if !ok {
		return
	}
	svc, err := h.publisher.SubmitService(r.Context(), middleware.GetUsername(r.Context()), orgUUID, serviceUUID)
	h.respond(w, r, svc, err)
}

// Publish builds and uploads the service assets and metadata
func (h *ServiceHandler) Publish(w http.ResponseWriter, r *http.Request) {
	orgUUID, ok := urlUUID(w, r, "orgUUID")
	if !ok {
		return
	}
	serviceUUID, ok := urlUUID(w, r, "serviceUUID")
	if !ok {
		return
	}
	svc, err := h.publisher.PublishServiceToStorage(r.Context(), middleware.GetUsername(r.Context()), orgUUID, serviceUUID)
	h.respond(w, r, svc, err)
}

func (h *ServiceHandler) SaveTransaction(w http.ResponseWriter, r *http.Request) {
	orgUUID, ok := urlUUID(w, r, "orgUUID")
	if !ok {
		return
	}
	serviceUUID, ok := urlUUID(w, r, "serviceUUID")
	if !ok {
		return
	}
	var req dto.TransactionRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	svc, err := h.publisher.SaveServiceTransaction(r.Context(), middleware.GetUsername(r.Context()), orgUUID, serviceUUID, req.TransactionHash)
	h.respond(w, r, svc, err)
}

func (h *ServiceHandler) History(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.visible(w, r)
	if !ok {
		return
	}
	rows, err := h.publisher.ServiceHistory(r.Context(), svc.OrgUUID, svc.UUID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToServiceHistory(rows))
}

func (h *ServiceHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.visible(w, r)
	if !ok {
		return
	}
	comments, err := h.publisher.ListComments(r.Context(), svc.UUID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToCommentResponses(comments))
}

func (h *ServiceHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.visible(w, r)
	if !ok {
		return
	}
	var req dto.CommentRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	addComment(w, r, h.publisher, h.logger, svc.UUID, lifecycle.KindService, req.Comment)
}

func (h *ServiceHandler) visible(w http.ResponseWriter, r *http.Request) (*models.Service, bool) {
	org, ok := visibleOrganization(w, r, h.publisher, h.logger)
	if !ok {
		return nil, false
	}
	serviceUUID, ok := urlUUID(w, r, "serviceUUID")
	if !ok {
		return nil, false
	}
	svc, err := h.publisher.GetService(r.Context(), org.UUID, serviceUUID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return nil, false
	}
	return svc, true
}

func (h *ServiceHandler) respond(w http.ResponseWriter, r *http.Request, svc *models.Service, err error) {
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToServiceResponse(svc))
}
