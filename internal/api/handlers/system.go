package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/singnet/snet-marketplace-service-sub000/internal/api/dto"
	"github.com/singnet/snet-marketplace-service-sub000/internal/chain"
	"github.com/singnet/snet-marketplace-service-sub000/internal/publisher"
	"github.com/singnet/snet-marketplace-service-sub000/internal/tasks"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/queue"
)

// SystemHandler receives calls from other marketplace components: the registry
// event listener and the rating aggregator.
type SystemHandler struct {
	publisher   *publisher.Service
	asynqClient *asynq.Client
	logger      *slog.Logger
}

func NewSystemHandler(p *publisher.Service, asynqClient *asynq.Client, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{publisher: p, asynqClient: asynqClient, logger: logger}
}

// ChainEvent accepts one registry event. With a queue it is handed to the worker
// and acknowledged with 202; otherwise it is applied inline.
func (h *SystemHandler) ChainEvent(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	ev, err := chain.DecodeEvent(raw)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	if h.asynqClient != nil {
		// The same event delivered twice collapses into one task.
		taskID := strings.Join([]string{ev.TransactionHash, string(ev.Name), ev.OrgID, ev.ServiceID}, ":")
		_, err := h.asynqClient.EnqueueContext(r.Context(), tasks.NewChainEventTask(raw),
			asynq.Queue(queue.QueueCritical),
			asynq.TaskID(taskID),
			asynq.MaxRetry(10),
		)
		if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
			h.logger.Error("failed to enqueue chain event", "event", ev.Name, "tx_hash", ev.TransactionHash, "error", err)
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to enqueue chain event"})
			return
		}
		writeJSON(w, http.StatusAccepted, dto.SuccessResponse{Message: "Event queued"})
		return
	}

	if ev.IsServiceEvent() {
		svc, err := h.publisher.ApplyServiceEvent(r.Context(), ev)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.ToServiceResponse(svc))
		return
	}
	org, err := h.publisher.ApplyOrganizationEvent(r.Context(), ev)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToOrganizationResponse(org))
}

// UpdateRating forwards an aggregated service rating to the contract API
func (h *SystemHandler) UpdateRating(w http.ResponseWriter, r *http.Request) {
	var req dto.RatingRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := h.publisher.UpdateServiceRating(r.Context(), req.OrgID, req.ServiceID, req.Rating, req.TotalRated); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Rating updated"})
}
