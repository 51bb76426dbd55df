package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/singnet/snet-marketplace-service-sub000/internal/api/dto"
	"github.com/singnet/snet-marketplace-service-sub000/internal/api/middleware"
	"github.com/singnet/snet-marketplace-service-sub000/internal/auth"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
)

// maxBodyBytes bounds request bodies. Metadata documents are small; assets are
// uploaded to object storage, never through the API.
const maxBodyBytes = 1 << 20

type validatable interface {
	Validate() map[string]string
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeRequest reads and validates a JSON body, writing the 400 response itself
// when it returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, req validatable) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	if details := req.Validate(); len(details) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: details})
		return false
	}
	return true
}

// writeError maps a classified error to its status. Internal errors are logged
// and never echoed to the caller.
func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, dto.ErrorResponse{Error: "Internal server error"})
		return
	}

	msg := err.Error()
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Message != "" {
		msg = ae.Message
	}
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}

func urlUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}

func isApprover(r *http.Request) bool {
	return middleware.GetUserRole(r.Context()) == auth.RoleApprover
}
