package dto

import (
	"time"

	"github.com/singnet/snet-marketplace-service-sub000/internal/api/validation"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

type ListResponse struct {
	Data  interface{} `json:"data"`
	Total int         `json:"total"`
}

// TransactionRequest reports the registry transaction a publisher broadcast.
type TransactionRequest struct {
	TransactionHash string `json:"transaction_hash"`
}

func (r TransactionRequest) Validate() map[string]string {
	errors := make(map[string]string)
	switch {
	case r.TransactionHash == "":
		errors["transaction_hash"] = "Transaction hash is required"
	case !validation.IsValidTxHash(r.TransactionHash):
		errors["transaction_hash"] = "Transaction hash must be 0x followed by 64 hex characters"
	}
	return errors
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
