package dto

import (
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
)

const maxCommentLength = 4000

// ReviewRequest is an approver's decision on a submitted organization or service.
type ReviewRequest struct {
	Action  string `json:"action"`
	Comment string `json:"comment"`
}

func (r ReviewRequest) Validate() map[string]string {
	errors := make(map[string]string)
	switch lifecycle.Action(r.Action) {
	case lifecycle.ActionApprove, lifecycle.ActionReject, lifecycle.ActionRequestChanges:
	default:
		errors["action"] = "Action must be APPROVE, REJECT or REQUEST_CHANGES"
	}
	if len(r.Comment) > maxCommentLength {
		errors["comment"] = "Comment is too long"
	}
	return errors
}

type CommentRequest struct {
	Comment string `json:"comment"`
}

func (r CommentRequest) Validate() map[string]string {
	errors := make(map[string]string)
	switch {
	case r.Comment == "":
		errors["comment"] = "Comment is required"
	case len(r.Comment) > maxCommentLength:
		errors["comment"] = "Comment is too long"
	}
	return errors
}

type CommentResponse struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Role      string `json:"role"`
	Comment   string `json:"comment"`
	CreatedAt string `json:"created_at"`
}

func ToCommentResponses(comments []models.Comment) []CommentResponse {
	out := make([]CommentResponse, len(comments))
	for i, c := range comments {
		out[i] = CommentResponse{
			ID:        c.ID.String(),
			Author:    c.Author,
			Role:      string(c.Role),
			Comment:   c.Text,
			CreatedAt: formatTime(c.CreatedAt),
		}
	}
	return out
}

// HistoryResponse is one archived version of an organization or service.
type HistoryResponse[T any] struct {
	Status     string `json:"status"`
	ArchivedAt string `json:"archived_at"`
	Snapshot   T      `json:"snapshot"`
}

func ToOrganizationHistory(rows []models.OrganizationHistory) []HistoryResponse[OrganizationResponse] {
	return toHistory(rows, func(h models.OrganizationHistory) OrganizationResponse {
		return ToOrganizationResponse(&models.Organization{UUID: h.UUID, OrgID: h.OrgID, OrganizationFields: h.OrganizationFields})
	})
}

func ToServiceHistory(rows []models.ServiceHistory) []HistoryResponse[ServiceResponse] {
	return toHistory(rows, func(h models.ServiceHistory) ServiceResponse {
		return ToServiceResponse(&models.Service{UUID: h.UUID, OrgUUID: h.OrgUUID, ServiceID: h.ServiceID, ServiceFields: h.ServiceFields})
	})
}

func toHistory[H models.HistoryEntry, T any](rows []H, snapshot func(H) T) []HistoryResponse[T] {
	out := make([]HistoryResponse[T], len(rows))
	for i, h := range rows {
		out[i] = HistoryResponse[T]{
			Status:     string(h.ArchivedStatus()),
			ArchivedAt: formatTime(h.ArchivedTime()),
			Snapshot:   snapshot(h),
		}
	}
	return out
}
