package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/singnet/snet-marketplace-service-sub000/internal/api/dto"
	"github.com/singnet/snet-marketplace-service-sub000/internal/api/middleware"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"github.com/singnet/snet-marketplace-service-sub000/internal/invitation"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"github.com/singnet/snet-marketplace-service-sub000/internal/publisher"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
)

type MemberHandler struct {
	publisher *publisher.Service
	members   *invitation.Workflow
	logger    *slog.Logger
}

func NewMemberHandler(p *publisher.Service, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{publisher: p, members: p.Members(), logger: logger}
}

// Invite creates pending invitations and notifies the invitees
func (h *MemberHandler) Invite(w http.ResponseWriter, r *http.Request) {
	org, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req dto.InviteRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	invited, err := h.members.Invite(r.Context(), org.UUID, req.Usernames)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToMemberResponses(invited))
}

// List returns the organization's members, optionally filtered by ?status=
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	org, ok := visibleOrganization(w, r, h.publisher, h.logger)
	if !ok {
		return
	}
	members, err := h.members.ListMembers(r.Context(), org.UUID, lifecycle.Status(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: dto.ToMemberResponses(members), Total: len(members)})
}

// SaveTransaction records the transaction adding the accepted members on chain
func (h *MemberHandler) SaveTransaction(w http.ResponseWriter, r *http.Request) {
	org, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req dto.TransactionRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	published, err := h.members.PublishMembers(r.Context(), org.UUID, req.TransactionHash)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToMemberResponses(published))
}

// Verify checks an invite code against the caller without redeeming it
func (h *MemberHandler) Verify(w http.ResponseWriter, r *http.Request) {
	result, err := h.members.VerifyInvite(r.Context(), chi.URLParam(r, "code"), middleware.GetUsername(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.VerifyInviteResponse{Result: result})
}

// Register redeems an invite code with the caller's wallet address
func (h *MemberHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterMemberRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	member, err := h.members.RegisterMember(r.Context(), req.InviteCode, middleware.GetUsername(r.Context()), req.WalletAddress)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToMemberResponse(member))
}

// owned loads the organization in the URL and requires the caller to own it.
func (h *MemberHandler) owned(w http.ResponseWriter, r *http.Request) (*models.Organization, bool) {
	orgUUID, ok := urlUUID(w, r, "orgUUID")
	if !ok {
		return nil, false
	}
	org, err := h.publisher.GetOrganization(r.Context(), orgUUID)
	if err == nil && org.Owner != middleware.GetUsername(r.Context()) {
		err = apperr.NotFound("manage members", "organization %s not found", orgUUID)
	}
	if err != nil {
		writeError(w, h.logger, r, err)
		return nil, false
	}
	return org, true
}
