package dto

import (
	"github.com/singnet/snet-marketplace-service-sub000/internal/api/validation"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
)

// maxInvites bounds a single invite request.
const maxInvites = 50

type InviteRequest struct {
	Usernames []string `json:"usernames"`
}

func (r InviteRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if len(r.Usernames) == 0 {
		errors["usernames"] = "At least one username is required"
	} else if len(r.Usernames) > maxInvites {
		errors["usernames"] = "Too many usernames"
	}
	for _, u := range r.Usernames {
		if !validation.IsValidUsername(u) {
			errors["usernames"] = "Invalid username"
			break
		}
	}
	return errors
}

type RegisterMemberRequest struct {
	InviteCode    string `json:"invite_code"`
	WalletAddress string `json:"wallet_address"`
}

func (r RegisterMemberRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.InviteCode == "" {
		errors["invite_code"] = "Invite code is required"
	}
	if !validation.IsValidWalletAddress(r.WalletAddress) {
		errors["wallet_address"] = "Invalid wallet address"
	}
	return errors
}

type VerifyInviteResponse struct {
	Result string `json:"result"`
}

type MemberResponse struct {
	OrgUUID         string `json:"org_uuid"`
	Username        string `json:"username"`
	Role            string `json:"role"`
	Address         string `json:"address,omitempty"`
	Status          string `json:"status"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	InvitedAt       string `json:"invited_at"`
	AcceptedAt      string `json:"accepted_at,omitempty"`
}

// ToMemberResponse leaves the invite code out; it is only delivered to the invitee.
func ToMemberResponse(m *models.OrganizationMember) MemberResponse {
	resp := MemberResponse{
		OrgUUID:   m.OrgUUID.String(),
		Username:  m.Username,
		Role:      string(m.Role),
		Status:    string(m.Status),
		InvitedAt: formatTime(m.InvitedAt),
	}
	if m.Address != nil {
		resp.Address = *m.Address
	}
	if m.TransactionHash != nil {
		resp.TransactionHash = *m.TransactionHash
	}
	if m.AcceptedAt != nil {
		resp.AcceptedAt = formatTime(*m.AcceptedAt)
	}
	return resp
}

func ToMemberResponses(members []models.OrganizationMember) []MemberResponse {
	out := make([]MemberResponse, len(members))
	for i := range members {
		out[i] = ToMemberResponse(&members[i])
	}
	return out
}
