package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
)

type MemberRepository struct {
	*Store[models.OrganizationMember, *models.OrganizationMember]
}

// ListByOrg returns the members of an organization, optionally narrowed to status.
func (r *MemberRepository) ListByOrg(ctx context.Context, orgUUID uuid.UUID, status lifecycle.Status) ([]models.OrganizationMember, error) {
	if status == lifecycle.StatusNone {
		return r.find(ctx, "org_uuid = ?", orgUUID)
	}
	return r.find(ctx, "org_uuid = ? AND status = ?", orgUUID, status)
}

// FindPendingInvite matches an invite code to the username it was issued for.
func (r *MemberRepository) FindPendingInvite(ctx context.Context, code, username string) (*models.OrganizationMember, error) {
	return r.first(ctx, code, "invite_code = ? AND username = ? AND status = ?", code, username, lifecycle.StatusPending)
}

func (r *MemberRepository) GetByUsername(ctx context.Context, orgUUID uuid.UUID, username string) (*models.OrganizationMember, error) {
	return r.first(ctx, username, "org_uuid = ? AND username = ?", orgUUID, username)
}

func (r *MemberRepository) History(ctx context.Context, code string) ([]models.OrganizationMemberHistory, error) {
	return history[models.OrganizationMemberHistory](ctx, r.tx, "invite_code", code)
}
