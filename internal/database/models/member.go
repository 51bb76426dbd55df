package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
)

type MemberRole string

const (
	RoleOwner  MemberRole = "OWNER"
	RoleMember MemberRole = "MEMBER"
)

type OrganizationMemberFields struct {
	OrgUUID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"org_uuid"`
	Username   string     `gorm:"not null;index" json:"username"`
	Role       MemberRole `gorm:"not null" json:"role"`
	Address    *string    `gorm:"index" json:"address,omitempty"`
	InvitedAt  time.Time  `json:"invited_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`

	State
	Timestamps
}

// OrganizationMember is keyed by its invite code. Owners get a generated code too
// so every member has the same identity shape.
type OrganizationMember struct {
	InviteCode string `gorm:"primaryKey" json:"invite_code"`
	OrganizationMemberFields
}

func (OrganizationMember) TableName() string {
	return "organization_members"
}

func (m *OrganizationMember) KeyColumn() string { return "invite_code" }
func (m *OrganizationMember) KeyValue() any     { return m.InviteCode }

func (m *OrganizationMember) Archive(at time.Time) any {
	return &OrganizationMemberHistory{
		InviteCode:               m.InviteCode,
		OrganizationMemberFields: m.OrganizationMemberFields,
		ArchivedAt:               at,
	}
}

type OrganizationMemberHistory struct {
	HistoryID  uint   `gorm:"primaryKey;autoIncrement" json:"history_id"`
	InviteCode string `gorm:"not null;index" json:"invite_code"`
	OrganizationMemberFields
	ArchivedAt time.Time `gorm:"not null;index" json:"archived_at"`
}

func (OrganizationMemberHistory) TableName() string {
	return "organization_member_history"
}

func (h OrganizationMemberHistory) ArchivedStatus() lifecycle.Status { return h.Status }
func (h OrganizationMemberHistory) ArchivedTime() time.Time          { return h.ArchivedAt }
