package models

import (
	"github.com/google/uuid"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"gorm.io/gorm"
)

type CommentRole string

const (
	CommentRoleProvider CommentRole = "provider"
	CommentRoleApprover CommentRole = "approver"
)

// Comment is append-only free text left on an organization or service by the
// provider or an approver.
type Comment struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EntityUUID uuid.UUID      `gorm:"type:uuid;not null;index" json:"entity_uuid"`
	EntityKind lifecycle.Kind `gorm:"not null" json:"entity_kind"`
	Author     string         `gorm:"not null" json:"author"`
	Role       CommentRole    `gorm:"not null" json:"role"`
	Text       string         `gorm:"type:text;not null" json:"text"`
	Timestamps
}

func (Comment) TableName() string {
	return "comments"
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	return beforeCreateUUID(tx, &c.ID)
}
