package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProtoDescriptor struct {
	Encoding      string `json:"encoding"`
	ServiceType   string `json:"service_type"`
	ModelIPFSHash string `json:"model_ipfs_hash"`
}

// Asset build statuses.
const (
	AssetStatusPending   = "PENDING"
	AssetStatusSucceeded = "SUCCEEDED"
	AssetStatusFailed    = "FAILED"
)

type ServiceAssets struct {
	ProtoFiles AssetRef `json:"proto_files"`
	DemoFiles  AssetRef `json:"demo_files"`
	HeroImage  AssetRef `json:"hero_image"`
}

type PriceModel struct {
	Default     bool   `json:"default"`
	PriceInCogs int64  `json:"price_in_cogs"`
	PriceModel  string `json:"price_model"`
}

type ServiceGroup struct {
	GroupID        string       `json:"group_id"`
	GroupName      string       `json:"group_name"`
	Pricing        []PriceModel `json:"pricing"`
	Endpoints      []string     `json:"endpoints"`
	FreeCalls      int          `json:"free_calls"`
	FreeCallSigner string       `json:"free_call_signer_address"`
	DaemonAddress  []string     `json:"daemon_addresses"`
}

type ServiceFields struct {
	DisplayName      string                             `gorm:"not null" json:"display_name"`
	ShortDescription string                             `json:"short_description"`
	Description      string                             `json:"description"`
	ProjectURL       string                             `json:"project_url"`
	Proto            datatypes.JSONType[ProtoDescriptor] `json:"proto"`
	Assets           datatypes.JSONType[ServiceAssets]   `json:"assets"`
	Groups           datatypes.JSONType[[]ServiceGroup]  `json:"groups"`
	Tags             datatypes.JSONType[[]string]        `json:"tags"`
	MetadataURI      *string                            `json:"metadata_uri,omitempty"`

	State
	Timestamps
}

type Service struct {
	UUID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"uuid"`
	OrgUUID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_services_org_service_id,priority:1" json:"org_uuid"`
	ServiceID string    `gorm:"not null;uniqueIndex:idx_services_org_service_id,priority:2" json:"service_id"`
	ServiceFields
}

func (Service) TableName() string {
	return "services"
}

func (s *Service) BeforeCreate(tx *gorm.DB) error {
	return beforeCreateUUID(tx, &s.UUID)
}

func (s *Service) KeyColumn() string { return "uuid" }
func (s *Service) KeyValue() any     { return s.UUID }

func (s *Service) Archive(at time.Time) any {
	return &ServiceHistory{
		UUID:          s.UUID,
		OrgUUID:       s.OrgUUID,
		ServiceID:     s.ServiceID,
		ServiceFields: s.ServiceFields,
		ArchivedAt:    at,
	}
}

type ServiceHistory struct {
	HistoryID uint      `gorm:"primaryKey;autoIncrement" json:"history_id"`
	UUID      uuid.UUID `gorm:"type:uuid;not null;index" json:"uuid"`
	OrgUUID   uuid.UUID `gorm:"type:uuid;not null;index" json:"org_uuid"`
	ServiceID string    `gorm:"not null" json:"service_id"`
	ServiceFields
	ArchivedAt time.Time `gorm:"not null;index" json:"archived_at"`
}

func (ServiceHistory) TableName() string {
	return "service_history"
}

func (h ServiceHistory) ArchivedStatus() lifecycle.Status { return h.Status }
func (h ServiceHistory) ArchivedTime() time.Time          { return h.ArchivedAt }
