package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OrgType string

const (
	OrgTypeOrganization OrgType = "organization"
	OrgTypeIndividual   OrgType = "individual"
)

type Contact struct {
	ContactType string `json:"contact_type"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

type OrgGroup struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	PaymentAddress string         `json:"payment_address"`
	PaymentConfig  map[string]any `json:"payment_config"`
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

type Addresses struct {
	SameMailingAddress bool    `json:"mailing_address_same_as_headquarter_address"`
	Headquarters       Address `json:"headquarter_address"`
	Mailing            Address `json:"mailing_address"`
}

// OrganizationFields is everything a history row copies from the live row.
type OrganizationFields struct {
	Name             string                                  `gorm:"not null" json:"name"`
	Type             OrgType                                 `gorm:"not null" json:"type"`
	ShortDescription string                                  `json:"short_description"`
	LongDescription  string                                  `json:"long_description"`
	URL              string                                  `json:"url"`
	Contacts         datatypes.JSONType[[]Contact]           `json:"contacts"`
	Assets           datatypes.JSONType[map[string]AssetRef] `json:"assets"`
	Groups           datatypes.JSONType[[]OrgGroup]          `json:"groups"`
	Addresses        datatypes.JSONType[Addresses]           `json:"addresses"`
	MetadataURI      *string                                 `json:"metadata_uri,omitempty"`
	Owner            string                                  `gorm:"not null;index" json:"owner"`
	WalletAddress    string                                  `json:"wallet_address"`

	State
	Timestamps
}

type Organization struct {
	UUID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"uuid"`
	OrgID string    `gorm:"uniqueIndex;not null" json:"org_id"`
	OrganizationFields
}

func (Organization) TableName() string {
	return "organizations"
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	return beforeCreateUUID(tx, &o.UUID)
}

func (o *Organization) KeyColumn() string { return "uuid" }
func (o *Organization) KeyValue() any     { return o.UUID }

func (o *Organization) Archive(at time.Time) any {
	return &OrganizationHistory{
		UUID:               o.UUID,
		OrgID:              o.OrgID,
		OrganizationFields: o.OrganizationFields,
		ArchivedAt:         at,
	}
}

type OrganizationHistory struct {
	HistoryID uint      `gorm:"primaryKey;autoIncrement" json:"history_id"`
	UUID      uuid.UUID `gorm:"type:uuid;not null;index" json:"uuid"`
	OrgID     string    `gorm:"not null;index" json:"org_id"`
	OrganizationFields
	ArchivedAt time.Time `gorm:"not null;index" json:"archived_at"`
}

func (OrganizationHistory) TableName() string {
	return "organization_history"
}

func (h OrganizationHistory) ArchivedStatus() lifecycle.Status { return h.Status }
func (h OrganizationHistory) ArchivedTime() time.Time          { return h.ArchivedAt }
