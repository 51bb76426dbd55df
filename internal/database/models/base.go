package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"gorm.io/gorm"
)

// Timestamps is shared by live and history rows. History rows keep the values of
// the live row they were copied from.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State is the lifecycle status of a row plus the hash of the transaction that is
// in flight for it. TransactionHash is only set while Status is PUBLISH_IN_PROGRESS.
type State struct {
	Status          lifecycle.Status `gorm:"not null;index" json:"status"`
	TransactionHash *string          `gorm:"index" json:"transaction_hash,omitempty"`
}

func (s State) CurrentStatus() lifecycle.Status { return s.Status }
func (s State) CurrentTransactionHash() *string { return s.TransactionHash }

func (s *State) SetState(status lifecycle.Status, txHash *string) {
	s.Status = status
	s.TransactionHash = txHash
}

// AssetRef points at a publisher asset in object storage and, once published, in
// the content store.
type AssetRef struct {
	URL      string `json:"url"`
	IPFSHash string `json:"ipfs_hash"`
	Status   string `json:"status,omitempty"`
}

// HistoryEntry is implemented by every *_history row.
type HistoryEntry interface {
	ArchivedStatus() lifecycle.Status
	ArchivedTime() time.Time
}

// beforeCreateUUID is wired into the BeforeCreate hooks of uuid keyed rows.
func beforeCreateUUID(_ *gorm.DB, id *uuid.UUID) error {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	return nil
}
