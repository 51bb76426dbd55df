package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"gorm.io/gorm"
)

// Database hands out units of work. It holds no session state of its own.
type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// UnitOfWork groups the repositories bound to one database transaction. It is
// created by Database.Do and must not be retained after fn returns.
type UnitOfWork struct {
	Organizations *OrganizationRepository
	Services      *ServiceRepository
	Members       *MemberRepository
	Comments      *CommentRepository
}

func newUnitOfWork(tx *gorm.DB) *UnitOfWork {
	now := func() time.Time { return tx.NowFunc() }
	return &UnitOfWork{
		Organizations: &OrganizationRepository{Store: newStore[models.Organization](tx, lifecycle.Organization, now)},
		Services:      &ServiceRepository{Store: newStore[models.Service](tx, lifecycle.Service, now)},
		Members:       &MemberRepository{Store: newStore[models.OrganizationMember](tx, lifecycle.Member, now)},
		Comments:      &CommentRepository{tx: tx},
	}
}

// Do runs fn inside a transaction. Any error returned by fn rolls back every write
// fn made, history rows included.
func (d *Database) Do(ctx context.Context, fn func(uow *UnitOfWork) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newUnitOfWork(tx))
	})
}

func history[H any](ctx context.Context, tx *gorm.DB, column string, key any) ([]H, error) {
	var rows []H
	err := tx.WithContext(ctx).
		Where(column+" = ?", key).
		Order("archived_at, history_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return rows, nil
}

// archivedURI reports whether any archived version of the entity carried uri as
// its metadata URI.
func archivedURI(ctx context.Context, tx *gorm.DB, model any, key any, uri string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(model).
		Where("uuid = ? AND metadata_uri = ?", key, uri).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking published metadata: %w", err)
	}
	return count > 0, nil
}
