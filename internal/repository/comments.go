package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"gorm.io/gorm"
)

type CommentRepository struct {
	tx *gorm.DB
}

func (r *CommentRepository) Add(ctx context.Context, c *models.Comment) error {
	if err := r.tx.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("adding comment: %w", err)
	}
	return nil
}

// List returns the comments left on an entity, oldest first.
func (r *CommentRepository) List(ctx context.Context, entityUUID uuid.UUID) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.tx.WithContext(ctx).
		Where("entity_uuid = ?", entityUUID).
		Order("created_at").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	return comments, nil
}
