package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
)

type ServiceRepository struct {
	*Store[models.Service, *models.Service]
}

func (r *ServiceRepository) GetByServiceID(ctx context.Context, orgUUID uuid.UUID, serviceID string) (*models.Service, error) {
	return r.first(ctx, orgUUID.String()+"/"+serviceID, "org_uuid = ? AND service_id = ?", orgUUID, serviceID)
}

func (r *ServiceRepository) ListByOrg(ctx context.Context, orgUUID uuid.UUID) ([]models.Service, error) {
	return r.find(ctx, "org_uuid = ?", orgUUID)
}

// ServiceIDExists reports whether serviceID is taken within the organization.
func (r *ServiceRepository) ServiceIDExists(ctx context.Context, orgUUID uuid.UUID, serviceID string) (bool, error) {
	var count int64
	err := r.tx.WithContext(ctx).Model(&models.Service{}).
		Where("org_uuid = ? AND service_id = ?", orgUUID, serviceID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking service_id: %w", err)
	}
	return count > 0, nil
}

func (r *ServiceRepository) History(ctx context.Context, id uuid.UUID) ([]models.ServiceHistory, error) {
	return history[models.ServiceHistory](ctx, r.tx, "uuid", id)
}

// PublishedBefore reports whether uri is the service's current metadata URI or
// was at any archived point.
func (r *ServiceRepository) PublishedBefore(ctx context.Context, svc *models.Service, uri string) (bool, error) {
	if svc.MetadataURI != nil && *svc.MetadataURI == uri {
		return true, nil
	}
	return archivedURI(ctx, r.tx, &models.ServiceHistory{}, svc.UUID, uri)
}
