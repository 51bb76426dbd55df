package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"gorm.io/gorm"
)

type OrganizationRepository struct {
	*Store[models.Organization, *models.Organization]
}

type OrganizationFilter struct {
	Owner  string
	Status lifecycle.Status
}

func (r *OrganizationRepository) GetByOrgID(ctx context.Context, orgID string) (*models.Organization, error) {
	return r.first(ctx, orgID, "org_id = ?", orgID)
}

func (r *OrganizationRepository) OrgIDExists(ctx context.Context, orgID string) (bool, error) {
	var count int64
	err := r.tx.WithContext(ctx).Model(&models.Organization{}).Where("org_id = ?", orgID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking org_id: %w", err)
	}
	return count > 0, nil
}

func (r *OrganizationRepository) List(ctx context.Context, f OrganizationFilter) ([]models.Organization, error) {
	q := r.tx.WithContext(ctx).Model(&models.Organization{})
	if f.Owner != "" {
		q = q.Where("owner = ?", f.Owner)
	}
	if f.Status != lifecycle.StatusNone {
		q = q.Where("status = ?", f.Status)
	}

	var orgs []models.Organization
	if err := q.Order("created_at").Find(&orgs).Error; err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	return orgs, nil
}

// History returns the archived versions of one organization, oldest first.
func (r *OrganizationRepository) History(ctx context.Context, id uuid.UUID) ([]models.OrganizationHistory, error) {
	return history[models.OrganizationHistory](ctx, r.tx, "uuid", id)
}

// PublishedBefore reports whether uri is the organization's current metadata URI
// or was at any archived point.
func (r *OrganizationRepository) PublishedBefore(ctx context.Context, org *models.Organization, uri string) (bool, error) {
	if org.MetadataURI != nil && *org.MetadataURI == uri {
		return true, nil
	}
	return archivedURI(ctx, r.tx, &models.OrganizationHistory{}, org.UUID, uri)
}

// OnboardingContext collects what the onboarding fast path needs to know about a
// publisher: whether any of their organizations was ever PUBLISHED, and the status
// their most recent review ended in.
func (r *OrganizationRepository) OnboardingContext(ctx context.Context, owner string) (lifecycle.OnboardingContext, error) {
	var oc lifecycle.OnboardingContext
	db := r.tx.WithContext(ctx)

	var live, archived int64
	if err := db.Model(&models.Organization{}).
		Where("owner = ? AND status = ?", owner, lifecycle.StatusPublished).
		Count(&live).Error; err != nil {
		return oc, fmt.Errorf("counting published organizations: %w", err)
	}
	if err := db.Model(&models.OrganizationHistory{}).
		Where("owner = ? AND status = ?", owner, lifecycle.StatusPublished).
		Count(&archived).Error; err != nil {
		return oc, fmt.Errorf("counting published organization history: %w", err)
	}
	oc.HasPublishedOrganization = live+archived > 0

	outcomes := reviewOutcomes()

	var (
		latest   lifecycle.Status
		latestAt time.Time
	)

	var org models.Organization
	err := db.Where("owner = ? AND status IN ?", owner, outcomes).Order("updated_at DESC").First(&org).Error
	switch {
	case err == nil:
		latest, latestAt = org.Status, org.UpdatedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return oc, fmt.Errorf("loading latest submission: %w", err)
	}

	var h models.OrganizationHistory
	err = db.Where("owner = ? AND status IN ?", owner, outcomes).
		Order("archived_at DESC, history_id DESC").First(&h).Error
	switch {
	case err == nil:
		if latest == lifecycle.StatusNone || h.ArchivedAt.After(latestAt) {
			latest = h.Status
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return oc, fmt.Errorf("loading latest archived submission: %w", err)
	}

	oc.LatestSubmission = latest
	return oc, nil
}

func reviewOutcomes() []lifecycle.Status {
	var out []lifecycle.Status
	for _, s := range lifecycle.Organization.Statuses() {
		if lifecycle.IsReviewOutcome(s) {
			out = append(out, s)
		}
	}
	return out
}
