package dto

import (
	"github.com/singnet/snet-marketplace-service-sub000/internal/api/validation"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"github.com/singnet/snet-marketplace-service-sub000/internal/publisher"
)

type ServiceAssetsDTO struct {
	ProtoFiles AssetDTO `json:"proto_files"`
	DemoFiles  AssetDTO `json:"demo_files"`
	HeroImage  AssetDTO `json:"hero_image"`
}

type ServiceRequest struct {
	ServiceID        string                 `json:"service_id"`
	DisplayName      string                 `json:"display_name"`
	ShortDescription string                 `json:"short_description"`
	Description      string                 `json:"description"`
	ProjectURL       string                 `json:"project_url"`
	Proto            models.ProtoDescriptor `json:"proto"`
	Assets           ServiceAssetsDTO       `json:"assets"`
	Groups           []models.ServiceGroup  `json:"groups"`
	Tags             []string               `json:"tags"`
}

func (r ServiceRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.ServiceID == "" {
		errors["service_id"] = "Service ID is required"
	}
	if r.DisplayName == "" {
		errors["display_name"] = "Display name is required"
	}
	if r.ProjectURL != "" && !validation.IsValidWebURL(r.ProjectURL) {
		errors["project_url"] = "Invalid project URL"
	}
	assets := map[string]AssetDTO{
		"proto_files": r.Assets.ProtoFiles,
		"demo_files":  r.Assets.DemoFiles,
		"hero_image":  r.Assets.HeroImage,
	}
	for name, a := range assets {
		if a.URL != "" && !validation.IsValidAssetURL(a.URL) {
			errors["assets."+name] = "Invalid asset URL"
		}
	}
	for _, g := range r.Groups {
		if g.FreeCallSigner != "" && !validation.IsValidWalletAddress(g.FreeCallSigner) {
			errors["groups"] = "Invalid free call signer address"
		}
	}
	return errors
}

func (r ServiceRequest) Input() publisher.ServiceInput {
	return publisher.ServiceInput{
		ServiceID:        r.ServiceID,
		DisplayName:      validation.SanitizeString(r.DisplayName),
		ShortDescription: validation.SanitizeString(r.ShortDescription),
		Description:      validation.SanitizeString(r.Description),
		ProjectURL:       r.ProjectURL,
		Proto:            r.Proto,
		Assets: models.ServiceAssets{
			ProtoFiles: models.AssetRef{URL: r.Assets.ProtoFiles.URL},
			DemoFiles:  models.AssetRef{URL: r.Assets.DemoFiles.URL},
			HeroImage:  models.AssetRef{URL: r.Assets.HeroImage.URL},
		},
		Groups: r.Groups,
		Tags:   r.Tags,
	}
}

type ServiceResponse struct {
	UUID             string                 `json:"service_uuid"`
	OrgUUID          string                 `json:"org_uuid"`
	ServiceID        string                 `json:"service_id"`
	DisplayName      string                 `json:"display_name"`
	ShortDescription string                 `json:"short_description"`
	Description      string                 `json:"description"`
	ProjectURL       string                 `json:"project_url"`
	Proto            models.ProtoDescriptor `json:"proto"`
	Assets           ServiceAssetsDTO       `json:"assets"`
	Groups           []models.ServiceGroup  `json:"groups"`
	Tags             []string               `json:"tags"`
	MetadataURI      string                 `json:"metadata_uri,omitempty"`
	Status           string                 `json:"status"`
	TransactionHash  string                 `json:"transaction_hash,omitempty"`
	CreatedAt        string                 `json:"created_at"`
	UpdatedAt        string                 `json:"updated_at"`
}

func ToServiceResponse(s *models.Service) ServiceResponse {
	assets := s.Assets.Data()
	resp := ServiceResponse{
		UUID:             s.UUID.String(),
		OrgUUID:          s.OrgUUID.String(),
		ServiceID:        s.ServiceID,
		DisplayName:      s.DisplayName,
		ShortDescription: s.ShortDescription,
		Description:      s.Description,
		ProjectURL:       s.ProjectURL,
		Proto:            s.Proto.Data(),
		Assets: ServiceAssetsDTO{
			ProtoFiles: toAssetDTO(assets.ProtoFiles),
			DemoFiles:  toAssetDTO(assets.DemoFiles),
			HeroImage:  toAssetDTO(assets.HeroImage),
		},
		Groups:    s.Groups.Data(),
		Tags:      s.Tags.Data(),
		Status:    string(s.Status),
		CreatedAt: formatTime(s.CreatedAt),
		UpdatedAt: formatTime(s.UpdatedAt),
	}
	if s.MetadataURI != nil {
		resp.MetadataURI = *s.MetadataURI
	}
	if s.TransactionHash != nil {
		resp.TransactionHash = *s.TransactionHash
	}
	return resp
}

func ToServiceResponses(services []models.Service) []ServiceResponse {
	out := make([]ServiceResponse, len(services))
	for i := range services {
		out[i] = ToServiceResponse(&services[i])
	}
	return out
}

type AvailabilityResponse struct {
	ServiceID string `json:"service_id"`
	Available bool   `json:"available"`
}

// RatingRequest carries the aggregate rating computed by the marketplace.
type RatingRequest struct {
	OrgID      string  `json:"org_id"`
	ServiceID  string  `json:"service_id"`
	Rating     float64 `json:"rating"`
	TotalRated int     `json:"total_users_rated"`
}

func (r RatingRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.OrgID == "" {
		errors["org_id"] = "Organization ID is required"
	}
	if r.ServiceID == "" {
		errors["service_id"] = "Service ID is required"
	}
	if r.Rating < 0 || r.Rating > 5 {
		errors["rating"] = "Rating must be between 0 and 5"
	}
	if r.TotalRated < 0 {
		errors["total_users_rated"] = "Total users rated cannot be negative"
	}
	return errors
}
