package dto

import (
	"github.com/singnet/snet-marketplace-service-sub000/internal/api/validation"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"github.com/singnet/snet-marketplace-service-sub000/internal/publisher"
)

type AssetDTO struct {
	URL      string `json:"url"`
	IPFSHash string `json:"ipfs_hash,omitempty"`
	Status   string `json:"status,omitempty"`
}

type OrganizationRequest struct {
	OrgID            string              `json:"org_id"`
	OrgName          string              `json:"org_name"`
	OrgType          string              `json:"org_type"`
	ShortDescription string              `json:"short_description"`
	LongDescription  string              `json:"long_description"`
	URL              string              `json:"url"`
	Contacts         []models.Contact    `json:"contacts"`
	Assets           map[string]AssetDTO `json:"assets"`
	Groups           []models.OrgGroup   `json:"groups"`
	Addresses        models.Addresses    `json:"org_address"`
	WalletAddress    string              `json:"wallet_address,omitempty"`
}

func (r OrganizationRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.OrgName == "" {
		errors["org_name"] = "Organization name is required"
	}
	switch models.OrgType(r.OrgType) {
	case models.OrgTypeOrganization:
		if r.OrgID == "" {
			errors["org_id"] = "Organization ID is required"
		}
	case models.OrgTypeIndividual:
	default:
		errors["org_type"] = "Organization type must be organization or individual"
	}
	if r.URL != "" && !validation.IsValidWebURL(r.URL) {
		errors["url"] = "Invalid URL"
	}
	if r.WalletAddress != "" && !validation.IsValidWalletAddress(r.WalletAddress) {
		errors["wallet_address"] = "Invalid wallet address"
	}
	for name, a := range r.Assets {
		if a.URL != "" && !validation.IsValidAssetURL(a.URL) {
			errors["assets."+name] = "Invalid asset URL"
		}
	}
	for _, c := range r.Contacts {
		if c.Email != "" && !validation.IsValidEmail(c.Email) {
			errors["contacts"] = "Invalid contact email"
		}
	}
	return errors
}

func (r OrganizationRequest) Input() publisher.OrganizationInput {
	assets := make(map[string]models.AssetRef, len(r.Assets))
	for name, a := range r.Assets {
		assets[name] = models.AssetRef{URL: a.URL}
	}
	return publisher.OrganizationInput{
		OrgID:            r.OrgID,
		Name:             validation.SanitizeString(r.OrgName),
		Type:             models.OrgType(r.OrgType),
		ShortDescription: validation.SanitizeString(r.ShortDescription),
		LongDescription:  validation.SanitizeString(r.LongDescription),
		URL:              r.URL,
		Contacts:         r.Contacts,
		Assets:           assets,
		Groups:           r.Groups,
		Addresses:        r.Addresses,
		WalletAddress:    r.WalletAddress,
	}
}

type OrganizationResponse struct {
	UUID             string              `json:"org_uuid"`
	OrgID            string              `json:"org_id"`
	OrgName          string              `json:"org_name"`
	OrgType          string              `json:"org_type"`
	ShortDescription string              `json:"short_description"`
	LongDescription  string              `json:"long_description"`
	URL              string              `json:"url"`
	Contacts         []models.Contact    `json:"contacts"`
	Assets           map[string]AssetDTO `json:"assets"`
	Groups           []models.OrgGroup   `json:"groups"`
	Addresses        models.Addresses    `json:"org_address"`
	MetadataURI      string              `json:"metadata_uri,omitempty"`
	Owner            string              `json:"owner"`
	WalletAddress    string              `json:"wallet_address,omitempty"`
	Status           string              `json:"status"`
	TransactionHash  string              `json:"transaction_hash,omitempty"`
	CreatedAt        string              `json:"created_at"`
	UpdatedAt        string              `json:"updated_at"`
}

func ToOrganizationResponse(o *models.Organization) OrganizationResponse {
	resp := OrganizationResponse{
		UUID:             o.UUID.String(),
		OrgID:            o.OrgID,
		OrgName:          o.Name,
		OrgType:          string(o.Type),
		ShortDescription: o.ShortDescription,
		LongDescription:  o.LongDescription,
		URL:              o.URL,
		Contacts:         o.Contacts.Data(),
		Assets:           make(map[string]AssetDTO),
		Groups:           o.Groups.Data(),
		Addresses:        o.Addresses.Data(),
		Owner:            o.Owner,
		WalletAddress:    o.WalletAddress,
		Status:           string(o.Status),
		CreatedAt:        formatTime(o.CreatedAt),
		UpdatedAt:        formatTime(o.UpdatedAt),
	}
	for name, a := range o.Assets.Data() {
		resp.Assets[name] = toAssetDTO(a)
	}
	if o.MetadataURI != nil {
		resp.MetadataURI = *o.MetadataURI
	}
	if o.TransactionHash != nil {
		resp.TransactionHash = *o.TransactionHash
	}
	return resp
}

func ToOrganizationResponses(orgs []models.Organization) []OrganizationResponse {
	out := make([]OrganizationResponse, len(orgs))
	for i := range orgs {
		out[i] = ToOrganizationResponse(&orgs[i])
	}
	return out
}

func toAssetDTO(a models.AssetRef) AssetDTO {
	return AssetDTO{URL: a.URL, IPFSHash: a.IPFSHash, Status: a.Status}
}
