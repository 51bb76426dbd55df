package publisher

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"gorm.io/datatypes"
)

// OrganizationMetadata is the document published to storage and referenced by the
// registry contract for an organization.
type OrganizationMetadata struct {
	OrgName     string                `json:"org_name"`
	OrgID       string                `json:"org_id"`
	OrgType     models.OrgType        `json:"org_type"`
	Description OrgDescription        `json:"description"`
	Assets      map[string]string     `json:"assets"`
	Contacts    []models.Contact      `json:"contacts"`
	Groups      []OrganizationGroupMD `json:"groups"`
}

type OrgDescription struct {
	Description      string `json:"description"`
	ShortDescription string `json:"short_description"`
	URL              string `json:"url"`
}

type OrganizationGroupMD struct {
	GroupName      string         `json:"group_name"`
	GroupID        string         `json:"group_id"`
	PaymentAddress string         `json:"payment_address"`
	PaymentConfig  map[string]any `json:"payment_config"`
}

// ServiceMetadata is the document published to storage for a service.
type ServiceMetadata struct {
	Version       int                `json:"version"`
	DisplayName   string             `json:"display_name"`
	Encoding      string             `json:"encoding"`
	ServiceType   string             `json:"service_type"`
	ModelIPFSHash string             `json:"model_ipfs_hash"`
	Description   ServiceDescription `json:"service_description"`
	Groups        []ServiceGroupMD   `json:"groups"`
	Assets        map[string]string  `json:"assets"`
	Tags          []string           `json:"tags"`
}

type ServiceDescription struct {
	URL              string `json:"url"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
}

type ServiceGroupMD struct {
	GroupName      string              `json:"group_name"`
	GroupID        string              `json:"group_id"`
	FreeCalls      int                 `json:"free_calls"`
	FreeCallSigner string              `json:"free_call_signer_address"`
	DaemonAddress  []string            `json:"daemon_addresses"`
	Pricing        []models.PriceModel `json:"pricing"`
	Endpoints      []string            `json:"endpoints"`
}

const serviceMetadataVersion = 1

func organizationMetadata(org *models.Organization) OrganizationMetadata {
	md := OrganizationMetadata{
		OrgName: org.Name,
		OrgID:   org.OrgID,
		OrgType: org.Type,
		Description: OrgDescription{
			Description:      org.LongDescription,
			ShortDescription: org.ShortDescription,
			URL:              org.URL,
		},
		Assets:   map[string]string{},
		Contacts: nonNil(org.Contacts.Data()),
		Groups:   []OrganizationGroupMD{},
	}
	for name, a := range org.Assets.Data() {
		if a.IPFSHash != "" {
			md.Assets[name] = a.IPFSHash
		}
	}
	for _, g := range org.Groups.Data() {
		md.Groups = append(md.Groups, OrganizationGroupMD{
			GroupName:      g.Name,
			GroupID:        g.ID,
			PaymentAddress: g.PaymentAddress,
			PaymentConfig:  g.PaymentConfig,
		})
	}
	return md
}

// applyOrganizationMetadata copies what the chain published onto the live row.
func applyOrganizationMetadata(org *models.Organization, md OrganizationMetadata, uri string) {
	org.Name = md.OrgName
	if md.OrgType != "" {
		org.Type = md.OrgType
	}
	org.LongDescription = md.Description.Description
	org.ShortDescription = md.Description.ShortDescription
	org.URL = md.Description.URL
	org.Contacts = datatypes.NewJSONType(nonNil(md.Contacts))

	assets := org.Assets.Data()
	if assets == nil {
		assets = map[string]models.AssetRef{}
	}
	for name, hash := range md.Assets {
		a := assets[name]
		a.IPFSHash = hash
		assets[name] = a
	}
	org.Assets = datatypes.NewJSONType(assets)

	groups := make([]models.OrgGroup, 0, len(md.Groups))
	for _, g := range md.Groups {
		groups = append(groups, models.OrgGroup{
			ID:             g.GroupID,
			Name:           g.GroupName,
			PaymentAddress: g.PaymentAddress,
			PaymentConfig:  g.PaymentConfig,
		})
	}
	org.Groups = datatypes.NewJSONType(groups)
	org.MetadataURI = &uri
}

func serviceMetadata(svc *models.Service) ServiceMetadata {
	proto := svc.Proto.Data()
	assets := svc.Assets.Data()

	md := ServiceMetadata{
		Version:       serviceMetadataVersion,
		DisplayName:   svc.DisplayName,
		Encoding:      proto.Encoding,
		ServiceType:   proto.ServiceType,
		ModelIPFSHash: proto.ModelIPFSHash,
		Description: ServiceDescription{
			URL:              svc.ProjectURL,
			ShortDescription: svc.ShortDescription,
			Description:      svc.Description,
		},
		Groups: []ServiceGroupMD{},
		Assets: map[string]string{},
		Tags:   nonNil(svc.Tags.Data()),
	}
	for name, a := range map[string]models.AssetRef{
		"proto_files": assets.ProtoFiles,
		"demo_files":  assets.DemoFiles,
		"hero_image":  assets.HeroImage,
	} {
		if a.IPFSHash != "" {
			md.Assets[name] = a.IPFSHash
		}
	}
	for _, g := range svc.Groups.Data() {
		md.Groups = append(md.Groups, ServiceGroupMD{
			GroupName:      g.GroupName,
			GroupID:        g.GroupID,
			FreeCalls:      g.FreeCalls,
			FreeCallSigner: g.FreeCallSigner,
			DaemonAddress:  nonNil(g.DaemonAddress),
			Pricing:        nonNil(g.Pricing),
			Endpoints:      nonNil(g.Endpoints),
		})
	}
	return md
}

func applyServiceMetadata(svc *models.Service, md ServiceMetadata, uri string) {
	svc.DisplayName = md.DisplayName
	svc.ProjectURL = md.Description.URL
	svc.ShortDescription = md.Description.ShortDescription
	svc.Description = md.Description.Description
	svc.Proto = datatypes.NewJSONType(models.ProtoDescriptor{
		Encoding:      md.Encoding,
		ServiceType:   md.ServiceType,
		ModelIPFSHash: md.ModelIPFSHash,
	})
	svc.Tags = datatypes.NewJSONType(nonNil(md.Tags))

	assets := svc.Assets.Data()
	for name, ref := range map[string]*models.AssetRef{
		"proto_files": &assets.ProtoFiles,
		"demo_files":  &assets.DemoFiles,
		"hero_image":  &assets.HeroImage,
	} {
		if hash, ok := md.Assets[name]; ok {
			ref.IPFSHash = hash
		}
	}
	svc.Assets = datatypes.NewJSONType(assets)

	groups := make([]models.ServiceGroup, 0, len(md.Groups))
	for _, g := range md.Groups {
		groups = append(groups, models.ServiceGroup{
			GroupID:        g.GroupID,
			GroupName:      g.GroupName,
			Pricing:        g.Pricing,
			Endpoints:      g.Endpoints,
			FreeCalls:      g.FreeCalls,
			FreeCallSigner: g.FreeCallSigner,
			DaemonAddress:  g.DaemonAddress,
		})
	}
	svc.Groups = datatypes.NewJSONType(groups)
	svc.MetadataURI = &uri
}

// encodeMetadata renders md canonically: struct fields in declaration order and
// map keys sorted, so equal metadata always encodes to equal bytes.
func encodeMetadata(md any) ([]byte, error) {
	data, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	return data, nil
}

// sameMetadata reports whether the fetched document describes the same entity as
// the stored row, ignoring formatting and unknown fields.
func sameMetadata[M any](stored M, fetched []byte) (bool, M, error) {
	var decoded M
	if err := json.Unmarshal(fetched, &decoded); err != nil {
		return false, decoded, fmt.Errorf("decoding metadata: %w", err)
	}
	a, err := encodeMetadata(stored)
	if err != nil {
		return false, decoded, err
	}
	b, err := encodeMetadata(decoded)
	if err != nil {
		return false, decoded, err
	}
	return bytes.Equal(a, b), decoded, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
