package apiv1

import (
	"context"

	"google.golang.org/grpc"
)

const OrganizationServiceName = "tenancy.v1.OrganizationService"

type CreateOrganizationRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
	Website     string `json:"website,omitempty"`
	Plan        string `json:"plan,omitempty"`
}

type OrganizationResponse struct {
	Organization Organization `json:"organization"`
	Membership   *Membership  `json:"membership,omitempty"`
}

type TenantRequest struct {
	Tenant
}

type UpdateOrganizationRequest struct {
	Tenant
	Name        *string `json:"name,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
	LogoURL     *string `json:"logo_url,omitempty"`
	Website     *string `json:"website,omitempty"`
}

type SettingsResponse struct {
	Settings OrganizationSettings `json:"settings"`
}

type UpdateSettingsRequest struct {
	Tenant
	AllowMemberInvites  *bool     `json:"allow_member_invites,omitempty"`
	DefaultMemberRole   *string   `json:"default_member_role,omitempty"`
	Require2FA          *bool     `json:"require_2fa,omitempty"`
	AllowedEmailDomains *[]string `json:"allowed_email_domains,omitempty"`
}

type ListMyOrganizationsResponse struct {
	Organizations []OrganizationResponse `json:"organizations"`
}

type OrganizationServiceServer interface {
	CreateOrganization(context.Context, *CreateOrganizationRequest) (*OrganizationResponse, error)
	GetOrganization(context.Context, *TenantRequest) (*OrganizationResponse, error)
	UpdateOrganization(context.Context, *UpdateOrganizationRequest) (*OrganizationResponse, error)
	DeleteOrganization(context.Context, *TenantRequest) (*Empty, error)
	GetSettings(context.Context, *TenantRequest) (*SettingsResponse, error)
	UpdateSettings(context.Context, *UpdateSettingsRequest) (*SettingsResponse, error)
	ListMyOrganizations(context.Context, *Empty) (*ListMyOrganizationsResponse, error)
}

var OrganizationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: OrganizationServiceName,
	HandlerType: (*OrganizationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(OrganizationServiceName, "CreateOrganization", OrganizationServiceServer.CreateOrganization),
		unary(OrganizationServiceName, "GetOrganization", OrganizationServiceServer.GetOrganization),
		unary(OrganizationServiceName, "UpdateOrganization", OrganizationServiceServer.UpdateOrganization),
		unary(OrganizationServiceName, "DeleteOrganization", OrganizationServiceServer.DeleteOrganization),
		unary(OrganizationServiceName, "GetSettings", OrganizationServiceServer.GetSettings),
		unary(OrganizationServiceName, "UpdateSettings", OrganizationServiceServer.UpdateSettings),
		unary(OrganizationServiceName, "ListMyOrganizations", OrganizationServiceServer.ListMyOrganizations),
	},
	Metadata: "tenancy/v1/organization",
}

func RegisterOrganizationServiceServer(s grpc.ServiceRegistrar, srv OrganizationServiceServer) {
	s.RegisterService(&OrganizationService_ServiceDesc, srv)
}
