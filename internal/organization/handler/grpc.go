package handler

import (
	"context"
	"slices"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "b2b-tenancy/api/v1"
	memberdomain "b2b-tenancy/internal/membership/domain"
	memberhandler "b2b-tenancy/internal/membership/handler"
	"b2b-tenancy/internal/organization/domain"
	"b2b-tenancy/internal/organization/service"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/platform/rbac"
	"b2b-tenancy/internal/tenancy"
)

// Server implements OrganizationService (org lifecycle and settings).
type Server struct {
	authz rbac.Authorizer
	orgs  *service.Service
}

var _ apiv1.OrganizationServiceServer = (*Server)(nil)

// NewServer returns a new Organization gRPC server. orgs may be nil; then all RPCs return Unimplemented.
func NewServer(authz rbac.Authorizer, orgs *service.Service) *Server {
	return &Server{authz: authz, orgs: orgs}
}

func (s *Server) ready(method string) error {
	if s.orgs == nil || s.authz == nil {
		return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
	}
	return nil
}

// CreateOrganization creates an organization owned by the caller.
func (s *Server) CreateOrganization(ctx context.Context, req *apiv1.CreateOrganizationRequest) (*apiv1.OrganizationResponse, error) {
	if err := s.ready("CreateOrganization"); err != nil {
		return nil, err
	}
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.orgs.Create(ctx, userID, service.CreateParams{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		LogoURL:     req.LogoURL,
		Website:     req.Website,
		Plan:        domain.Plan(req.Plan),
	})
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return membershipResponse(res.Org, res.Membership), nil
}

// GetOrganization returns the organization and the caller's membership in it.
func (s *Server) GetOrganization(ctx context.Context, req *apiv1.TenantRequest) (*apiv1.OrganizationResponse, error) {
	if err := s.ready("GetOrganization"); err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionOrgRead)
	if err != nil {
		return nil, err
	}
	return membershipResponse(t.Org, t.Membership), nil
}

// UpdateOrganization edits the organization's profile. Admin or owner.
func (s *Server) UpdateOrganization(ctx context.Context, req *apiv1.UpdateOrganizationRequest) (*apiv1.OrganizationResponse, error) {
	if err := s.ready("UpdateOrganization"); err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionOrgUpdate)
	if err != nil {
		return nil, err
	}
	org, err := s.orgs.Update(ctx, t.Membership, service.Update{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		LogoURL:     req.LogoURL,
		Website:     req.Website,
	})
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.OrganizationResponse{Organization: OrganizationToAPI(org)}, nil
}

// DeleteOrganization deletes the organization and everything in it. Owner only.
func (s *Server) DeleteOrganization(ctx context.Context, req *apiv1.TenantRequest) (*apiv1.Empty, error) {
	if err := s.ready("DeleteOrganization"); err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionOrgDelete)
	if err != nil {
		return nil, err
	}
	if err := s.orgs.Delete(ctx, t.Membership); err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.Empty{}, nil
}

// GetSettings returns the organization's settings. Admin or owner.
func (s *Server) GetSettings(ctx context.Context, req *apiv1.TenantRequest) (*apiv1.SettingsResponse, error) {
	if err := s.ready("GetSettings"); err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionOrgSettingsRead)
	if err != nil {
		return nil, err
	}
	return &apiv1.SettingsResponse{Settings: settingsToAPI(t.Org.Settings)}, nil
}

// UpdateSettings changes the fields that are set in the request.
func (s *Server) UpdateSettings(ctx context.Context, req *apiv1.UpdateSettingsRequest) (*apiv1.SettingsResponse, error) {
	if err := s.ready("UpdateSettings"); err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionOrgSettingsUpdate)
	if err != nil {
		return nil, err
	}
	settings, err := s.orgs.UpdateSettings(ctx, t.Membership, service.SettingsUpdate{
		AllowMemberInvites:  req.AllowMemberInvites,
		DefaultMemberRole:   req.DefaultMemberRole,
		Require2FA:          req.Require2FA,
		AllowedEmailDomains: req.AllowedEmailDomains,
	})
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.SettingsResponse{Settings: settingsToAPI(settings)}, nil
}

// ListMyOrganizations returns every organization the caller belongs to.
func (s *Server) ListMyOrganizations(ctx context.Context, _ *apiv1.Empty) (*apiv1.ListMyOrganizationsResponse, error) {
	if err := s.ready("ListMyOrganizations"); err != nil {
		return nil, err
	}
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.orgs.ListForUser(ctx, userID)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	out := make([]apiv1.OrganizationResponse, 0, len(list))
	for _, m := range list {
		out = append(out, *membershipResponse(m.Org, m.Membership))
	}
	return &apiv1.ListMyOrganizationsResponse{Organizations: out}, nil
}

func membershipResponse(org *domain.Org, m *memberdomain.Membership) *apiv1.OrganizationResponse {
	resp := &apiv1.OrganizationResponse{Organization: OrganizationToAPI(org)}
	if m != nil {
		wire := memberhandler.MembershipToAPI(m)
		resp.Membership = &wire
	}
	return resp
}

// OrganizationToAPI converts a domain organization to its wire form.
func OrganizationToAPI(o *domain.Org) apiv1.Organization {
	if o == nil {
		return apiv1.Organization{}
	}
	return apiv1.Organization{
		ID:          o.ID,
		Name:        o.Name,
		Slug:        o.Slug,
		Description: o.Description,
		LogoURL:     o.LogoURL,
		Website:     o.Website,
		Plan:        string(o.Plan),
		Settings:    settingsToAPI(o.Settings),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func settingsToAPI(s domain.Settings) apiv1.OrganizationSettings {
	domains := slices.Clone(s.AllowedEmailDomains)
	if domains == nil {
		domains = []string{}
	}
	return apiv1.OrganizationSettings{
		AllowMemberInvites:  s.AllowMemberInvites,
		DefaultMemberRole:   s.DefaultMemberRole,
		Require2FA:          s.Require2FA,
		AllowedEmailDomains: domains,
	}
}
