package handler

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "b2b-tenancy/api/v1"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/platform/rbac"
	"b2b-tenancy/internal/policy/domain"
	"b2b-tenancy/internal/policy/service"
	"b2b-tenancy/internal/tenancy"
)

// Server implements PolicyService: per-organization Rego policies that gate
// invitations. Admin or owner.
type Server struct {
	authz    rbac.Authorizer
	policies *service.Service
}

var _ apiv1.PolicyServiceServer = (*Server)(nil)

// NewServer returns a new Policy gRPC server. policies may be nil; then all RPCs return Unimplemented.
func NewServer(authz rbac.Authorizer, policies *service.Service) *Server {
	return &Server{authz: authz, policies: policies}
}

func (s *Server) ready(method string) error {
	if s.policies == nil || s.authz == nil {
		return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
	}
	return nil
}

func (s *Server) CreatePolicy(ctx context.Context, req *apiv1.CreatePolicyRequest) (*apiv1.PolicyResponse, error) {
	if err := s.ready("CreatePolicy"); err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionPolicyWrite)
	if err != nil {
		return nil, err
	}
	p, err := s.policies.Create(ctx, t.Org.ID, t.Membership.UserID, req.Name, req.Rules, req.Enabled)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.PolicyResponse{Policy: policyToAPI(p)}, nil
}

func (s *Server) GetPolicy(ctx context.Context, req *apiv1.PolicyRequest) (*apiv1.PolicyResponse, error) {
	if err := s.ready("GetPolicy"); err != nil {
		return nil, err
	}
	id, err := policyID(req.PolicyID)
	if err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionPolicyRead)
	if err != nil {
		return nil, err
	}
	p, err := s.policies.Get(ctx, t.Org.ID, id)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.PolicyResponse{Policy: policyToAPI(p)}, nil
}

func (s *Server) ListPolicies(ctx context.Context, req *apiv1.TenantRequest) (*apiv1.ListPoliciesResponse, error) {
	if err := s.ready("ListPolicies"); err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionPolicyRead)
	if err != nil {
		return nil, err
	}
	list, err := s.policies.List(ctx, t.Org.ID)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	out := make([]apiv1.Policy, 0, len(list))
	for _, p := range list {
		out = append(out, policyToAPI(p))
	}
	return &apiv1.ListPoliciesResponse{Policies: out}, nil
}

func (s *Server) UpdatePolicy(ctx context.Context, req *apiv1.UpdatePolicyRequest) (*apiv1.PolicyResponse, error) {
	if err := s.ready("UpdatePolicy"); err != nil {
		return nil, err
	}
	id, err := policyID(req.PolicyID)
	if err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionPolicyWrite)
	if err != nil {
		return nil, err
	}
	p, err := s.policies.Update(ctx, t.Org.ID, t.Membership.UserID, id, req.Name, req.Rules, req.Enabled)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.PolicyResponse{Policy: policyToAPI(p)}, nil
}

func (s *Server) DeletePolicy(ctx context.Context, req *apiv1.PolicyRequest) (*apiv1.Empty, error) {
	if err := s.ready("DeletePolicy"); err != nil {
		return nil, err
	}
	id, err := policyID(req.PolicyID)
	if err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionPolicyWrite)
	if err != nil {
		return nil, err
	}
	if err := s.policies.Delete(ctx, t.Org.ID, t.Membership.UserID, id); err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.Empty{}, nil
}

func policyID(s string) (string, error) {
	id := strings.TrimSpace(s)
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "policy_id required")
	}
	return id, nil
}

func policyToAPI(p *domain.Policy) apiv1.Policy {
	return apiv1.Policy{
		ID:        p.ID,
		OrgID:     p.OrgID,
		Name:      p.Name,
		Rules:     p.Rules,
		Enabled:   p.Enabled,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
