package handler

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "b2b-tenancy/api/v1"
	"b2b-tenancy/internal/membership/domain"
	"b2b-tenancy/internal/membership/filter"
	"b2b-tenancy/internal/membership/service"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/platform/rbac"
	"b2b-tenancy/internal/tenancy"
)

// Server implements MembershipService for org membership, roles and ownership.
type Server struct {
	authz  rbac.Authorizer
	ledger *service.Ledger
}

var _ apiv1.MembershipServiceServer = (*Server)(nil)

// NewServer returns a new Membership gRPC server. If ledger is nil all RPCs return Unimplemented.
func NewServer(authz rbac.Authorizer, ledger *service.Ledger) *Server {
	return &Server{authz: authz, ledger: ledger}
}

func (s *Server) ready(method string) error {
	if s.ledger == nil || s.authz == nil {
		return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
	}
	return nil
}

// ListMembers returns one page of the organization's memberships.
func (s *Server) ListMembers(ctx context.Context, req *apiv1.ListMembersRequest) (*apiv1.ListMembersResponse, error) {
	if err := s.ready("ListMembers"); err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionMemberList)
	if err != nil {
		return nil, err
	}
	f, err := filter.Parse(req.Filter)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	page, next, err := s.ledger.ListPage(ctx, t.Org.ID, f, req.PageSize, req.PageToken)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	out := make([]apiv1.Membership, 0, len(page))
	for _, m := range page {
		out = append(out, MembershipToAPI(m))
	}
	return &apiv1.ListMembersResponse{Members: out, NextPageToken: next}, nil
}

// GetMember returns one membership of the organization.
func (s *Server) GetMember(ctx context.Context, req *apiv1.MemberRequest) (*apiv1.MemberResponse, error) {
	if err := s.ready("GetMember"); err != nil {
		return nil, err
	}
	id, err := membershipID(req.MembershipID)
	if err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionMemberRead)
	if err != nil {
		return nil, err
	}
	m, err := s.ledger.Get(ctx, t.Org.ID, id)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.MemberResponse{Member: MembershipToAPI(m)}, nil
}

// GetMyMembership returns the caller's own membership.
func (s *Server) GetMyMembership(ctx context.Context, req *apiv1.TenantRequest) (*apiv1.MemberResponse, error) {
	if err := s.ready("GetMyMembership"); err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionMemberRead)
	if err != nil {
		return nil, err
	}
	return &apiv1.MemberResponse{Member: MembershipToAPI(t.Membership)}, nil
}

// UpdateMember edits job title and department. Members edit their own; admins edit anyone's.
func (s *Server) UpdateMember(ctx context.Context, req *apiv1.UpdateMemberRequest) (*apiv1.MemberResponse, error) {
	if err := s.ready("UpdateMember"); err != nil {
		return nil, err
	}
	id, err := membershipID(req.MembershipID)
	if err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionMemberUpdate)
	if err != nil {
		return nil, err
	}
	m, err := s.ledger.UpdateProfile(ctx, t.Membership, id, service.ProfileUpdate{
		JobTitle:   req.JobTitle,
		Department: req.Department,
	})
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.MemberResponse{Member: MembershipToAPI(m)}, nil
}

// SetRole changes a member's role. Ownership moves only through TransferOwnership.
func (s *Server) SetRole(ctx context.Context, req *apiv1.SetRoleRequest) (*apiv1.MemberResponse, error) {
	if err := s.ready("SetRole"); err != nil {
		return nil, err
	}
	id, err := membershipID(req.MembershipID)
	if err != nil {
		return nil, err
	}
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown role %q", req.Role)
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionMemberSetRole)
	if err != nil {
		return nil, err
	}
	m, err := s.ledger.SetRole(ctx, t.Membership, id, role)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.MemberResponse{Member: MembershipToAPI(m)}, nil
}

// SetStatus suspends or reactivates a member.
func (s *Server) SetStatus(ctx context.Context, req *apiv1.SetStatusRequest) (*apiv1.MemberResponse, error) {
	if err := s.ready("SetStatus"); err != nil {
		return nil, err
	}
	id, err := membershipID(req.MembershipID)
	if err != nil {
		return nil, err
	}
	st, ok := domain.ParseStatus(req.Status)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown status %q", req.Status)
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionMemberSetStatus)
	if err != nil {
		return nil, err
	}
	m, err := s.ledger.SetStatus(ctx, t.Membership, id, st)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.MemberResponse{Member: MembershipToAPI(m)}, nil
}

// RemoveMember deletes a membership.
func (s *Server) RemoveMember(ctx context.Context, req *apiv1.MemberRequest) (*apiv1.Empty, error) {
	if err := s.ready("RemoveMember"); err != nil {
		return nil, err
	}
	id, err := membershipID(req.MembershipID)
	if err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionMemberRemove)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Remove(ctx, t.Membership, id); err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.Empty{}, nil
}

// LeaveOrganization removes the caller's own membership. The owner must transfer first.
func (s *Server) LeaveOrganization(ctx context.Context, req *apiv1.TenantRequest) (*apiv1.Empty, error) {
	if err := s.ready("LeaveOrganization"); err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionMemberLeave)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Leave(ctx, t.Membership); err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.Empty{}, nil
}

// TransferOwnership hands the owner role to another active member; the caller becomes admin.
func (s *Server) TransferOwnership(ctx context.Context, req *apiv1.TransferOwnershipRequest) (*apiv1.TransferOwnershipResponse, error) {
	if err := s.ready("TransferOwnership"); err != nil {
		return nil, err
	}
	id, err := membershipID(req.ToMembershipID)
	if err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionOwnershipXfer)
	if err != nil {
		return nil, err
	}
	from, to, err := s.ledger.TransferOwnership(ctx, t.Membership, id)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.TransferOwnershipResponse{
		PreviousOwner: MembershipToAPI(from),
		NewOwner:      MembershipToAPI(to),
	}, nil
}

func membershipID(s string) (string, error) {
	id := strings.TrimSpace(s)
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "membership_id required")
	}
	return id, nil
}

// MembershipToAPI converts a domain membership to its wire form.
func MembershipToAPI(m *domain.Membership) apiv1.Membership {
	if m == nil {
		return apiv1.Membership{}
	}
	return apiv1.Membership{
		ID:         m.ID,
		OrgID:      m.OrgID,
		UserID:     m.UserID,
		Role:       m.Role.String(),
		Status:     string(m.Status),
		JobTitle:   m.JobTitle,
		Department: m.Department,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
