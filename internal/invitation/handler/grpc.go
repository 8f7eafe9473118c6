package handler

import (
	"context"
	"slices"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "b2b-tenancy/api/v1"
	"b2b-tenancy/internal/invitation/domain"
	"b2b-tenancy/internal/invitation/service"
	memberdomain "b2b-tenancy/internal/membership/domain"
	memberhandler "b2b-tenancy/internal/membership/handler"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/platform/rbac"
	"b2b-tenancy/internal/tenancy"
)

// Server implements InvitationService. Admin RPCs name a tenant; the token
// RPCs act for the invitee and need no tenant.
type Server struct {
	authz       rbac.Authorizer
	invitations *service.Service
}

var _ apiv1.InvitationServiceServer = (*Server)(nil)

// NewServer returns a new Invitation gRPC server. invitations may be nil; then all RPCs return Unimplemented.
func NewServer(authz rbac.Authorizer, invitations *service.Service) *Server {
	return &Server{authz: authz, invitations: invitations}
}

func (s *Server) ready(method string) error {
	if s.invitations == nil || s.authz == nil {
		return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
	}
	return nil
}

// CreateInvitation issues an invitation and returns its token once.
func (s *Server) CreateInvitation(ctx context.Context, req *apiv1.CreateInvitationRequest) (*apiv1.IssuedInvitationResponse, error) {
	if err := s.ready("CreateInvitation"); err != nil {
		return nil, err
	}
	role, ok := memberdomain.ParseRole(req.Role)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown role %q", req.Role)
	}
	if req.TTLSeconds < 0 {
		return nil, status.Error(codes.InvalidArgument, "ttl_seconds must not be negative")
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionInvitationCreate)
	if err != nil {
		return nil, err
	}
	issued, err := s.invitations.Create(ctx, t.Membership, service.CreateParams{
		Email:   req.Email,
		Role:    role,
		Message: req.Message,
		TeamIDs: req.TeamIDs,
		TTL:     time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.IssuedInvitationResponse{Invitation: InvitationToAPI(issued.Invitation), Token: issued.Token}, nil
}

// BulkCreateInvitations invites several addresses at once. Addresses that
// cannot be invited are reported in Failed; the call fails only for problems
// with the request as a whole.
func (s *Server) BulkCreateInvitations(ctx context.Context, req *apiv1.BulkCreateInvitationsRequest) (*apiv1.BulkCreateInvitationsResponse, error) {
	if err := s.ready("BulkCreateInvitations"); err != nil {
		return nil, err
	}
	role, ok := memberdomain.ParseRole(req.Role)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown role %q", req.Role)
	}
	if req.TTLSeconds < 0 {
		return nil, status.Error(codes.InvalidArgument, "ttl_seconds must not be negative")
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionInvitationCreate)
	if err != nil {
		return nil, err
	}
	res, err := s.invitations.BulkCreate(ctx, t.Membership, service.BulkCreateParams{
		Emails:  req.Emails,
		Role:    role,
		Message: req.Message,
		TeamIDs: req.TeamIDs,
		TTL:     time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	out := &apiv1.BulkCreateInvitationsResponse{
		Sent:   make([]apiv1.IssuedInvitationResponse, 0, len(res.Sent)),
		Failed: make([]apiv1.BulkInvitationFailure, 0, len(res.Failed)),
	}
	for _, issued := range res.Sent {
		out.Sent = append(out.Sent, apiv1.IssuedInvitationResponse{Invitation: InvitationToAPI(issued.Invitation), Token: issued.Token})
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, apiv1.BulkInvitationFailure{
			Email:   f.Email,
			Reason:  errs.Reason(errs.KindOf(f.Err)),
			Message: f.Err.Error(),
		})
	}
	return out, nil
}

func (s *Server) GetInvitation(ctx context.Context, req *apiv1.InvitationRequest) (*apiv1.InvitationResponse, error) {
	if err := s.ready("GetInvitation"); err != nil {
		return nil, err
	}
	id, err := invitationID(req.InvitationID)
	if err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionInvitationRead)
	if err != nil {
		return nil, err
	}
	inv, err := s.invitations.Get(ctx, t.Org.ID, id)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.InvitationResponse{Invitation: InvitationToAPI(inv)}, nil
}

func (s *Server) ListInvitations(ctx context.Context, req *apiv1.ListInvitationsRequest) (*apiv1.ListInvitationsResponse, error) {
	if err := s.ready("ListInvitations"); err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionInvitationList)
	if err != nil {
		return nil, err
	}
	list, err := s.invitations.ListByOrg(ctx, t.Org.ID, domain.Status(strings.TrimSpace(req.Status)))
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.ListInvitationsResponse{Invitations: invitationsToAPI(list)}, nil
}

func (s *Server) CancelInvitation(ctx context.Context, req *apiv1.InvitationRequest) (*apiv1.InvitationResponse, error) {
	if err := s.ready("CancelInvitation"); err != nil {
		return nil, err
	}
	id, err := invitationID(req.InvitationID)
	if err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionInvitationCancel)
	if err != nil {
		return nil, err
	}
	inv, err := s.invitations.Cancel(ctx, t.Membership, id)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.InvitationResponse{Invitation: InvitationToAPI(inv)}, nil
}

// ResendInvitation rotates the token of a pending invitation; the old token stops working.
func (s *Server) ResendInvitation(ctx context.Context, req *apiv1.InvitationRequest) (*apiv1.IssuedInvitationResponse, error) {
	if err := s.ready("ResendInvitation"); err != nil {
		return nil, err
	}
	id, err := invitationID(req.InvitationID)
	if err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionInvitationResend)
	if err != nil {
		return nil, err
	}
	issued, err := s.invitations.Resend(ctx, t.Membership, id)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.IssuedInvitationResponse{Invitation: InvitationToAPI(issued.Invitation), Token: issued.Token}, nil
}

// LookupInvitation shows what a token invites to. The token is the credential.
func (s *Server) LookupInvitation(ctx context.Context, req *apiv1.TokenRequest) (*apiv1.InvitationResponse, error) {
	if err := s.ready("LookupInvitation"); err != nil {
		return nil, err
	}
	token, err := inviteToken(req.Token)
	if err != nil {
		return nil, err
	}
	inv, err := s.invitations.Lookup(ctx, token)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.InvitationResponse{Invitation: InvitationToAPI(inv)}, nil
}

// AcceptInvitation redeems a token for the caller and returns the new membership.
func (s *Server) AcceptInvitation(ctx context.Context, req *apiv1.TokenRequest) (*apiv1.AcceptInvitationResponse, error) {
	if err := s.ready("AcceptInvitation"); err != nil {
		return nil, err
	}
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	token, err := inviteToken(req.Token)
	if err != nil {
		return nil, err
	}
	m, inv, err := s.invitations.Accept(ctx, token, userID)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.AcceptInvitationResponse{
		Invitation: InvitationToAPI(inv),
		Membership: memberhandler.MembershipToAPI(m),
	}, nil
}

func (s *Server) DeclineInvitation(ctx context.Context, req *apiv1.TokenRequest) (*apiv1.InvitationResponse, error) {
	if err := s.ready("DeclineInvitation"); err != nil {
		return nil, err
	}
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	token, err := inviteToken(req.Token)
	if err != nil {
		return nil, err
	}
	inv, err := s.invitations.Decline(ctx, token, userID)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.InvitationResponse{Invitation: InvitationToAPI(inv)}, nil
}

// ListMyInvitations returns pending invitations addressed to the caller's email.
func (s *Server) ListMyInvitations(ctx context.Context, _ *apiv1.Empty) (*apiv1.ListInvitationsResponse, error) {
	if err := s.ready("ListMyInvitations"); err != nil {
		return nil, err
	}
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.invitations.ListMine(ctx, userID)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.ListInvitationsResponse{Invitations: invitationsToAPI(list)}, nil
}

func invitationID(s string) (string, error) {
	id := strings.TrimSpace(s)
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "invitation_id required")
	}
	return id, nil
}

func inviteToken(s string) (string, error) {
	token := strings.TrimSpace(s)
	if token == "" {
		return "", status.Error(codes.InvalidArgument, "token required")
	}
	return token, nil
}

func invitationsToAPI(list []*domain.Invitation) []apiv1.Invitation {
	out := make([]apiv1.Invitation, 0, len(list))
	for _, inv := range list {
		out = append(out, InvitationToAPI(inv))
	}
	return out
}

// InvitationToAPI converts an invitation to its wire form. The token hash is never exposed.
func InvitationToAPI(inv *domain.Invitation) apiv1.Invitation {
	return apiv1.Invitation{
		ID:        inv.ID,
		OrgID:     inv.OrgID,
		Email:     inv.Email,
		Role:      inv.Role.String(),
		Status:    string(inv.Status),
		Message:   inv.Message,
		InvitedBy: inv.InvitedBy,
		TeamIDs:   slices.Clone(inv.TeamIDs),
		ExpiresAt: inv.ExpiresAt,
		CreatedAt: inv.CreatedAt,
		UpdatedAt: inv.UpdatedAt,
	}
}
