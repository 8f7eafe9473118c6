package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "b2b-tenancy/api/v1"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/platform/rbac"
	"b2b-tenancy/internal/user/domain"
	"b2b-tenancy/internal/user/service"
)

// Server implements UserService for the caller's own account.
type Server struct {
	users *service.Service
}

var _ apiv1.UserServiceServer = (*Server)(nil)

// NewServer returns a new User gRPC server. users may be nil; then all RPCs return Unimplemented.
func NewServer(users *service.Service) *Server {
	return &Server{users: users}
}

// GetMe returns the authenticated user.
func (s *Server) GetMe(ctx context.Context, _ *apiv1.Empty) (*apiv1.UserResponse, error) {
	if s.users == nil {
		return nil, status.Error(codes.Unimplemented, "method GetMe not implemented")
	}
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.UserResponse{User: domainUserToAPI(u)}, nil
}

// UpdateMe edits the caller's profile.
func (s *Server) UpdateMe(ctx context.Context, req *apiv1.UpdateMeRequest) (*apiv1.UserResponse, error) {
	if s.users == nil {
		return nil, status.Error(codes.Unimplemented, "method UpdateMe not implemented")
	}
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.users.UpdateProfile(ctx, userID, service.ProfileUpdate{
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
		Phone:     req.Phone,
		Timezone:  req.Timezone,
		Locale:    req.Locale,
	})
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.UserResponse{User: domainUserToAPI(u)}, nil
}

// DeactivateMe deactivates the caller's account. Owners must transfer ownership first.
func (s *Server) DeactivateMe(ctx context.Context, _ *apiv1.Empty) (*apiv1.Empty, error) {
	if s.users == nil {
		return nil, status.Error(codes.Unimplemented, "method DeactivateMe not implemented")
	}
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.users.Deactivate(ctx, userID); err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.Empty{}, nil
}

func domainUserToAPI(u *domain.User) apiv1.User {
	return apiv1.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Bio:       u.Bio,
		Phone:     u.Phone,
		Timezone:  u.Timezone,
		Locale:    u.Locale,
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
