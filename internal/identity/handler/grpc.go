package handler

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "b2b-tenancy/api/v1"
	"b2b-tenancy/internal/identity/service"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/platform/rbac"
)

// AuthServer implements AuthService (register, login, refresh, password change).
type AuthServer struct {
	auth *service.AuthService
}

var _ apiv1.AuthServiceServer = (*AuthServer)(nil)

// NewAuthServer returns a new Auth gRPC server. If auth is nil all RPCs return Unimplemented.
func NewAuthServer(auth *service.AuthService) *AuthServer {
	return &AuthServer{auth: auth}
}

// Register creates a user with a local password identity.
func (s *AuthServer) Register(ctx context.Context, req *apiv1.RegisterRequest) (*apiv1.RegisterResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Register not implemented")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "email and password required")
	}
	res, err := s.auth.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return nil, authError(err)
	}
	return &apiv1.RegisterResponse{UserID: res.UserID}, nil
}

// Login exchanges email and password for an access and refresh token pair.
func (s *AuthServer) Login(ctx context.Context, req *apiv1.LoginRequest) (*apiv1.TokenResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Login not implemented")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "email and password required")
	}
	res, err := s.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, authError(err)
	}
	return tokenResponse(res), nil
}

// Refresh issues a new token pair from a refresh token.
func (s *AuthServer) Refresh(ctx context.Context, req *apiv1.RefreshRequest) (*apiv1.TokenResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Refresh not implemented")
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		return nil, status.Error(codes.InvalidArgument, "refresh_token required")
	}
	res, err := s.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, authError(err)
	}
	return tokenResponse(res), nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *AuthServer) ChangePassword(ctx context.Context, req *apiv1.ChangePasswordRequest) (*apiv1.Empty, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method ChangePassword not implemented")
	}
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return nil, status.Error(codes.InvalidArgument, "current_password and new_password required")
	}
	if err := s.auth.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
		return nil, authError(err)
	}
	return &apiv1.Empty{}, nil
}

func tokenResponse(res *service.AuthResult) *apiv1.TokenResponse {
	return &apiv1.TokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
		UserID:       res.UserID,
	}
}

func authError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "invalid email or password")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return status.Error(codes.Unauthenticated, "invalid or expired refresh token")
	}
	return errs.ToStatus(err)
}
