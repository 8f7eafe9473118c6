package handler

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "b2b-tenancy/api/v1"
	"b2b-tenancy/internal/identity/service"
	"b2b-tenancy/internal/security"
	"b2b-tenancy/internal/server/interceptors"
	"b2b-tenancy/internal/store/memstore"
)

func newTestServer(t *testing.T) *AuthServer {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("token provider: %v", err)
	}
	return NewAuthServer(service.NewAuthService(memstore.New(), security.NewHasher(4), tokens, nil))
}

func wantCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if got := status.Code(err); got != want {
		t.Fatalf("status code = %v, want %v (err %v)", got, want, err)
	}
}

func TestNilAuthService(t *testing.T) {
	srv := NewAuthServer(nil)
	ctx := context.Background()

	_, err := srv.Register(ctx, &apiv1.RegisterRequest{Email: "user@example.com", Password: "Password123!abc"})
	wantCode(t, err, codes.Unimplemented)
	_, err = srv.Login(ctx, &apiv1.LoginRequest{Email: "user@example.com", Password: "Password123!abc"})
	wantCode(t, err, codes.Unimplemented)
	_, err = srv.Refresh(ctx, &apiv1.RefreshRequest{RefreshToken: "x"})
	wantCode(t, err, codes.Unimplemented)
}

func TestRegisterLoginRefresh(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, err := srv.Register(ctx, &apiv1.RegisterRequest{Email: "", Password: "x"})
	wantCode(t, err, codes.InvalidArgument)
	_, err = srv.Register(ctx, &apiv1.RegisterRequest{Email: "not-an-email", Password: "correct horse"})
	wantCode(t, err, codes.InvalidArgument)

	reg, err := srv.Register(ctx, &apiv1.RegisterRequest{Email: "alice@example.com", Password: "correct horse", Name: "Alice"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err = srv.Register(ctx, &apiv1.RegisterRequest{Email: "ALICE@example.com", Password: "correct horse"})
	wantCode(t, err, codes.AlreadyExists)

	_, err = srv.Login(ctx, &apiv1.LoginRequest{Email: "alice@example.com", Password: "wrong horse"})
	wantCode(t, err, codes.Unauthenticated)
	_, err = srv.Login(ctx, &apiv1.LoginRequest{Email: "nobody@example.com", Password: "correct horse"})
	wantCode(t, err, codes.Unauthenticated)

	tok, err := srv.Login(ctx, &apiv1.LoginRequest{Email: "alice@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok.UserID != reg.UserID || tok.AccessToken == "" || tok.RefreshToken == "" {
		t.Fatalf("tokens = %+v", tok)
	}

	refreshed, err := srv.Refresh(ctx, &apiv1.RefreshRequest{RefreshToken: tok.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.UserID != reg.UserID {
		t.Errorf("refreshed user = %q", refreshed.UserID)
	}
	_, err = srv.Refresh(ctx, &apiv1.RefreshRequest{RefreshToken: tok.AccessToken})
	wantCode(t, err, codes.Unauthenticated)
}

func TestChangePassword(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	reg, err := srv.Register(ctx, &apiv1.RegisterRequest{Email: "alice@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err = srv.ChangePassword(ctx, &apiv1.ChangePasswordRequest{CurrentPassword: "correct horse", NewPassword: "battery staple"})
	wantCode(t, err, codes.Unauthenticated)

	authed := interceptors.WithIdentity(ctx, reg.UserID)
	_, err = srv.ChangePassword(authed, &apiv1.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "battery staple"})
	wantCode(t, err, codes.Unauthenticated)
	if _, err := srv.ChangePassword(authed, &apiv1.ChangePasswordRequest{CurrentPassword: "correct horse", NewPassword: "battery staple"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := srv.Login(ctx, &apiv1.LoginRequest{Email: "alice@example.com", Password: "battery staple"}); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}
}
