// Package rbac is the bridge between gRPC handlers and the tenancy resolver.
// It takes the caller from the authenticated context and the tenant from the
// request (or, failing that, request metadata) and returns gRPC errors.
package rbac

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	apiv1 "b2b-tenancy/api/v1"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/server/interceptors"
	"b2b-tenancy/internal/tenancy"
)

// Metadata keys a client may use instead of naming the tenant in the body.
const (
	OrgIDHeader   = "x-organization-id"
	OrgSlugHeader = "x-organization-slug"
)

// Authorizer resolves a tenant and checks an action against it.
type Authorizer interface {
	Authorize(ctx context.Context, userID string, ref tenancy.Ref, action tenancy.Action) (*tenancy.Tenant, error)
}

var _ Authorizer = (*tenancy.Resolver)(nil)

// RequireUser returns the authenticated user id or Unauthenticated.
func RequireUser(ctx context.Context) (string, error) {
	userID, ok := interceptors.GetUserID(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "user context required")
	}
	return userID, nil
}

// Authorize returns the caller's tenant for ref after checking that the
// caller may perform action there. Failures are gRPC status errors.
func Authorize(ctx context.Context, authz Authorizer, ref tenancy.Ref, action tenancy.Action) (*tenancy.Tenant, error) {
	userID, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if ref.IsZero() {
		ref = RefFromMetadata(ctx)
	}
	t, err := authz.Authorize(ctx, userID, ref, action)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return t, nil
}

// TenantRequest is any request that names its tenant.
type TenantRequest interface {
	TenantRef() apiv1.Tenant
}

// AuthorizeRequest is Authorize with the tenant taken from req.
func AuthorizeRequest(ctx context.Context, authz Authorizer, req TenantRequest, action tenancy.Action) (*tenancy.Tenant, error) {
	var ref tenancy.Ref
	if req != nil {
		t := req.TenantRef()
		ref = tenancy.Ref{OrgID: t.OrgID, Slug: t.OrgSlug}
	}
	return Authorize(ctx, authz, ref, action)
}

// RefFromMetadata reads the tenant from request metadata.
func RefFromMetadata(ctx context.Context) tenancy.Ref {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return tenancy.Ref{}
	}
	first := func(key string) string {
		if vals := md.Get(key); len(vals) > 0 {
			return strings.TrimSpace(vals[0])
		}
		return ""
	}
	return tenancy.Ref{OrgID: first(OrgIDHeader), Slug: first(OrgSlugHeader)}
}
