// Package tenancy resolves which organization a request acts on and whether
// the caller may perform an action there. The tenant is always an explicit
// argument; nothing is read from ambient state.
package tenancy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	memberdomain "b2b-tenancy/internal/membership/domain"
	orgdomain "b2b-tenancy/internal/organization/domain"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/telemetry"
)

// Ref names an organization by id or slug. When both are set the id wins.
type Ref struct {
	OrgID string
	Slug  string
}

// IsZero reports whether r names no organization.
func (r Ref) IsZero() bool {
	return strings.TrimSpace(r.OrgID) == "" && strings.TrimSpace(r.Slug) == ""
}

// Tenant is a resolved organization and the caller's active membership in it.
type Tenant struct {
	Org        *orgdomain.Org
	Membership *memberdomain.Membership
}

// OrgReader looks organizations up by id or slug.
type OrgReader interface {
	GetOrganizationByID(ctx context.Context, id string) (*orgdomain.Org, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*orgdomain.Org, error)
}

// MembershipReader finds a user's membership in an organization.
type MembershipReader interface {
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*memberdomain.Membership, error)
}

// Resolver implements Resolve, RequireRole and Authorize.
type Resolver struct {
	orgs        OrgReader
	memberships MembershipReader
	metrics     *telemetry.Metrics
	logger      *zap.Logger
}

// NewResolver returns a Resolver. metrics and logger may be nil.
func NewResolver(orgs OrgReader, memberships MembershipReader, metrics *telemetry.Metrics, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{orgs: orgs, memberships: memberships, metrics: metrics, logger: logger}
}

// Resolve loads the referenced organization and userID's membership in it.
// An unknown organization is reported as NotAMember so callers cannot probe
// for organizations they do not belong to.
func (r *Resolver) Resolve(ctx context.Context, userID string, ref Ref) (*Tenant, error) {
	if ref.IsZero() {
		return nil, errs.New(errs.ErrNoTenantContext, "organization id or slug is required")
	}
	if userID == "" {
		return nil, errs.New(errs.ErrNotAMember, "caller is not a member of this organization")
	}
	var (
		org *orgdomain.Org
		err error
	)
	if id := strings.TrimSpace(ref.OrgID); id != "" {
		org, err = r.orgs.GetOrganizationByID(ctx, id)
	} else {
		org, err = r.orgs.GetOrganizationBySlug(ctx, strings.ToLower(strings.TrimSpace(ref.Slug)))
	}
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, errs.New(errs.ErrNotAMember, "caller is not a member of this organization")
	}
	m, err := r.memberships.GetMembershipByUserAndOrg(ctx, userID, org.ID)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.IsActive() {
		return nil, errs.New(errs.ErrNotAMember, "caller is not a member of this organization")
	}
	return &Tenant{Org: org, Membership: m}, nil
}

// RequireRole returns Forbidden unless m ranks at least minimum.
func RequireRole(m *memberdomain.Membership, minimum memberdomain.Role) error {
	if m == nil || !m.Role.AtLeast(minimum) {
		return errs.Newf(errs.ErrForbidden, "requires role %s or higher", minimum)
	}
	return nil
}

// Authorize resolves the tenant and checks the caller's role against the
// minimum role for action.
func (r *Resolver) Authorize(ctx context.Context, userID string, ref Ref, action Action) (*Tenant, error) {
	minimum, ok := MinRole(action)
	if !ok {
		return nil, fmt.Errorf("tenancy: unknown action %q", action)
	}
	t, err := r.Resolve(ctx, userID, ref)
	if err == nil {
		err = RequireRole(t.Membership, minimum)
	}
	if err != nil {
		if kind := errs.KindOf(err); kind != nil {
			r.metrics.AuthorizationDenied(ctx, string(action), reason(kind))
			r.logger.Debug("tenancy: denied",
				zap.String("action", string(action)),
				zap.String("user_id", userID),
				zap.Error(err))
		}
		return nil, err
	}
	return t, nil
}

func reason(kind error) string {
	switch {
	case errors.Is(kind, errs.ErrNoTenantContext):
		return "no_tenant_context"
	case errors.Is(kind, errs.ErrNotAMember):
		return "not_a_member"
	case errors.Is(kind, errs.ErrForbidden):
		return "forbidden"
	}
	return "other"
}
