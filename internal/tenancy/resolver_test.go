package tenancy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	memberdomain "b2b-tenancy/internal/membership/domain"
	orgdomain "b2b-tenancy/internal/organization/domain"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/store/memstore"
	userdomain "b2b-tenancy/internal/user/domain"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	for _, id := range []string{"owner", "viewer", "suspended", "outsider"} {
		require.NoError(t, st.Users().Create(ctx, &userdomain.User{ID: id, Email: id + "@example.com", Status: userdomain.UserStatusActive}))
	}
	require.NoError(t, st.Organizations().CreateOrganization(ctx, &orgdomain.Org{ID: "org-1", Name: "Acme", Slug: "acme"}))
	require.NoError(t, st.Organizations().CreateOrganization(ctx, &orgdomain.Org{ID: "org-2", Name: "Other", Slug: "other"}))
	for _, m := range []memberdomain.Membership{
		{ID: "m-owner", OrgID: "org-1", UserID: "owner", Role: memberdomain.RoleOwner, Status: memberdomain.StatusActive},
		{ID: "m-viewer", OrgID: "org-1", UserID: "viewer", Role: memberdomain.RoleViewer, Status: memberdomain.StatusActive},
		{ID: "m-suspended", OrgID: "org-1", UserID: "suspended", Role: memberdomain.RoleAdmin, Status: memberdomain.StatusSuspended},
		{ID: "m-outsider", OrgID: "org-2", UserID: "outsider", Role: memberdomain.RoleOwner, Status: memberdomain.StatusActive},
	} {
		require.NoError(t, st.Memberships().CreateMembership(ctx, &m))
	}
	return NewResolver(st.Organizations(), st.Memberships(), nil, nil)
}

func TestResolve(t *testing.T) {
	r := newResolver(t)
	tests := []struct {
		name    string
		user    string
		ref     Ref
		wantErr error
		wantMID string
	}{
		{"by id", "viewer", Ref{OrgID: "org-1"}, nil, "m-viewer"},
		{"by slug", "owner", Ref{Slug: "ACME"}, nil, "m-owner"},
		{"id wins over slug", "owner", Ref{OrgID: "org-1", Slug: "other"}, nil, "m-owner"},
		{"empty ref", "owner", Ref{}, errs.ErrNoTenantContext, ""},
		{"blank ref", "owner", Ref{OrgID: "  "}, errs.ErrNoTenantContext, ""},
		{"unknown org", "owner", Ref{OrgID: "org-9"}, errs.ErrNotAMember, ""},
		{"other org", "outsider", Ref{OrgID: "org-1"}, errs.ErrNotAMember, ""},
		{"suspended", "suspended", Ref{OrgID: "org-1"}, errs.ErrNotAMember, ""},
		{"anonymous", "", Ref{OrgID: "org-1"}, errs.ErrNotAMember, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.user, tt.ref)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantMID, got.Membership.ID)
			require.Equal(t, "org-1", got.Org.ID)
		})
	}
}

func TestRequireRole(t *testing.T) {
	m := &memberdomain.Membership{Role: memberdomain.RoleMember}
	require.NoError(t, RequireRole(m, memberdomain.RoleViewer))
	require.NoError(t, RequireRole(m, memberdomain.RoleMember))
	require.ErrorIs(t, RequireRole(m, memberdomain.RoleAdmin), errs.ErrForbidden)
	require.ErrorIs(t, RequireRole(nil, memberdomain.RoleViewer), errs.ErrForbidden)
}

func TestAuthorize(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	_, err := r.Authorize(ctx, "viewer", Ref{OrgID: "org-1"}, ActionInvitationCreate)
	require.ErrorIs(t, err, errs.ErrForbidden)

	tn, err := r.Authorize(ctx, "viewer", Ref{OrgID: "org-1"}, ActionMemberList)
	require.NoError(t, err)
	require.Equal(t, memberdomain.RoleViewer, tn.Membership.Role)

	_, err = r.Authorize(ctx, "owner", Ref{OrgID: "org-1"}, ActionOrgDelete)
	require.NoError(t, err)

	_, err = r.Authorize(ctx, "outsider", Ref{OrgID: "org-1"}, ActionOrgRead)
	require.ErrorIs(t, err, errs.ErrNotAMember)

	_, err = r.Authorize(ctx, "owner", Ref{}, ActionOrgRead)
	require.ErrorIs(t, err, errs.ErrNoTenantContext)

	_, err = r.Authorize(ctx, "owner", Ref{OrgID: "org-1"}, Action("bogus"))
	require.Error(t, err)
	require.Nil(t, errs.KindOf(err))
}

func TestActionTableCoversEveryAction(t *testing.T) {
	for a, role := range minRoles {
		require.True(t, role.Valid(), "action %s has no valid role", a)
	}
	r, ok := MinRole(ActionOwnershipXfer)
	require.True(t, ok)
	require.Equal(t, memberdomain.RoleOwner, r)
}
