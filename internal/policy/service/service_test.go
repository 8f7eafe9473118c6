package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	orgdomain "b2b-tenancy/internal/organization/domain"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/policy/engine"
	"b2b-tenancy/internal/store/memstore"
)

const ownerOnlyAdmins = `package tenancy.invitation

default allow := false

allow if input.invitation.role != "admin"

allow if input.inviter.role == "owner"

reason := "only the owner may invite admins" if not allow
`

func TestPolicyLifecycleDrivesAdmission(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	require.NoError(t, st.Organizations().CreateOrganization(ctx, &orgdomain.Org{ID: "org-1", Name: "Acme", Slug: "acme"}))
	svc := NewService(st, nil)
	eval := engine.NewOPAEvaluator(st.Policies(), nil)
	in := engine.InvitationInput{OrgID: "org-1", InviterRole: "admin", Email: "x@example.com", Role: "admin"}

	d, err := eval.AdmitInvitation(ctx, in)
	require.NoError(t, err)
	require.True(t, d.Allowed, "default policy admits")

	_, err = svc.Create(ctx, "org-1", "u-1", "broken", "package other\nallow := true", true)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = svc.Create(ctx, "org-1", "u-1", " ", ownerOnlyAdmins, true)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	p, err := svc.Create(ctx, "org-1", "u-1", "owner invites admins", ownerOnlyAdmins, true)
	require.NoError(t, err)

	d, err = eval.AdmitInvitation(ctx, in)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, "only the owner may invite admins", d.Reason)

	off := false
	_, err = svc.Update(ctx, "org-1", "u-1", p.ID, nil, nil, &off)
	require.NoError(t, err)
	d, err = eval.AdmitInvitation(ctx, in)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	_, err = svc.Get(ctx, "org-2", p.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "org-1", "u-1", p.ID))
	list, err := svc.List(ctx, "org-1")
	require.NoError(t, err)
	require.Empty(t, list)
}
