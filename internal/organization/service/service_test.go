package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"b2b-tenancy/internal/audit"
	memberdomain "b2b-tenancy/internal/membership/domain"
	memberservice "b2b-tenancy/internal/membership/service"
	"b2b-tenancy/internal/organization/domain"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/store/memstore"
	userdomain "b2b-tenancy/internal/user/domain"
)

var t0 = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T, users ...string) (*Service, *memstore.Store, *memberservice.Ledger) {
	t.Helper()
	st := memstore.New()
	for _, id := range users {
		require.NoError(t, st.Users().Create(context.Background(), &userdomain.User{
			ID: id, Email: id + "@example.com", Status: userdomain.UserStatusActive, CreatedAt: t0, UpdatedAt: t0,
		}))
	}
	ledger := memberservice.NewLedger(st, nil, nil, nil)
	svc := NewService(st, ledger, nil, nil)
	svc.now = func() time.Time { return t0 }
	return svc, st, ledger
}

func ptr[T any](v T) *T { return &v }

type recorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recorder) Record(_ context.Context, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestCreate(t *testing.T) {
	svc, st, _ := newService(t, "alice", "bob")
	ctx := context.Background()

	out, err := svc.Create(ctx, "alice", CreateParams{Name: "Ünïcode Labs, Inc."})
	require.NoError(t, err)
	require.Equal(t, "unicode-labs-inc", out.Org.Slug)
	require.Equal(t, domain.PlanFree, out.Org.Plan)
	require.Equal(t, memberdomain.RoleOwner, out.Membership.Role)
	require.Equal(t, "alice", out.Membership.UserID)

	n, err := st.Memberships().CountActiveOwners(ctx, out.Org.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = svc.Create(ctx, "bob", CreateParams{Name: "Other", Slug: "unicode-labs-inc"})
	require.ErrorIs(t, err, errs.ErrConflict)

	_, err = svc.Create(ctx, "bob", CreateParams{Name: "Other", Slug: "Not A Slug!"})
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = svc.Create(ctx, "bob", CreateParams{Name: "  "})
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = svc.Create(ctx, "ghost", CreateParams{Name: "Ghost Co"})
	require.ErrorIs(t, err, errs.ErrNotFound)
	org, err := st.Organizations().GetOrganizationBySlug(ctx, "ghost-co")
	require.NoError(t, err)
	require.Nil(t, org, "failed create leaves no organization behind")
}

func TestUpdate(t *testing.T) {
	svc, _, ledger := newService(t, "alice", "bob")
	ctx := context.Background()
	out, err := svc.Create(ctx, "alice", CreateParams{Name: "Acme"})
	require.NoError(t, err)
	viewer, err := ledger.Create(ctx, out.Org.ID, "bob", memberdomain.RoleViewer)
	require.NoError(t, err)

	_, err = svc.Update(ctx, viewer, Update{Name: ptr("Hacked")})
	require.ErrorIs(t, err, errs.ErrForbidden)

	org, err := svc.Update(ctx, out.Membership, Update{Name: ptr("Acme Corp"), Slug: ptr("acme-corp"), Website: ptr("https://acme.test")})
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", org.Name)
	require.Equal(t, "acme-corp", org.Slug)

	got, err := svc.Get(ctx, out.Org.ID)
	require.NoError(t, err)
	require.Equal(t, "https://acme.test", got.Website)

	_, err = svc.Get(ctx, "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdateSettings(t *testing.T) {
	svc, _, _ := newService(t, "alice")
	ctx := context.Background()
	out, err := svc.Create(ctx, "alice", CreateParams{Name: "Acme"})
	require.NoError(t, err)

	settings, err := svc.UpdateSettings(ctx, out.Membership, SettingsUpdate{
		AllowMemberInvites:  ptr(true),
		AllowedEmailDomains: ptr([]string{" @Acme.test", "acme.test", "example.com"}),
	})
	require.NoError(t, err)
	require.True(t, settings.AllowMemberInvites)
	require.Equal(t, []string{"acme.test", "example.com"}, settings.AllowedEmailDomains)
	require.Equal(t, "member", settings.DefaultMemberRole)

	_, err = svc.UpdateSettings(ctx, out.Membership, SettingsUpdate{DefaultMemberRole: ptr("owner")})
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = svc.UpdateSettings(ctx, out.Membership, SettingsUpdate{AllowedEmailDomains: ptr([]string{"not a domain"})})
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestDelete(t *testing.T) {
	svc, st, ledger := newService(t, "alice", "bob")
	ctx := context.Background()
	out, err := svc.Create(ctx, "alice", CreateParams{Name: "Acme"})
	require.NoError(t, err)
	admin, err := ledger.Create(ctx, out.Org.ID, "bob", memberdomain.RoleAdmin)
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, admin), errs.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, out.Membership))

	m, err := st.Memberships().GetMembershipByID(ctx, admin.ID)
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestDelete_RecordsAuditEvent(t *testing.T) {
	svc, _, _ := newService(t, "alice")
	rec := &recorder{}
	svc.audit = rec
	ctx := context.Background()
	out, err := svc.Create(ctx, "alice", CreateParams{Name: "Acme"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, out.Membership))
	require.Len(t, rec.events, 2)
	last := rec.events[1]
	require.Equal(t, audit.ActionOrgDeleted, last.Action)
	require.Equal(t, out.Org.ID, last.OrgID)
	require.Equal(t, "alice", last.UserID)
}

func TestListForUser(t *testing.T) {
	svc, _, ledger := newService(t, "alice", "bob")
	ctx := context.Background()
	a, err := svc.Create(ctx, "alice", CreateParams{Name: "Acme"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "bob", CreateParams{Name: "Globex"})
	require.NoError(t, err)
	_, err = ledger.Create(ctx, a.Org.ID, "bob", memberdomain.RoleMember)
	require.NoError(t, err)

	got, err := svc.ListForUser(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, got, 2)
	roles := map[string]memberdomain.Role{}
	for _, om := range got {
		roles[om.Org.Slug] = om.Membership.Role
	}
	require.Equal(t, memberdomain.RoleMember, roles["acme"])
	require.Equal(t, memberdomain.RoleOwner, roles["globex"])
}
