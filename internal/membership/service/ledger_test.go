package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"b2b-tenancy/internal/audit"
	"b2b-tenancy/internal/membership/domain"
	orgdomain "b2b-tenancy/internal/organization/domain"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/store/memstore"
	userdomain "b2b-tenancy/internal/user/domain"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recorder) Record(_ context.Context, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

type fixture struct {
	st     *memstore.Store
	ledger *Ledger
	audit  *recorder
	orgID  string
	owner  *domain.Membership
	admin  *domain.Membership
	member *domain.Membership
	viewer *domain.Membership
}

func addUser(t *testing.T, st *memstore.Store, id string) {
	t.Helper()
	require.NoError(t, st.Users().Create(context.Background(), &userdomain.User{
		ID: id, Email: id + "@example.com", Status: userdomain.UserStatusActive, CreatedAt: t0, UpdatedAt: t0,
	}))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	rec := &recorder{}
	f := &fixture{st: st, ledger: NewLedger(st, rec, nil, nil), audit: rec, orgID: "org-1"}
	f.ledger.now = func() time.Time { return t0 }
	require.NoError(t, st.Organizations().CreateOrganization(ctx, &orgdomain.Org{ID: f.orgID, Name: "Acme", Slug: "acme", CreatedAt: t0, UpdatedAt: t0}))
	mk := func(user string, role domain.Role) *domain.Membership {
		addUser(t, st, user)
		m, err := f.ledger.Create(ctx, f.orgID, user, role)
		require.NoError(t, err)
		return m
	}
	f.owner = mk("owner", domain.RoleOwner)
	f.admin = mk("admin", domain.RoleAdmin)
	f.member = mk("member", domain.RoleMember)
	f.viewer = mk("viewer", domain.RoleViewer)
	rec.events = nil
	return f
}

func (f *fixture) activeOwners(t *testing.T) int64 {
	t.Helper()
	n, err := f.st.Memberships().CountActiveOwners(context.Background(), f.orgID)
	require.NoError(t, err)
	return n
}

func (f *fixture) reload(t *testing.T, m *domain.Membership) *domain.Membership {
	t.Helper()
	got, err := f.st.Memberships().GetMembershipByID(context.Background(), m.ID)
	require.NoError(t, err)
	return got
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Create(ctx, f.orgID, "member", domain.RoleViewer)
	require.ErrorIs(t, err, errs.ErrConflict)

	addUser(t, f.st, "second-owner")
	_, err = f.ledger.Create(ctx, f.orgID, "second-owner", domain.RoleOwner)
	require.ErrorIs(t, err, errs.ErrInvariantViolation)
	require.EqualValues(t, 1, f.activeOwners(t))

	_, err = f.ledger.Create(ctx, f.orgID, "ghost", domain.RoleMember)
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.ledger.Create(ctx, "no-such-org", "member", domain.RoleMember)
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.ledger.Create(ctx, f.orgID, "second-owner", domain.RoleUnspecified)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	m, err := f.ledger.Create(ctx, f.orgID, "second-owner", domain.RoleMember)
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, m.Status)
	require.Equal(t, []string{audit.ActionMemberAdded}, f.audit.actions())
}

func TestSetRole(t *testing.T) {
	tests := []struct {
		name    string
		actor   func(f *fixture) *domain.Membership
		target  func(f *fixture) *domain.Membership
		role    domain.Role
		wantErr error
	}{
		{"admin promotes member to admin", (*fixture).adminM, (*fixture).memberM, domain.RoleAdmin, nil},
		{"admin demotes member to viewer", (*fixture).adminM, (*fixture).memberM, domain.RoleViewer, nil},
		{"owner promotes admin to owner", (*fixture).ownerM, (*fixture).adminM, domain.RoleOwner, errs.ErrInvariantViolation},
		{"viewer promotes self to owner", (*fixture).viewerM, (*fixture).viewerM, domain.RoleOwner, errs.ErrInvariantViolation},
		{"member cannot change roles", (*fixture).memberM, (*fixture).viewerM, domain.RoleMember, errs.ErrForbidden},
		{"admin cannot demote owner", (*fixture).adminM, (*fixture).ownerM, domain.RoleAdmin, errs.ErrForbidden},
		{"owner cannot demote self", (*fixture).ownerM, (*fixture).ownerM, domain.RoleAdmin, errs.ErrInvariantViolation},
		{"admin demotes self", (*fixture).adminM, (*fixture).adminM, domain.RoleMember, nil},
		{"unknown role", (*fixture).adminM, (*fixture).memberM, domain.Role(9), errs.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			target := tt.target(f)
			got, err := f.ledger.SetRole(context.Background(), tt.actor(f), target.ID, tt.role)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Equal(t, target.Role, f.reload(t, target).Role, "failed change must not persist")
				require.Empty(t, f.audit.actions())
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.role, got.Role)
				require.Equal(t, tt.role, f.reload(t, target).Role)
				require.Equal(t, []string{audit.ActionMemberRoleChanged}, f.audit.actions())
			}
			require.EqualValues(t, 1, f.activeOwners(t))
		})
	}
}

func TestSetRole_AdminMayDemotePeerAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.SetRole(ctx, f.owner, f.member.ID, domain.RoleAdmin)
	require.NoError(t, err)
	_, err = f.ledger.SetRole(ctx, f.admin, f.member.ID, domain.RoleViewer)
	require.NoError(t, err)
}

func TestSetRole_NoOpIsNotAudited(t *testing.T) {
	f := newFixture(t)
	got, err := f.ledger.SetRole(context.Background(), f.admin, f.member.ID, domain.RoleMember)
	require.NoError(t, err)
	require.Equal(t, domain.RoleMember, got.Role)
	require.Empty(t, f.audit.actions())
}

func TestSetRole_StaleActorIsReloaded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stale := *f.admin
	_, err := f.ledger.SetRole(ctx, f.owner, f.admin.ID, domain.RoleViewer)
	require.NoError(t, err)
	// The caller still holds the admin snapshot; the ledger must use the stored role.
	_, err = f.ledger.SetRole(ctx, &stale, f.member.ID, domain.RoleViewer)
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestSetRole_TargetInOtherOrg(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.st.Organizations().CreateOrganization(ctx, &orgdomain.Org{ID: "org-2", Name: "Other", Slug: "other"}))
	other, err := f.ledger.Create(ctx, "org-2", "member", domain.RoleOwner)
	require.NoError(t, err)
	_, err = f.ledger.SetRole(ctx, f.admin, other.ID, domain.RoleViewer)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRemove(t *testing.T) {
	tests := []struct {
		name    string
		actor   func(f *fixture) *domain.Membership
		target  func(f *fixture) *domain.Membership
		wantErr error
		action  string
	}{
		{"admin removes member", (*fixture).adminM, (*fixture).memberM, nil, audit.ActionMemberRemoved},
		{"member leaves", (*fixture).memberM, (*fixture).memberM, nil, audit.ActionMemberLeft},
		{"viewer leaves", (*fixture).viewerM, (*fixture).viewerM, nil, audit.ActionMemberLeft},
		{"member cannot remove viewer", (*fixture).memberM, (*fixture).viewerM, errs.ErrForbidden, ""},
		{"admin cannot remove owner", (*fixture).adminM, (*fixture).ownerM, errs.ErrInvariantViolation, ""},
		{"owner cannot leave", (*fixture).ownerM, (*fixture).ownerM, errs.ErrInvariantViolation, ""},
		{"owner removes admin", (*fixture).ownerM, (*fixture).adminM, nil, audit.ActionMemberRemoved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			target := tt.target(f)
			err := f.ledger.Remove(context.Background(), tt.actor(f), target.ID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.NotNil(t, f.reload(t, target))
				return
			}
			require.NoError(t, err)
			require.Nil(t, f.reload(t, target))
			require.Equal(t, []string{tt.action}, f.audit.actions())
			require.EqualValues(t, 1, f.activeOwners(t))
		})
	}
}

func TestRemove_AdminCannotRemoveHigherRankedAfterDemotion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.SetRole(ctx, f.owner, f.member.ID, domain.RoleAdmin)
	require.NoError(t, err)
	_, err = f.ledger.SetRole(ctx, f.owner, f.admin.ID, domain.RoleMember)
	require.NoError(t, err)
	require.ErrorIs(t, f.ledger.Remove(ctx, f.admin, f.member.ID), errs.ErrForbidden)
}

func TestRemove_RemovedActorIsNotAMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ledger.Remove(ctx, f.owner, f.admin.ID))
	require.ErrorIs(t, f.ledger.Remove(ctx, f.admin, f.viewer.ID), errs.ErrNotAMember)
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.ledger.SetStatus(ctx, f.admin, f.member.ID, domain.StatusSuspended)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuspended, got.Status)

	_, err = f.ledger.SetStatus(ctx, f.member, f.viewer.ID, domain.StatusSuspended)
	require.ErrorIs(t, err, errs.ErrNotAMember, "suspended members cannot act")

	_, err = f.ledger.SetStatus(ctx, f.owner, f.owner.ID, domain.StatusSuspended)
	require.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.ledger.SetStatus(ctx, f.admin, f.owner.ID, domain.StatusSuspended)
	require.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.ledger.SetStatus(ctx, f.admin, f.viewer.ID, "frozen")
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	got, err = f.ledger.SetStatus(ctx, f.owner, f.member.ID, domain.StatusActive)
	require.NoError(t, err)
	require.True(t, got.IsActive())
	require.Equal(t, []string{audit.ActionMemberStatusChanged, audit.ActionMemberStatusChanged}, f.audit.actions())
}

func TestSetStatus_SuspendedMemberActsAsNotAMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.SetStatus(ctx, f.owner, f.admin.ID, domain.StatusSuspended)
	require.NoError(t, err)
	_, err = f.ledger.SetRole(ctx, f.admin, f.viewer.ID, domain.RoleMember)
	require.ErrorIs(t, err, errs.ErrNotAMember)
}

func TestLeave_SuspendedMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.SetStatus(ctx, f.admin, f.member.ID, domain.StatusSuspended)
	require.NoError(t, err)

	require.NoError(t, f.ledger.Leave(ctx, f.member))
	m, err := f.st.Memberships().GetMembershipByID(ctx, f.member.ID)
	require.NoError(t, err)
	require.Nil(t, m)
	require.Contains(t, f.audit.actions(), audit.ActionMemberLeft)

	require.ErrorIs(t, f.ledger.Leave(ctx, f.member), errs.ErrNotAMember, "a removed membership cannot leave twice")
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	title, dept := "Engineer", "Platform"

	got, err := f.ledger.UpdateProfile(ctx, f.member, f.member.ID, ProfileUpdate{JobTitle: &title})
	require.NoError(t, err)
	require.Equal(t, "Engineer", got.JobTitle)

	got, err = f.ledger.UpdateProfile(ctx, f.admin, f.member.ID, ProfileUpdate{Department: &dept})
	require.NoError(t, err)
	require.Equal(t, "Engineer", got.JobTitle)
	require.Equal(t, "Platform", got.Department)

	_, err = f.ledger.UpdateProfile(ctx, f.member, f.viewer.ID, ProfileUpdate{JobTitle: &title})
	require.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.ledger.UpdateProfile(ctx, f.admin, f.owner.ID, ProfileUpdate{JobTitle: &title})
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	m, err := f.ledger.Get(context.Background(), f.orgID, f.member.ID)
	require.NoError(t, err)
	require.Equal(t, "member", m.UserID)
	_, err = f.ledger.Get(context.Background(), "org-2", f.member.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestList_LazyAndRestartable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := range 2*listBatchSize + 3 {
		user := fmt.Sprintf("bulk-%03d", i)
		addUser(t, f.st, user)
		_, err := f.ledger.Create(ctx, f.orgID, user, domain.RoleViewer)
		require.NoError(t, err)
	}

	count := func() int {
		n := 0
		last := ""
		for m, err := range f.ledger.List(ctx, f.orgID, domain.Filter{}) {
			require.NoError(t, err)
			require.Greater(t, m.ID, last, "ids must ascend")
			last = m.ID
			n++
		}
		return n
	}
	require.Equal(t, 2*listBatchSize+7, count())
	require.Equal(t, 2*listBatchSize+7, count(), "second range restarts from the beginning")

	taken := 0
	for range f.ledger.List(ctx, f.orgID, domain.Filter{Role: domain.RoleViewer}) {
		taken++
		if taken == 3 {
			break
		}
	}
	require.Equal(t, 3, taken)

	admins := 0
	for m, err := range f.ledger.List(ctx, f.orgID, domain.Filter{Role: domain.RoleAdmin}) {
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, m.Role)
		admins++
	}
	require.Equal(t, 1, admins)
}

func TestListPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page, next, err := f.ledger.ListPage(ctx, f.orgID, domain.Filter{}, 3, "")
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.NotEmpty(t, next)

	rest, next, err := f.ledger.ListPage(ctx, f.orgID, domain.Filter{}, 3, next)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Empty(t, next)
	require.Greater(t, rest[0].ID, page[2].ID)

	_, _, err = f.ledger.ListPage(ctx, f.orgID, domain.Filter{}, 3, "%%%")
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestOneOwnerUnderConcurrentPromotion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actors := []*domain.Membership{f.owner, f.admin, f.member, f.viewer}

	var wg sync.WaitGroup
	for _, a := range actors {
		for _, target := range actors {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = f.ledger.SetRole(ctx, a, target.ID, domain.RoleOwner)
			}()
		}
	}
	wg.Wait()
	require.EqualValues(t, 1, f.activeOwners(t))
	require.Equal(t, domain.RoleOwner, f.reload(t, f.owner).Role)
}

func (f *fixture) ownerM() *domain.Membership  { return f.owner }
func (f *fixture) adminM() *domain.Membership  { return f.admin }
func (f *fixture) memberM() *domain.Membership { return f.member }
func (f *fixture) viewerM() *domain.Membership { return f.viewer }
