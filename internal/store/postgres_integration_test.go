//go:build integration

package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"b2b-tenancy/internal/db"
	"b2b-tenancy/internal/db/migrate"
	identityservice "b2b-tenancy/internal/identity/service"
	invitationservice "b2b-tenancy/internal/invitation/service"
	memberdomain "b2b-tenancy/internal/membership/domain"
	membershipservice "b2b-tenancy/internal/membership/service"
	organizationservice "b2b-tenancy/internal/organization/service"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/security"
	"b2b-tenancy/internal/store"
)

// startPostgres runs a throwaway Postgres, applies the migrations and
// returns a store over it.
func startPostgres(t *testing.T) *store.Postgres {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "tenancy",
				"POSTGRES_PASSWORD": "tenancy",
				"POSTGRES_DB":       "tenancy",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://tenancy:tenancy@%s:%s/tenancy?sslmode=disable", host, port.Port())

	require.NoError(t, migrate.Run(dsn, migrate.Up, nil))
	conn, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return store.NewPostgres(conn)
}

type fixture struct {
	st          *store.Postgres
	auth        *identityservice.AuthService
	ledger      *membershipservice.Ledger
	orgs        *organizationservice.Service
	invitations *invitationservice.Service
}

func newFixture(t *testing.T) *fixture {
	st := startPostgres(t)
	ledger := membershipservice.NewLedger(st, nil, nil, nil)
	return &fixture{
		st:          st,
		auth:        identityservice.NewAuthService(st, security.NewHasher(4), nil, nil),
		ledger:      ledger,
		orgs:        organizationservice.NewService(st, ledger, nil, nil),
		invitations: invitationservice.NewService(st, ledger, nil, nil, nil, nil, nil, time.Hour),
	}
}

func (f *fixture) user(t *testing.T, email string) string {
	t.Helper()
	res, err := f.auth.Register(context.Background(), email, "correct horse", "")
	require.NoError(t, err)
	return res.UserID
}

func TestPostgres_MembershipLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.user(t, "alice@example.com")
	created, err := f.orgs.Create(ctx, alice, organizationservice.CreateParams{Name: "Acme"})
	require.NoError(t, err)
	orgID := created.Org.ID

	_, err = f.orgs.Create(ctx, alice, organizationservice.CreateParams{Name: "Acme"})
	assert.ErrorIs(t, err, errs.ErrConflict)

	var ids []string
	for i := range 5 {
		u := f.user(t, fmt.Sprintf("user%d@example.com", i))
		m, err := f.ledger.Create(ctx, orgID, u, memberdomain.RoleMember)
		require.NoError(t, err)
		ids = append(ids, m.ID)
		_, err = f.ledger.Create(ctx, orgID, u, memberdomain.RoleViewer)
		assert.ErrorIs(t, err, errs.ErrConflict)
	}
	_, err = f.ledger.Create(ctx, orgID, f.user(t, "second-owner@example.com"), memberdomain.RoleOwner)
	assert.ErrorIs(t, err, errs.ErrInvariantViolation)

	// Paging walks every member exactly once.
	seen := map[string]bool{}
	token := ""
	for {
		page, next, err := f.ledger.ListPage(ctx, orgID, memberdomain.Filter{}, 2, token)
		require.NoError(t, err)
		for _, m := range page {
			assert.False(t, seen[m.ID], "duplicate %s", m.ID)
			seen[m.ID] = true
		}
		if next == "" {
			break
		}
		token = next
	}
	assert.Len(t, seen, 7)

	from, to, err := f.ledger.TransferOwnership(ctx, created.Membership, ids[0])
	require.NoError(t, err)
	assert.Equal(t, memberdomain.RoleAdmin, from.Role)
	assert.Equal(t, memberdomain.RoleOwner, to.Role)
	owners, err := f.st.Memberships().CountActiveOwners(ctx, orgID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, owners)

	require.NoError(t, f.orgs.Delete(ctx, to))
	_, err = f.ledger.Get(ctx, orgID, ids[1])
	assert.Error(t, err)
}

func TestPostgres_ConcurrentAcceptCreatesOneMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com")
	bob := f.user(t, "bob@example.com")
	created, err := f.orgs.Create(ctx, owner, organizationservice.CreateParams{Name: "Acme"})
	require.NoError(t, err)

	issued, err := f.invitations.Create(ctx, created.Membership, invitationservice.CreateParams{
		Email: "bob@example.com",
		Role:  memberdomain.RoleMember,
	})
	require.NoError(t, err)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.invitations.Accept(ctx, issued.Token, bob)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	for _, err := range failures {
		assert.True(t, errors.Is(err, errs.ErrInvalidState) || errors.Is(err, errs.ErrConflict), "unexpected error %v", err)
	}
	list, _, err := f.ledger.ListPage(ctx, created.Org.ID, memberdomain.Filter{UserID: bob}, 10, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPostgres_LastOwnerIsProtected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.orgs.Create(ctx, f.user(t, "founder@example.com"), organizationservice.CreateParams{Name: "Solo"})
	require.NoError(t, err)
	member, err := f.ledger.Create(ctx, created.Org.ID, f.user(t, "member@example.com"), memberdomain.RoleMember)
	require.NoError(t, err)

	err = f.ledger.Leave(ctx, created.Membership)
	assert.ErrorIs(t, err, errs.ErrInvariantViolation)
	_, err = f.ledger.SetRole(ctx, created.Membership, member.ID, memberdomain.RoleOwner)
	assert.ErrorIs(t, err, errs.ErrInvariantViolation)

	owners, err := f.st.Memberships().CountActiveOwners(ctx, created.Org.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, owners)
}
