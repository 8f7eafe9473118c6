// Package memstore is an in-memory store.Store for tests and for running
// without a database. Transactions hold a single writer lock and commit by
// swapping in a copy of the state, so a failed transaction leaves no trace.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	auditdomain "b2b-tenancy/internal/audit/domain"
	auditrepo "b2b-tenancy/internal/audit/repository"
	identitydomain "b2b-tenancy/internal/identity/domain"
	identityrepo "b2b-tenancy/internal/identity/repository"
	invdomain "b2b-tenancy/internal/invitation/domain"
	invitationrepo "b2b-tenancy/internal/invitation/repository"
	memberdomain "b2b-tenancy/internal/membership/domain"
	membershiprepo "b2b-tenancy/internal/membership/repository"
	orgdomain "b2b-tenancy/internal/organization/domain"
	orgrepo "b2b-tenancy/internal/organization/repository"
	policydomain "b2b-tenancy/internal/policy/domain"
	policyrepo "b2b-tenancy/internal/policy/repository"
	"b2b-tenancy/internal/store"
	teamdomain "b2b-tenancy/internal/team/domain"
	teamrepo "b2b-tenancy/internal/team/repository"
	userdomain "b2b-tenancy/internal/user/domain"
	userrepo "b2b-tenancy/internal/user/repository"
)

type teamMemberKey struct {
	teamID       string
	membershipID string
}

type state struct {
	users       map[string]userdomain.User
	identities  map[string]identitydomain.Identity
	orgs        map[string]orgdomain.Org
	memberships map[string]memberdomain.Membership
	teams       map[string]teamdomain.Team
	teamMembers map[teamMemberKey]time.Time
	invitations map[string]invdomain.Invitation
	audit       []auditdomain.AuditLog
	policies    map[string]policydomain.Policy
}

func newState() *state {
	return &state{
		users:       map[string]userdomain.User{},
		identities:  map[string]identitydomain.Identity{},
		orgs:        map[string]orgdomain.Org{},
		memberships: map[string]memberdomain.Membership{},
		teams:       map[string]teamdomain.Team{},
		teamMembers: map[teamMemberKey]time.Time{},
		invitations: map[string]invdomain.Invitation{},
		policies:    map[string]policydomain.Policy{},
	}
}

// clone copies the maps. Stored values never share mutable slices with
// callers, so copying the values themselves is enough.
func (st *state) clone() *state {
	return &state{
		users:       maps.Clone(st.users),
		identities:  maps.Clone(st.identities),
		orgs:        maps.Clone(st.orgs),
		memberships: maps.Clone(st.memberships),
		teams:       maps.Clone(st.teams),
		teamMembers: maps.Clone(st.teamMembers),
		invitations: maps.Clone(st.invitations),
		audit:       slices.Clone(st.audit),
		policies:    maps.Clone(st.policies),
	}
}

// Store implements store.Store in memory.
type Store struct {
	mu    *sync.RWMutex
	state *state
	inTx  bool
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{mu: &sync.RWMutex{}, state: newState()}
}

func (s *Store) read(fn func(st *state)) {
	if !s.inTx {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	fn(s.state)
}

// write runs fn under the writer lock. fn must check every precondition
// before mutating so that a returned error leaves st unchanged.
func (s *Store) write(fn func(st *state) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.state)
}

func (s *Store) Users() userrepo.Repository { return &users{s} }
func (s *Store) Identities() identityrepo.Repository { return &identities{s} }
func (s *Store) Organizations() orgrepo.Repository { return &orgs{s} }
func (s *Store) Memberships() membershiprepo.Repository { return &memberships{s} }
func (s *Store) Teams() teamrepo.Repository { return &teams{s} }
func (s *Store) Invitations() invitationrepo.Repository { return &invitations{s} }
func (s *Store) AuditLogs() auditrepo.Repository { return &auditLogs{s} }
func (s *Store) Policies() policyrepo.Repository { return &policies{s} }

// WithTx serializes fn against every other transaction and write.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return store.ErrNestedTx
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: s.mu, state: s.state.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
