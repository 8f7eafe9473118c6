// Package store groups the repositories behind one handle with transactions.
package store

import (
	"context"
	"errors"

	auditrepo "b2b-tenancy/internal/audit/repository"
	identityrepo "b2b-tenancy/internal/identity/repository"
	invitationrepo "b2b-tenancy/internal/invitation/repository"
	membershiprepo "b2b-tenancy/internal/membership/repository"
	orgrepo "b2b-tenancy/internal/organization/repository"
	policyrepo "b2b-tenancy/internal/policy/repository"
	teamrepo "b2b-tenancy/internal/team/repository"
	userrepo "b2b-tenancy/internal/user/repository"
)

// ErrNestedTx is returned when WithTx is called on a store that is already a transaction.
var ErrNestedTx = errors.New("store: nested transaction")

// Store is the root data access interface. Postgres and the in-memory store implement it.
type Store interface {
	Users() userrepo.Repository
	Identities() identityrepo.Repository
	Organizations() orgrepo.Repository
	Memberships() membershiprepo.Repository
	Teams() teamrepo.Repository
	Invitations() invitationrepo.Repository
	AuditLogs() auditrepo.Repository
	Policies() policyrepo.Repository

	// WithTx runs fn in a transaction. The transaction commits when fn returns
	// nil and rolls back otherwise. The store passed to fn must not escape it.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error
}
