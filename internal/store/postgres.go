package store

import (
	"context"
	"database/sql"

	auditrepo "b2b-tenancy/internal/audit/repository"
	"b2b-tenancy/internal/db"
	identityrepo "b2b-tenancy/internal/identity/repository"
	invitationrepo "b2b-tenancy/internal/invitation/repository"
	membershiprepo "b2b-tenancy/internal/membership/repository"
	orgrepo "b2b-tenancy/internal/organization/repository"
	policyrepo "b2b-tenancy/internal/policy/repository"
	teamrepo "b2b-tenancy/internal/team/repository"
	userrepo "b2b-tenancy/internal/user/repository"
)

// Postgres is a Store over database/sql. Inside WithTx the same repositories
// run on the *sql.Tx.
type Postgres struct {
	conn *sql.DB
	q    db.DBTX
	inTx bool
}

// NewPostgres returns a Store that uses conn for persistence.
func NewPostgres(conn *sql.DB) *Postgres {
	return &Postgres{conn: conn, q: conn}
}

func (s *Postgres) Users() userrepo.Repository { return userrepo.NewPostgresRepository(s.q) }
func (s *Postgres) Identities() identityrepo.Repository {
	return identityrepo.NewPostgresRepository(s.q)
}
func (s *Postgres) Organizations() orgrepo.Repository { return orgrepo.NewPostgresRepository(s.q) }
func (s *Postgres) Memberships() membershiprepo.Repository {
	return membershiprepo.NewPostgresRepository(s.q)
}
func (s *Postgres) Teams() teamrepo.Repository { return teamrepo.NewPostgresRepository(s.q) }
func (s *Postgres) Invitations() invitationrepo.Repository {
	return invitationrepo.NewPostgresRepository(s.q)
}
func (s *Postgres) AuditLogs() auditrepo.Repository { return auditrepo.NewPostgresRepository(s.q) }
func (s *Postgres) Policies() policyrepo.Repository { return policyrepo.NewPostgresRepository(s.q) }

// WithTx runs fn inside a READ COMMITTED transaction. Serialization of
// membership and invitation changes comes from the organization row lock
// taken by the services, plus the schema's unique indexes.
func (s *Postgres) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return ErrNestedTx
	}
	tx, err := s.conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()
	if err := fn(&Postgres{conn: s.conn, q: tx, inTx: true}); err != nil {
		return err
	}
	return tx.Commit()
}

// Ping verifies the database connection is still alive.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}
