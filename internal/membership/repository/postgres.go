package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"b2b-tenancy/internal/db"
	"b2b-tenancy/internal/membership/domain"
	"b2b-tenancy/internal/platform/errs"
)

const membershipColumns = `id, org_id, user_id, role, status, job_title, department, created_at, updated_at`

// Constraint names from the schema.
const (
	constraintOrgUser     = "memberships_org_user_key"
	constraintActiveOwner = "memberships_one_active_owner"
)

type PostgresRepository struct {
	q db.DBTX
}

// NewPostgresRepository returns a membership repository that runs its queries on q.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// GetMembershipByID returns the membership for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error) {
	return scanMembership(r.q.QueryRowContext(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE id = $1`, id))
}

// GetMembershipByUserAndOrg returns the membership for the given user and org, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	return scanMembership(r.q.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 AND org_id = $2`, userID, orgID))
}

// ListMembershipsByOrg returns one page of the org's memberships in ID order.
func (r *PostgresRepository) ListMembershipsByOrg(ctx context.Context, orgID string, filter domain.Filter, afterID string, limit int) ([]*domain.Membership, error) {
	where := []string{"org_id = $1", "id > $2"}
	args := []any{orgID, afterID}
	if filter.Role != domain.RoleUnspecified {
		args = append(args, filter.Role.String())
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT %s FROM memberships WHERE %s ORDER BY id LIMIT $%d`,
		membershipColumns, strings.Join(where, " AND "), len(args))
	return r.list(ctx, query, args...)
}

// ListMembershipsByUser returns every membership the user holds, in ID order.
func (r *PostgresRepository) ListMembershipsByUser(ctx context.Context, userID string) ([]*domain.Membership, error) {
	return r.list(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 ORDER BY id`, userID)
}

// CountActiveOwners returns the number of active owner memberships in the org.
func (r *PostgresRepository) CountActiveOwners(ctx context.Context, orgID string) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx,
		`SELECT count(*) FROM memberships WHERE org_id = $1 AND role = 'owner' AND status = 'active'`, orgID).Scan(&n)
	return n, err
}

// CreateMembership persists the membership. The membership must have ID set.
func (r *PostgresRepository) CreateMembership(ctx context.Context, m *domain.Membership) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO memberships (`+membershipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.OrgID, m.UserID, m.Role.String(), string(m.Status), m.JobTitle, m.Department, m.CreatedAt, m.UpdatedAt)
	return translateWriteError(err, m)
}

// UpdateMembership writes the mutable columns of m.
func (r *PostgresRepository) UpdateMembership(ctx context.Context, m *domain.Membership) error {
	res, err := r.q.ExecContext(ctx, `UPDATE memberships
		SET role = $2, status = $3, job_title = $4, department = $5, updated_at = $6
		WHERE id = $1`,
		m.ID, m.Role.String(), string(m.Status), m.JobTitle, m.Department, m.UpdatedAt)
	if err != nil {
		return translateWriteError(err, m)
	}
	return db.RequireRow(res, "membership")
}

// DeleteMembership removes the membership and its team links.
func (r *PostgresRepository) DeleteMembership(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM memberships WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return db.RequireRow(res, "membership")
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Membership, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func translateWriteError(err error, m *domain.Membership) error {
	if err == nil {
		return nil
	}
	if name, ok := db.UniqueViolation(err); ok {
		switch name {
		case constraintActiveOwner:
			return errs.Newf(errs.ErrInvariantViolation, "organization %s already has an active owner", m.OrgID)
		case constraintOrgUser:
			return errs.Newf(errs.ErrConflict, "user %s is already a member of %s", m.UserID, m.OrgID)
		}
		return errs.New(errs.ErrConflict, "membership already exists")
	}
	if db.ForeignKeyViolation(err) {
		return errs.New(errs.ErrNotFound, "organization or user not found")
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMembership(row rowScanner) (*domain.Membership, error) {
	var m domain.Membership
	var role, status string
	err := row.Scan(&m.ID, &m.OrgID, &m.UserID, &role, &status, &m.JobTitle, &m.Department, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var ok bool
	if m.Role, ok = domain.ParseRole(role); !ok {
		return nil, fmt.Errorf("membership %s: unknown role %q", m.ID, role)
	}
	m.Status = domain.Status(status)
	return &m, nil
}
