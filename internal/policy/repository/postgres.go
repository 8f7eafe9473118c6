package repository

import (
	"context"
	"database/sql"
	"errors"

	"b2b-tenancy/internal/db"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/policy/domain"
)

const policyColumns = `id, org_id, name, rules, enabled, created_at, updated_at`

type PostgresRepository struct {
	q db.DBTX
}

// NewPostgresRepository returns a policy repository that runs its queries on q.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// GetByID returns the policy for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Policy, error) {
	return scanPolicy(r.q.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM policies WHERE id = $1`, id))
}

// ListByOrg returns every policy of the org, oldest first.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string) ([]*domain.Policy, error) {
	return r.list(ctx, `SELECT `+policyColumns+` FROM policies WHERE org_id = $1 ORDER BY created_at, id`, orgID)
}

// GetEnabledPoliciesByOrg returns the org's enabled policies, oldest first.
func (r *PostgresRepository) GetEnabledPoliciesByOrg(ctx context.Context, orgID string) ([]*domain.Policy, error) {
	return r.list(ctx, `SELECT `+policyColumns+` FROM policies WHERE org_id = $1 AND enabled ORDER BY created_at, id`, orgID)
}

// Create persists the policy. The policy must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Policy) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO policies (`+policyColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.OrgID, p.Name, p.Rules, p.Enabled, p.CreatedAt, p.UpdatedAt)
	if db.ForeignKeyViolation(err) {
		return errs.Newf(errs.ErrNotFound, "organization %s not found", p.OrgID)
	}
	return err
}

// Update writes name, rules and enabled.
func (r *PostgresRepository) Update(ctx context.Context, p *domain.Policy) error {
	res, err := r.q.ExecContext(ctx, `UPDATE policies SET name = $2, rules = $3, enabled = $4, updated_at = $5 WHERE id = $1`,
		p.ID, p.Name, p.Rules, p.Enabled, p.UpdatedAt)
	if err != nil {
		return err
	}
	return db.RequireRow(res, "policy")
}

// Delete removes the policy.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM policies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return db.RequireRow(res, "policy")
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Policy, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*domain.Policy, error) {
	var p domain.Policy
	err := row.Scan(&p.ID, &p.OrgID, &p.Name, &p.Rules, &p.Enabled, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
