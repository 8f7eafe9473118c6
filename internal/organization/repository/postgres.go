package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"b2b-tenancy/internal/db"
	"b2b-tenancy/internal/organization/domain"
	"b2b-tenancy/internal/platform/errs"
)

const orgColumns = `o.id, o.name, o.slug, o.description, o.logo_url, o.website, o.plan, o.settings, o.created_at, o.updated_at`

type PostgresRepository struct {
	q db.DBTX
}

// NewPostgresRepository returns an organization repository that runs its queries on q.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// GetOrganizationByID returns the organization for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error) {
	return scanOrg(r.q.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM organizations o WHERE o.id = $1`, id))
}

// GetOrganizationBySlug returns the organization for slug, or nil if not found.
func (r *PostgresRepository) GetOrganizationBySlug(ctx context.Context, slug string) (*domain.Org, error) {
	return scanOrg(r.q.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM organizations o WHERE o.slug = $1`, slug))
}

// ListOrganizationsByUser returns orgs where the user holds an active membership, oldest first.
func (r *PostgresRepository) ListOrganizationsByUser(ctx context.Context, userID string) ([]*domain.Org, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+orgColumns+`
		FROM organizations o
		JOIN memberships m ON m.org_id = o.id
		WHERE m.user_id = $1 AND m.status = 'active'
		ORDER BY o.created_at, o.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Org
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CreateOrganization persists the organization. A taken slug is a conflict.
func (r *PostgresRepository) CreateOrganization(ctx context.Context, o *domain.Org) error {
	settings, err := json.Marshal(o.Settings)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `INSERT INTO organizations
		(id, name, slug, description, logo_url, website, plan, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.Name, o.Slug, o.Description, o.LogoURL, o.Website, string(o.Plan), settings, o.CreatedAt, o.UpdatedAt)
	if _, ok := db.UniqueViolation(err); ok {
		return errs.Newf(errs.ErrConflict, "organization slug %q is taken", o.Slug)
	}
	return err
}

// UpdateOrganization writes every mutable column of o.
func (r *PostgresRepository) UpdateOrganization(ctx context.Context, o *domain.Org) error {
	settings, err := json.Marshal(o.Settings)
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, `UPDATE organizations
		SET name = $2, slug = $3, description = $4, logo_url = $5, website = $6, plan = $7, settings = $8, updated_at = $9
		WHERE id = $1`,
		o.ID, o.Name, o.Slug, o.Description, o.LogoURL, o.Website, string(o.Plan), settings, o.UpdatedAt)
	if _, ok := db.UniqueViolation(err); ok {
		return errs.Newf(errs.ErrConflict, "organization slug %q is taken", o.Slug)
	}
	if err != nil {
		return err
	}
	return db.RequireRow(res, "organization")
}

// DeleteOrganization deletes the org row; foreign keys cascade to dependents.
func (r *PostgresRepository) DeleteOrganization(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return db.RequireRow(res, "organization")
}

// LockOrganization locks the org row FOR UPDATE. Must run inside a transaction.
func (r *PostgresRepository) LockOrganization(ctx context.Context, id string) error {
	var got string
	err := r.q.QueryRowContext(ctx, `SELECT id FROM organizations WHERE id = $1 FOR UPDATE`, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return errs.Newf(errs.ErrNotFound, "organization %s not found", id)
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrg(row rowScanner) (*domain.Org, error) {
	var o domain.Org
	var plan string
	var settings []byte
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.Description, &o.LogoURL, &o.Website, &plan, &settings, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	o.Plan = domain.Plan(plan)
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &o.Settings); err != nil {
			return nil, err
		}
	}
	return &o, nil
}
