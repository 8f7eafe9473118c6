package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"b2b-tenancy/internal/db"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/team/domain"
)

const teamColumns = `id, org_id, name, slug, description, created_at, updated_at`

type PostgresRepository struct {
	q db.DBTX
}

// NewPostgresRepository returns a team repository that runs its queries on q.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// GetTeamByID returns the team for id, or nil if not found.
func (r *PostgresRepository) GetTeamByID(ctx context.Context, id string) (*domain.Team, error) {
	return scanTeam(r.q.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id))
}

// ListTeamsByOrg returns the org's teams ordered by name.
func (r *PostgresRepository) ListTeamsByOrg(ctx context.Context, orgID string) ([]*domain.Team, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE org_id = $1 ORDER BY name, id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTeam persists the team. A slug already used in the org is a conflict.
func (r *PostgresRepository) CreateTeam(ctx context.Context, t *domain.Team) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO teams (`+teamColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.OrgID, t.Name, t.Slug, t.Description, t.CreatedAt, t.UpdatedAt)
	if _, ok := db.UniqueViolation(err); ok {
		return errs.Newf(errs.ErrConflict, "team slug %q is taken", t.Slug)
	}
	return err
}

// UpdateTeam writes name, slug and description.
func (r *PostgresRepository) UpdateTeam(ctx context.Context, t *domain.Team) error {
	res, err := r.q.ExecContext(ctx, `UPDATE teams SET name = $2, slug = $3, description = $4, updated_at = $5 WHERE id = $1`,
		t.ID, t.Name, t.Slug, t.Description, t.UpdatedAt)
	if _, ok := db.UniqueViolation(err); ok {
		return errs.Newf(errs.ErrConflict, "team slug %q is taken", t.Slug)
	}
	if err != nil {
		return err
	}
	return db.RequireRow(res, "team")
}

// DeleteTeam removes the team and its links.
func (r *PostgresRepository) DeleteTeam(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return db.RequireRow(res, "team")
}

// AddTeamMember inserts the link unless it exists.
func (r *PostgresRepository) AddTeamMember(ctx context.Context, teamID, membershipID string) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO team_members (team_id, membership_id, created_at)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, teamID, membershipID, time.Now().UTC())
	if db.ForeignKeyViolation(err) {
		return errs.New(errs.ErrNotFound, "team or membership not found")
	}
	return err
}

// RemoveTeamMember deletes the link; a missing link is not found.
func (r *PostgresRepository) RemoveTeamMember(ctx context.Context, teamID, membershipID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = $1 AND membership_id = $2`, teamID, membershipID)
	if err != nil {
		return err
	}
	return db.RequireRow(res, "team member")
}

// ListTeamMemberIDs returns the membership IDs linked to the team.
func (r *PostgresRepository) ListTeamMemberIDs(ctx context.Context, teamID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT membership_id FROM team_members WHERE team_id = $1 ORDER BY membership_id`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTeam(row rowScanner) (*domain.Team, error) {
	var t domain.Team
	err := row.Scan(&t.ID, &t.OrgID, &t.Name, &t.Slug, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
