package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"b2b-tenancy/internal/db"
	"b2b-tenancy/internal/invitation/domain"
	memberdomain "b2b-tenancy/internal/membership/domain"
	"b2b-tenancy/internal/platform/errs"

	"github.com/jackc/pgx/v5/pgtype"
)

const invitationSelect = `SELECT i.id, i.org_id, i.email, i.role, i.status, i.token_hash, i.message,
	COALESCE(i.invited_by, ''), i.expires_at, i.created_at, i.updated_at,
	ARRAY(SELECT t.team_id FROM invitation_teams t WHERE t.invitation_id = i.id ORDER BY t.team_id)
	FROM invitations i`

type PostgresRepository struct {
	q db.DBTX
}

// NewPostgresRepository returns an invitation repository that runs its queries on q.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// GetInvitationByID returns the invitation for id, or nil if not found.
func (r *PostgresRepository) GetInvitationByID(ctx context.Context, id string) (*domain.Invitation, error) {
	return r.scan(r.q.QueryRowContext(ctx, invitationSelect+` WHERE i.id = $1`, id))
}

// GetInvitationByTokenHash returns the invitation whose token fingerprint matches, or nil.
func (r *PostgresRepository) GetInvitationByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error) {
	return r.scan(r.q.QueryRowContext(ctx, invitationSelect+` WHERE i.token_hash = $1`, tokenHash))
}

// GetPendingInvitation returns the pending invitation for (org, email), or nil.
func (r *PostgresRepository) GetPendingInvitation(ctx context.Context, orgID, email string) (*domain.Invitation, error) {
	return r.scan(r.q.QueryRowContext(ctx, invitationSelect+` WHERE i.org_id = $1 AND i.email = $2 AND i.status = 'pending'`, orgID, email))
}

// ListInvitationsByOrg returns the org's invitations, newest first.
func (r *PostgresRepository) ListInvitationsByOrg(ctx context.Context, orgID string, status domain.Status) ([]*domain.Invitation, error) {
	if status == "" {
		return r.list(ctx, invitationSelect+` WHERE i.org_id = $1 ORDER BY i.created_at DESC, i.id DESC`, orgID)
	}
	return r.list(ctx, invitationSelect+` WHERE i.org_id = $1 AND i.status = $2 ORDER BY i.created_at DESC, i.id DESC`, orgID, string(status))
}

// ListPendingInvitationsByEmail returns pending invitations addressed to email across orgs.
func (r *PostgresRepository) ListPendingInvitationsByEmail(ctx context.Context, email string) ([]*domain.Invitation, error) {
	return r.list(ctx, invitationSelect+` WHERE i.email = $1 AND i.status = 'pending' ORDER BY i.created_at DESC, i.id DESC`, email)
}

// CreateInvitation inserts the invitation and its team links.
func (r *PostgresRepository) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	var invitedBy sql.NullString
	if inv.InvitedBy != "" {
		invitedBy = sql.NullString{String: inv.InvitedBy, Valid: true}
	}
	_, err := r.q.ExecContext(ctx, `INSERT INTO invitations
		(id, org_id, email, role, status, token_hash, message, invited_by, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		inv.ID, inv.OrgID, inv.Email, inv.Role.String(), string(inv.Status), inv.TokenHash, inv.Message,
		invitedBy, inv.ExpiresAt, inv.CreatedAt, inv.UpdatedAt)
	if _, ok := db.UniqueViolation(err); ok {
		return errs.Newf(errs.ErrConflict, "a pending invitation for %s already exists", inv.Email)
	}
	if err != nil {
		return err
	}
	for _, teamID := range inv.TeamIDs {
		_, err := r.q.ExecContext(ctx, `INSERT INTO invitation_teams (invitation_id, team_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, inv.ID, teamID)
		if db.ForeignKeyViolation(err) {
			return errs.Newf(errs.ErrNotFound, "team %s not found", teamID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// TransitionInvitation performs a compare-and-swap on status.
func (r *PostgresRepository) TransitionInvitation(ctx context.Context, id string, from, to domain.Status, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `UPDATE invitations SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, string(from), string(to), at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// RotateInvitationToken swaps the token of a still-pending invitation.
func (r *PostgresRepository) RotateInvitationToken(ctx context.Context, id, tokenHash string, expiresAt, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `UPDATE invitations SET token_hash = $2, expires_at = $3, updated_at = $4
		WHERE id = $1 AND status = 'pending'`, id, tokenHash, expiresAt, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Invitation, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Invitation
	for rows.Next() {
		inv, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scan(row rowScanner) (*domain.Invitation, error) {
	var inv domain.Invitation
	var role, status string
	var teamIDs []string
	// pgtype.Map is not safe for concurrent use; one per row keeps the repository shareable.
	types := pgtype.NewMap()
	err := row.Scan(&inv.ID, &inv.OrgID, &inv.Email, &role, &status, &inv.TokenHash, &inv.Message,
		&inv.InvitedBy, &inv.ExpiresAt, &inv.CreatedAt, &inv.UpdatedAt, types.SQLScanner(&teamIDs))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var ok bool
	if inv.Role, ok = memberdomain.ParseRole(role); !ok {
		return nil, fmt.Errorf("invitation %s: unknown role %q", inv.ID, role)
	}
	inv.Status = domain.Status(status)
	if len(teamIDs) > 0 {
		inv.TeamIDs = teamIDs
	}
	return &inv, nil
}
