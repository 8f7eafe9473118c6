package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"b2b-tenancy/internal/db"
	"b2b-tenancy/internal/identity/domain"
	"b2b-tenancy/internal/platform/errs"
)

type PostgresRepository struct {
	q db.DBTX
}

// NewPostgresRepository returns an identity repository that runs its queries on q.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// GetByUserAndProvider returns the user's identity for provider, or nil if not found.
func (r *PostgresRepository) GetByUserAndProvider(ctx context.Context, userID string, provider domain.IdentityProvider) (*domain.Identity, error) {
	var i domain.Identity
	var p string
	err := r.q.QueryRowContext(ctx, `SELECT id, user_id, provider, provider_id, password_hash, created_at, updated_at
		FROM identities WHERE user_id = $1 AND provider = $2`, userID, string(provider)).
		Scan(&i.ID, &i.UserID, &p, &i.ProviderID, &i.PasswordHash, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.Provider = domain.IdentityProvider(p)
	return &i, nil
}

// Create persists the identity. The identity must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO identities (id, user_id, provider, provider_id, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		i.ID, i.UserID, string(i.Provider), i.ProviderID, i.PasswordHash, i.CreatedAt, i.UpdatedAt)
	if _, ok := db.UniqueViolation(err); ok {
		return errs.New(errs.ErrConflict, "identity already exists")
	}
	return err
}

// UpdatePasswordHash replaces the stored hash for identity id.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE identities SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, passwordHash, time.Now().UTC())
	if err != nil {
		return err
	}
	return db.RequireRow(res, "identity")
}
