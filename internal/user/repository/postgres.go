package repository

import (
	"context"
	"database/sql"
	"errors"

	"b2b-tenancy/internal/db"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/user/domain"
)

const userColumns = `id, email, name, avatar_url, bio, phone, timezone, locale, status, created_at, updated_at`

type PostgresRepository struct {
	q db.DBTX
}

// NewPostgresRepository returns a user repository that runs its queries on q.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user for the normalized email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, domain.NormalizeEmail(email))
	return scanUser(row)
}

// Create persists the user. The user must have ID set. A taken email is a conflict.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.Email, u.Name, u.AvatarURL, u.Bio, u.Phone, u.Timezone, u.Locale, string(u.Status), u.CreatedAt, u.UpdatedAt)
	if _, ok := db.UniqueViolation(err); ok {
		return errs.Newf(errs.ErrConflict, "email %s is already registered", u.Email)
	}
	return err
}

// Update writes the profile and status fields of u.
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User) error {
	res, err := r.q.ExecContext(ctx, `UPDATE users
		SET name = $2, avatar_url = $3, bio = $4, phone = $5, timezone = $6, locale = $7, status = $8, updated_at = $9
		WHERE id = $1`,
		u.ID, u.Name, u.AvatarURL, u.Bio, u.Phone, u.Timezone, u.Locale, string(u.Status), u.UpdatedAt)
	if err != nil {
		return err
	}
	return db.RequireRow(res, "user")
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var status string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.Bio, &u.Phone, &u.Timezone, &u.Locale, &status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Status = domain.UserStatus(status)
	return &u, nil
}
