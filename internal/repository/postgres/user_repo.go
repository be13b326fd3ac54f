// internal/repository/postgres/user_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"verdant-service/internal/domain/auth"
	xerrors "verdant-service/internal/pkg/errors"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, username, email, password_hash, role, tenant_id, active,
	last_login_at, created_at, updated_at
`

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.TenantID, &u.Active,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// FindByIdentifier retrieves an active user by username or email. The login
// path accepts either form.
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*auth.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE (LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1))
		  AND active = TRUE
	`
	return scanUser(r.db.QueryRow(ctx, query, identifier))
}

// FindByID retrieves a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// UpdateLastLogin stamps a successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE users
		SET last_login_at = $2, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}
