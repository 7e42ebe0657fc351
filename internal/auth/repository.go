package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultQueryTimeout = 5 * time.Second

// Repository provides database access for authentication concerns.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a new Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateOwner persists a new owner record.
func (r *Repository) CreateOwner(ctx context.Context, email, passwordHash string, displayName *string) (Owner, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
INSERT INTO owners (email, password_hash, display_name)
VALUES ($1, $2, $3)
RETURNING id, email, password_hash, display_name, is_admin, created_at, updated_at;`

	row := r.pool.QueryRow(ctx, query, email, passwordHash, displayName)

	var owner Owner
	if err := row.Scan(&owner.ID, &owner.Email, &owner.PasswordHash, &owner.DisplayName, &owner.IsAdmin, &owner.CreatedAt, &owner.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return Owner{}, ErrEmailAlreadyExists
		}
		return Owner{}, fmt.Errorf("scan owner: %w", err)
	}

	return owner, nil
}

// FindOwnerByEmail fetches an owner by email.
func (r *Repository) FindOwnerByEmail(ctx context.Context, email string) (Owner, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
SELECT id, email, password_hash, display_name, is_admin, created_at, updated_at
FROM owners
WHERE email = $1;`

	var owner Owner
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&owner.ID,
		&owner.Email,
		&owner.PasswordHash,
		&owner.DisplayName,
		&owner.IsAdmin,
		&owner.CreatedAt,
		&owner.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Owner{}, ErrOwnerNotFound
		}
		return Owner{}, fmt.Errorf("find owner: %w", err)
	}
	return owner, nil
}

// StoreRefreshToken records a hashed refresh token for later validation.
func (r *Repository) StoreRefreshToken(ctx context.Context, ownerID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
INSERT INTO refresh_tokens (owner_id, token_hash, expires_at)
VALUES ($1, $2, $3);`

	if _, err := r.pool.Exec(ctx, query, ownerID, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
