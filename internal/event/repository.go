package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// Repository is the primary event store backed by PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the primary event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Put inserts a new event record.
func (r *Repository) Put(ctx context.Context, evt Event) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	metadata, err := json.Marshal(evt.Metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}

	query := `
INSERT INTO shared_sessions (session_id, admin_user_id, folder_id, metadata, created_at, expires_at, access_count, status, photo_paths)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`

	_, err = r.pool.Exec(ctx, query,
		evt.SessionID,
		evt.AdminUserID,
		evt.FolderID,
		metadata,
		evt.CreatedAt,
		evt.ExpiresAt,
		evt.AccessCount,
		evt.Status,
		evt.PhotoPaths,
	)
	if err != nil {
		return fmt.Errorf("%w: insert event: %v", ErrPrimaryUnavailable, err)
	}
	return nil
}

// Get fetches a raw event record by id.
func (r *Repository) Get(ctx context.Context, sessionID string) (Event, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT session_id, admin_user_id, folder_id, metadata, created_at, expires_at, access_count, status, photo_paths
FROM shared_sessions
WHERE session_id = $1;`

	return r.scanOne(r.pool.QueryRow(ctx, query, sessionID))
}

// Update rewrites the whole event record.
func (r *Repository) Update(ctx context.Context, evt Event) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	metadata, err := json.Marshal(evt.Metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}

	query := `
UPDATE shared_sessions
SET metadata = $2, access_count = $3, status = $4, photo_paths = $5
WHERE session_id = $1;`

	tag, err := r.pool.Exec(ctx, query,
		evt.SessionID,
		metadata,
		evt.AccessCount,
		evt.Status,
		evt.PhotoPaths,
	)
	if err != nil {
		return fmt.Errorf("%w: update event: %v", ErrPrimaryUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// FindActiveByOwnerAndScope returns the newest active, unexpired event for the
// (owner, scope) pair.
func (r *Repository) FindActiveByOwnerAndScope(ctx context.Context, ownerID, scope string, now time.Time) (Event, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT session_id, admin_user_id, folder_id, metadata, created_at, expires_at, access_count, status, photo_paths
FROM shared_sessions
WHERE admin_user_id = $1 AND folder_id = $2 AND status = $3 AND expires_at > $4
ORDER BY created_at DESC
LIMIT 1;`

	return r.scanOne(r.pool.QueryRow(ctx, query, ownerID, scope, StatusActive, now))
}

// ListByOwner returns every event created by the owner, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT session_id, admin_user_id, folder_id, metadata, created_at, expires_at, access_count, status, photo_paths
FROM shared_sessions
WHERE admin_user_id = $1
ORDER BY created_at DESC;`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list events: %v", ErrPrimaryUnavailable, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		evt, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate events: %v", ErrPrimaryUnavailable, err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanOne(row rowScanner) (Event, error) {
	var (
		evt      Event
		metadata []byte
	)
	err := row.Scan(
		&evt.SessionID,
		&evt.AdminUserID,
		&evt.FolderID,
		&metadata,
		&evt.CreatedAt,
		&evt.ExpiresAt,
		&evt.AccessCount,
		&evt.Status,
		&evt.PhotoPaths,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, fmt.Errorf("%w: scan event: %v", ErrPrimaryUnavailable, err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &evt.Metadata); err != nil {
			return Event{}, fmt.Errorf("unmarshal event metadata: %w", err)
		}
	}
	return evt, nil
}
