package store

import (
	"context"
	"errors"
	"fmt"
)

// ownerCreatedIndex orders a user's library. List relies on it by name and
// falls back to sorting in memory when it is missing.
const ownerCreatedIndex = "idx_thumbnails_owner_created"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS thumbnails (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		video_link TEXT,
		style TEXT NOT NULL,
		image_url TEXT NOT NULL,
		type TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS ` + ownerCreatedIndex + ` ON thumbnails(user_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS rate_limit_windows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		endpoint TEXT NOT NULL,
		requested_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_rate_limit_windows_endpoint ON rate_limit_windows(endpoint, requested_at);`,
}

// Migrate creates the tables and indexes in one transaction. It is safe to
// run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
