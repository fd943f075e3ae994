package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thumbsmith/thumbsmith/internal/genclient"
)

// RateWindows persists limiter windows in the database so separate CLI
// invocations share one quota.
type RateWindows struct {
	store *Store
}

// RateWindows returns the store's limiter window view.
func (s *Store) RateWindows() *RateWindows {
	return &RateWindows{store: s}
}

func (w *RateWindows) db() (*sql.DB, error) {
	if w == nil || w.store == nil || w.store.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	return w.store.DB, nil
}

// Admit implements genclient.WindowStore. The prune runs first inside the
// transaction so the write lock is held across count and insert.
func (w *RateWindows) Admit(ctx context.Context, endpoint genclient.Endpoint, now time.Time, limit genclient.RateLimit) (genclient.Decision, error) {
	db, err := w.db()
	if err != nil {
		return genclient.Decision{}, err
	}
	key := strings.TrimSpace(string(endpoint))
	if key == "" {
		return genclient.Decision{}, errors.New("endpoint is required")
	}

	nowMs := now.UnixMilli()
	cutoff := nowMs - limit.Window.Milliseconds()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return genclient.Decision{}, fmt.Errorf("begin rate limit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM rate_limit_windows
		WHERE endpoint = ? AND requested_at <= ?
	`, key, cutoff); err != nil {
		return genclient.Decision{}, fmt.Errorf("prune rate limit: %w", err)
	}

	var (
		count  int
		oldest sql.NullInt64
	)
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(requested_at)
		FROM rate_limit_windows
		WHERE endpoint = ?
	`, key).Scan(&count, &oldest); err != nil {
		return genclient.Decision{}, fmt.Errorf("count rate limit: %w", err)
	}

	if count >= limit.Requests {
		if err := tx.Commit(); err != nil {
			return genclient.Decision{}, fmt.Errorf("commit rate limit: %w", err)
		}
		var retry time.Duration
		if oldest.Valid {
			retry = time.Duration(oldest.Int64+limit.Window.Milliseconds()-nowMs) * time.Millisecond
		}
		if retry < 0 {
			retry = 0
		}
		return genclient.Decision{Admitted: false, Count: count, RetryAfter: retry}, nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rate_limit_windows (endpoint, requested_at) VALUES (?, ?)
	`, key, nowMs); err != nil {
		return genclient.Decision{}, fmt.Errorf("record rate limit: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return genclient.Decision{}, fmt.Errorf("commit rate limit: %w", err)
	}

	return genclient.Decision{Admitted: true, Count: count + 1}, nil
}

// Snapshot implements genclient.WindowStore.
func (w *RateWindows) Snapshot(ctx context.Context, endpoint genclient.Endpoint, now time.Time, window time.Duration) ([]time.Time, error) {
	db, err := w.db()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT requested_at
		FROM rate_limit_windows
		WHERE endpoint = ? AND requested_at > ?
		ORDER BY requested_at, id
	`, string(endpoint), now.UnixMilli()-window.Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("list rate limit: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	stamps := []time.Time{}
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return nil, fmt.Errorf("scan rate limit: %w", err)
		}
		stamps = append(stamps, time.UnixMilli(ms).UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rate limit: %w", err)
	}
	return stamps, nil
}

// Reset implements genclient.WindowStore.
func (w *RateWindows) Reset(ctx context.Context, endpoint genclient.Endpoint) error {
	db, err := w.db()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM rate_limit_windows WHERE endpoint = ?`, string(endpoint)); err != nil {
		return fmt.Errorf("reset rate limit: %w", err)
	}
	return nil
}
