package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thumbsmith/thumbsmith/internal/core"
)

// ErrNotFound is returned when a thumbnail id does not exist.
var ErrNotFound = core.ErrThumbnailNotFound

const thumbnailColumns = `id, user_id, video_link, style, image_url, type, created_at, updated_at`

// CreateThumbnail stores a new record. The id and timestamps are assigned here.
func (s *Store) CreateThumbnail(ctx context.Context, record core.ThumbnailRecord) (*core.ThumbnailRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	record.UserID = strings.TrimSpace(record.UserID)
	switch {
	case record.UserID == "":
		return nil, errors.New("user id is required")
	case strings.TrimSpace(record.ImageURL) == "":
		return nil, errors.New("image url is required")
	case record.Type != core.ThumbnailTypeYouTube && record.Type != core.ThumbnailTypeCustom:
		return nil, fmt.Errorf("invalid thumbnail type: %q", record.Type)
	}

	now := s.now()
	record.ID = uuid.NewString()
	record.CreatedAt = now
	record.UpdatedAt = now

	var videoLink sql.NullString
	if link := strings.TrimSpace(record.VideoLink); link != "" {
		videoLink = sql.NullString{String: link, Valid: true}
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO thumbnails (`+thumbnailColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.UserID, videoLink, record.Style, record.ImageURL, string(record.Type),
		now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("store thumbnail: %w", err)
	}

	return &record, nil
}

// ListThumbnailsByOwner returns a user's thumbnails, newest first. When the
// ordering index is unavailable the rows are sorted in memory instead.
func (s *Store) ListThumbnailsByOwner(ctx context.Context, owner string) ([]core.ThumbnailRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, errors.New("owner is required")
	}

	records, err := s.queryThumbnails(ctx, `
		SELECT `+thumbnailColumns+`
		FROM thumbnails INDEXED BY `+ownerCreatedIndex+`
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, owner)
	if err == nil {
		return records, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("list thumbnails: %w", err)
	}

	records, fallbackErr := s.queryThumbnails(ctx, `
		SELECT `+thumbnailColumns+`
		FROM thumbnails
		WHERE user_id = ?
	`, owner)
	if fallbackErr != nil {
		return nil, fmt.Errorf("list thumbnails: %w", fallbackErr)
	}
	SortNewestFirst(records)
	return records, nil
}

// SortNewestFirst orders records by creation time, newest first.
func SortNewestFirst(records []core.ThumbnailRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

// GetThumbnail returns one record by id.
func (s *Store) GetThumbnail(ctx context.Context, id string) (*core.ThumbnailRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	records, err := s.queryThumbnails(ctx, `
		SELECT `+thumbnailColumns+`
		FROM thumbnails
		WHERE id = ?
	`, strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("fetch thumbnail: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

// DeleteThumbnail removes a record by id.
func (s *Store) DeleteThumbnail(ctx context.Context, id string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM thumbnails WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete thumbnail: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete thumbnail: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) queryThumbnails(ctx context.Context, query string, args ...any) ([]core.ThumbnailRecord, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	records := []core.ThumbnailRecord{}
	for rows.Next() {
		var (
			record    core.ThumbnailRecord
			videoLink sql.NullString
			kind      string
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(&record.ID, &record.UserID, &videoLink, &record.Style, &record.ImageURL,
			&kind, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan thumbnail: %w", err)
		}
		record.VideoLink = videoLink.String
		record.Type = core.ThumbnailType(kind)
		record.CreatedAt = time.UnixMilli(createdAt).UTC()
		record.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
