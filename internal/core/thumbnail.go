package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrThumbnailNotFound is returned when a thumbnail id does not exist.
var ErrThumbnailNotFound = errors.New("thumbnail not found")

// ThumbnailType identifies how a thumbnail was produced.
type ThumbnailType string

const (
	ThumbnailTypeYouTube ThumbnailType = "youtube"
	ThumbnailTypeCustom  ThumbnailType = "custom"
)

// ParseThumbnailType normalizes a thumbnail type name.
func ParseThumbnailType(value string) (ThumbnailType, error) {
	switch ThumbnailType(strings.ToLower(strings.TrimSpace(value))) {
	case ThumbnailTypeYouTube:
		return ThumbnailTypeYouTube, nil
	case ThumbnailTypeCustom:
		return ThumbnailTypeCustom, nil
	default:
		return "", fmt.Errorf("unknown thumbnail type: %q", value)
	}
}

// ThumbnailRecord is a saved generation in a user's library.
type ThumbnailRecord struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	VideoLink string        `json:"video_link,omitempty"`
	Style     string        `json:"style"`
	ImageURL  string        `json:"image_url"`
	Type      ThumbnailType `json:"type"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// DownloadFilename names a library thumbnail saved at the given instant.
func (r ThumbnailRecord) DownloadFilename(at time.Time) string {
	kind := r.Type
	if kind == "" {
		kind = ThumbnailTypeCustom
	}
	return fmt.Sprintf("thumbnail-%s-%d.png", kind, at.UnixMilli())
}
