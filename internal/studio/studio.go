// Package studio runs the end-to-end generation flows: video link to saved
// thumbnail, and style preset to saved thumbnail.
package studio

import (
	"context"
	"errors"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/thumbsmith/thumbsmith/internal/auth"
	"github.com/thumbsmith/thumbsmith/internal/core"
	"github.com/thumbsmith/thumbsmith/internal/genclient"
	"github.com/thumbsmith/thumbsmith/internal/preset"
)

// Generator is the generation backend client.
type Generator interface {
	FetchVideoSummary(ctx context.Context, videoID string) (*genclient.VideoDetails, error)
	GenerateStyle(ctx context.Context, req genclient.StyleRequest) (*genclient.StyleGeneration, error)
	GenerateThumbnail(ctx context.Context, req genclient.ThumbnailRequest) (*genclient.ThumbnailResult, error)
}

// Library saves generated thumbnails for the current user.
type Library interface {
	Save(ctx context.Context, record core.ThumbnailRecord) (*core.ThumbnailRecord, error)
}

// Studio combines the client, the presets and the library.
type Studio struct {
	Client  Generator
	Library Library
	Presets preset.Registry
	Auth    auth.Provider
	Logger  *logging.Logger
}

// VideoRequest starts a thumbnail from a YouTube link. Nil include flags
// default to true.
type VideoRequest struct {
	URL          string `json:"url"`
	CustomText   string `json:"custom_text,omitempty"`
	Style        string `json:"style,omitempty"`
	IncludeHuman *bool  `json:"include_human,omitempty"`
	IncludeText  *bool  `json:"include_text,omitempty"`
}

// VideoResult is the outcome of FromVideo.
type VideoResult struct {
	VideoID   string                     `json:"video_id"`
	VideoLink string                     `json:"video_link"`
	Details   *genclient.VideoDetails    `json:"details"`
	Style     string                     `json:"style"`
	Thumbnail *genclient.ThumbnailResult `json:"thumbnail"`
	RecordID  string                     `json:"record_id"`
}

// CustomRequest starts a thumbnail from a preset or a literal style. Style
// wins when both are set.
type CustomRequest struct {
	Preset     string `json:"preset,omitempty"`
	Style      string `json:"style,omitempty"`
	CustomText string `json:"custom_text,omitempty"`
}

// CustomResult is the outcome of Custom.
type CustomResult struct {
	Preset    string                     `json:"preset,omitempty"`
	Style     string                     `json:"style"`
	Thumbnail *genclient.ThumbnailResult `json:"thumbnail"`
	RecordID  string                     `json:"record_id"`
}

// FromVideo summarizes the video, derives a style unless one is given,
// generates the thumbnail and saves it to the library.
func (s *Studio) FromVideo(ctx context.Context, req VideoRequest) (*VideoResult, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	videoID, err := core.ExtractVideoID(req.URL)
	if err != nil {
		return nil, err
	}

	details, err := s.Client.FetchVideoSummary(ctx, videoID)
	if err != nil {
		return nil, err
	}

	style := strings.TrimSpace(req.Style)
	if style == "" {
		styleReq := genclient.NewStyleRequest(details.Summary)
		if req.IncludeHuman != nil {
			styleReq.IncludeHuman = *req.IncludeHuman
		}
		if req.IncludeText != nil {
			styleReq.IncludeText = *req.IncludeText
		}
		generated, err := s.Client.GenerateStyle(ctx, styleReq)
		if err != nil {
			return nil, err
		}
		style = generated.Style
	}

	customText := strings.TrimSpace(req.CustomText)
	if customText == "" {
		customText = details.Title
	}

	thumb, err := s.Client.GenerateThumbnail(ctx, genclient.ThumbnailRequest{
		VideoID:    videoID,
		Style:      style,
		CustomText: customText,
	})
	if err != nil {
		return nil, err
	}

	link := core.WatchURL(videoID)
	record, err := s.Library.Save(ctx, core.ThumbnailRecord{
		VideoLink: link,
		Style:     style,
		ImageURL:  thumb.URL,
		Type:      core.ThumbnailTypeYouTube,
	})
	if err != nil {
		return nil, err
	}

	s.info("thumbnail generated", zap.String("video_id", videoID), zap.String("record", record.ID))
	return &VideoResult{
		VideoID:   videoID,
		VideoLink: link,
		Details:   details,
		Style:     style,
		Thumbnail: thumb,
		RecordID:  record.ID,
	}, nil
}

// Custom generates a thumbnail from a preset (minimal-tech by default) or a
// literal style, and saves it to the library.
func (s *Studio) Custom(ctx context.Context, req CustomRequest) (*CustomResult, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	slug := ""
	style := strings.TrimSpace(req.Style)
	if style == "" {
		slug = strings.TrimSpace(req.Preset)
		if slug == "" {
			slug = preset.DefaultSlug
		}
		if s.Presets == nil {
			return nil, errors.New("preset registry not configured")
		}
		p, err := s.Presets.Get(slug)
		if err != nil {
			return nil, err
		}
		style = p.Style
	}

	thumb, err := s.Client.GenerateThumbnail(ctx, genclient.ThumbnailRequest{
		VideoID:    genclient.CustomVideoID,
		Style:      style,
		CustomText: strings.TrimSpace(req.CustomText),
	})
	if err != nil {
		return nil, err
	}

	record, err := s.Library.Save(ctx, core.ThumbnailRecord{
		Style:    style,
		ImageURL: thumb.URL,
		Type:     core.ThumbnailTypeCustom,
	})
	if err != nil {
		return nil, err
	}

	s.info("custom thumbnail generated", zap.String("preset", slug), zap.String("record", record.ID))
	return &CustomResult{
		Preset:    slug,
		Style:     style,
		Thumbnail: thumb,
		RecordID:  record.ID,
	}, nil
}

// ready checks wiring and the signed-in user before any backend call.
func (s *Studio) ready(ctx context.Context) error {
	if s == nil || s.Client == nil || s.Library == nil {
		return errors.New("studio is not configured")
	}
	if s.Auth == nil {
		return auth.ErrUnauthenticated
	}
	if _, err := s.Auth.CurrentUser(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Studio) info(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Info(msg, fields...)
	}
}
