package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/thumbsmith/thumbsmith/internal/auth"
	"github.com/thumbsmith/thumbsmith/internal/core"
	apperrors "github.com/thumbsmith/thumbsmith/internal/errors"
	"github.com/thumbsmith/thumbsmith/internal/genclient"
	"github.com/thumbsmith/thumbsmith/internal/library"
	"github.com/thumbsmith/thumbsmith/internal/observability"
	"github.com/thumbsmith/thumbsmith/internal/preset"
	"github.com/thumbsmith/thumbsmith/internal/studio"
)

const maxRequestBody = 1 << 20

// MsgDownloadNotAllowed is returned for /api/download targets outside the
// configured hosts and the caller's library.
const MsgDownloadNotAllowed = "Download URL is not allowed"

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}

// API serves the generation, studio and library endpoints.
type API struct {
	Client  *genclient.Client
	Studio  *studio.Studio
	Library *library.Service
	Presets preset.Registry
	Clock   func() time.Time

	// DownloadHosts lists the host[:port] values /api/download may fetch
	// from. Image URLs saved in the caller's library are always allowed.
	DownloadHosts []string
}

// Routes mounts the API on r. Callers add authentication middleware.
func (a *API) Routes(r chi.Router) {
	r.Post("/summarize", a.Summarize)
	r.Post("/style", a.Style)
	r.Post("/thumbnails", a.Thumbnail)
	r.Post("/studio/video", a.StudioVideo)
	r.Post("/studio/custom", a.StudioCustom)
	r.Get("/library", a.ListLibrary)
	r.Delete("/library/{id}", a.DeleteLibrary)
	r.Get("/library/{id}/download", a.DownloadLibrary)
	r.Get("/download", a.Download)
	r.Get("/presets", a.ListPresets)
}

type summarizeBody struct {
	URL     string `json:"url"`
	VideoID string `json:"video_id"`
}

// Summarize handles POST /api/summarize.
func (a *API) Summarize(w http.ResponseWriter, r *http.Request) {
	var body summarizeBody
	if !decodeBody(w, r, &body) {
		return
	}

	videoID := strings.TrimSpace(body.VideoID)
	if videoID == "" {
		id, err := core.ExtractVideoID(body.URL)
		if err != nil {
			respondWithError(w, r, apiError(r.Context(), err))
			return
		}
		videoID = id
	}

	details, err := a.Client.FetchVideoSummary(r.Context(), videoID)
	if err != nil {
		respondWithError(w, r, apiError(r.Context(), err))
		return
	}
	writeJSON(w, http.StatusOK, details)
}

type styleBody struct {
	Summary      string `json:"summary"`
	IncludeHuman *bool  `json:"include_human"`
	IncludeText  *bool  `json:"include_text"`
}

// Style handles POST /api/style.
func (a *API) Style(w http.ResponseWriter, r *http.Request) {
	var body styleBody
	if !decodeBody(w, r, &body) {
		return
	}

	req := genclient.NewStyleRequest(body.Summary)
	if body.IncludeHuman != nil {
		req.IncludeHuman = *body.IncludeHuman
	}
	if body.IncludeText != nil {
		req.IncludeText = *body.IncludeText
	}

	style, err := a.Client.GenerateStyle(r.Context(), req)
	if err != nil {
		respondWithError(w, r, apiError(r.Context(), err))
		return
	}
	writeJSON(w, http.StatusOK, style)
}

type thumbnailBody struct {
	VideoID    string `json:"video_id"`
	Style      string `json:"style"`
	CustomText string `json:"custom_text"`
}

// Thumbnail handles POST /api/thumbnails.
func (a *API) Thumbnail(w http.ResponseWriter, r *http.Request) {
	var body thumbnailBody
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.VideoID) == "" {
		body.VideoID = genclient.CustomVideoID
	}

	result, err := a.Client.GenerateThumbnail(r.Context(), genclient.ThumbnailRequest{
		VideoID:    body.VideoID,
		Style:      body.Style,
		CustomText: body.CustomText,
	})
	if err != nil {
		respondWithError(w, r, apiError(r.Context(), err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// StudioVideo handles POST /api/studio/video.
func (a *API) StudioVideo(w http.ResponseWriter, r *http.Request) {
	var req studio.VideoRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := a.Studio.FromVideo(r.Context(), req)
	if err != nil {
		respondWithError(w, r, apiError(r.Context(), err))
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// StudioCustom handles POST /api/studio/custom.
func (a *API) StudioCustom(w http.ResponseWriter, r *http.Request) {
	var req studio.CustomRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := a.Studio.Custom(r.Context(), req)
	if err != nil {
		respondWithError(w, r, apiError(r.Context(), err))
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// ListLibrary handles GET /api/library.
func (a *API) ListLibrary(w http.ResponseWriter, r *http.Request) {
	records, err := a.Library.List(r.Context())
	if err != nil {
		respondWithError(w, r, apiError(r.Context(), err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"thumbnails": records})
}

// DeleteLibrary handles DELETE /api/library/{id}.
func (a *API) DeleteLibrary(w http.ResponseWriter, r *http.Request) {
	if err := a.Library.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondWithError(w, r, apiError(r.Context(), err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadLibrary handles GET /api/library/{id}/download.
func (a *API) DownloadLibrary(w http.ResponseWriter, r *http.Request) {
	record, err := a.Library.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, r, apiError(r.Context(), err))
		return
	}
	a.download(w, r, record.ImageURL, record.DownloadFilename(a.now()))
}

// Download handles GET /api/download?url=&filename=.
func (a *API) Download(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filename := strings.TrimSpace(query.Get("filename"))
	if filename == "" {
		filename = fmt.Sprintf("thumbnail-%d.png", a.now().UnixMilli())
	}
	target := query.Get("url")
	allowed, err := a.downloadAllowed(r.Context(), target)
	if err != nil {
		respondWithError(w, r, apiError(r.Context(), err))
		return
	}
	if !allowed {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), nil, MsgDownloadNotAllowed))
		return
	}
	a.download(w, r, target, filename)
}

// downloadAllowed reports whether target may be fetched on the caller's
// behalf. Unparseable targets pass through so the client reports them.
func (a *API) downloadAllowed(ctx context.Context, target string) (bool, error) {
	u, err := neturl.Parse(strings.TrimSpace(target))
	if err != nil || u.Host == "" {
		return true, nil
	}
	host := strings.ToLower(u.Host)
	for _, allowed := range a.DownloadHosts {
		if host == allowed {
			return true, nil
		}
	}
	if a.Library == nil {
		return false, nil
	}
	records, err := a.Library.List(ctx)
	if err != nil {
		return false, err
	}
	for _, record := range records {
		if record.ImageURL == target {
			return true, nil
		}
	}
	return false, nil
}

// ListPresets handles GET /api/presets.
func (a *API) ListPresets(w http.ResponseWriter, _ *http.Request) {
	presets := []*preset.Preset{}
	if a.Presets != nil {
		presets = append(presets, a.Presets.List()...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": presets})
}

func (a *API) download(w http.ResponseWriter, r *http.Request, url, filename string) {
	tw := &trackingWriter{ResponseWriter: w}
	err := a.Client.DownloadAsFile(r.Context(), url, filename, genclient.ResponseSink{W: tw})
	if err == nil {
		return
	}
	if tw.wroteHeader {
		if logger := observability.ServerLogger; logger != nil {
			logger.Warn("download interrupted", zap.String("filename", filename), zap.Error(err))
		}
		return
	}
	respondWithError(w, r, apiError(r.Context(), err))
}

func (a *API) now() time.Time {
	if a.Clock != nil {
		return a.Clock()
	}
	return time.Now()
}

// apiError maps domain errors to error envelopes.
func apiError(ctx context.Context, err error) error {
	var libErr *library.Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrUnauthenticated):
		return apperrors.WrapUnauthorized(ctx, nil, auth.ErrUnauthenticated.Error())
	case errors.Is(err, core.ErrInvalidYouTubeURL), errors.Is(err, core.ErrMissingVideoID):
		return apperrors.WrapInvalidInput(ctx, nil, err.Error())
	case errors.Is(err, library.ErrNotFound):
		return apperrors.WrapNotFound(ctx, nil, "Thumbnail not found")
	case errors.Is(err, preset.ErrNotFound):
		return apperrors.WrapNotFound(ctx, nil, err.Error())
	case errors.As(err, &libErr):
		return apperrors.WrapDatabaseError(ctx, libErr.Err, libErr.Message)
	}
	if failure, ok := genclient.AsFailure(err); ok {
		return apperrors.FromFailure(ctx, failure)
	}
	return apperrors.WrapInternal(ctx, err, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Request body must be valid JSON"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type trackingWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (t *trackingWriter) WriteHeader(status int) {
	t.wroteHeader = true
	t.ResponseWriter.WriteHeader(status)
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	t.wroteHeader = true
	return t.ResponseWriter.Write(p)
}
