package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/thumbsmith/thumbsmith/internal/metrics"
)

const (
	// DefaultBaseURL is the local generation backend address.
	DefaultBaseURL = "http://localhost:5000"

	// DefaultTimeout bounds one backend call.
	DefaultTimeout = 120 * time.Second

	// CustomVideoID marks a thumbnail generated from a style prompt only.
	CustomVideoID = "custom"
)

// Operation names used in logs, traces and metrics.
const (
	OpSummary   = "summarize"
	OpStyle     = "generate_style"
	OpThumbnail = "generate_thumbnails"
	OpDownload  = "download"
)

// VideoDetails is the summary of a YouTube video.
type VideoDetails struct {
	Summary      string `json:"summary"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// StyleRequest asks the backend for a thumbnail style prompt.
type StyleRequest struct {
	Summary      string `json:"summary"`
	IncludeHuman bool   `json:"includeHuman"`
	IncludeText  bool   `json:"includeText"`
}

// NewStyleRequest returns a request with humans and text included.
func NewStyleRequest(summary string) StyleRequest {
	return StyleRequest{Summary: summary, IncludeHuman: true, IncludeText: true}
}

// StyleGeneration is a generated style prompt.
type StyleGeneration struct {
	Style string `json:"style"`
}

// ThumbnailRequest asks the backend to render a thumbnail.
type ThumbnailRequest struct {
	VideoID    string `json:"videoId"`
	Style      string `json:"style"`
	CustomText string `json:"customText,omitempty"`
}

// ThumbnailResult is a rendered thumbnail and a local filename for it.
type ThumbnailResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type summaryRequest struct {
	VideoURL string `json:"video_url"`
	VideoID  string `json:"video_id"`
}

// Client calls the generation backend behind per-endpoint rate limits.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Limiter    *RateLimiter
	Clock      func() time.Time
	Logger     *logging.Logger

	// LimitSummary gates summary fetches on the summary endpoint's window.
	LimitSummary bool

	// FailClosed refuses requests while the window store is failing
	// instead of admitting them unmetered.
	FailClosed bool

	stampMu   sync.Mutex
	lastStamp int64
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL string, limiter *RateLimiter) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = DefaultBaseURL
	}
	if limiter == nil {
		limiter = NewRateLimiter()
	}

	return &Client{
		BaseURL: url,
		Timeout: DefaultTimeout,
		Limiter: limiter,
	}
}

// FetchVideoSummary returns the summary, title and thumbnail of a video.
func (c *Client) FetchVideoSummary(ctx context.Context, videoID string) (*VideoDetails, error) {
	if c == nil {
		return nil, fmt.Errorf("generation client not configured")
	}
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, c.fail(OpSummary, invalidInput(MsgVideoIDRequired))
	}
	if c.LimitSummary {
		if err := c.admit(ctx, EndpointSummary); err != nil {
			return nil, c.fail(OpSummary, err)
		}
	}

	payload := summaryRequest{
		VideoURL: "https://www.youtube.com/watch?v=" + videoID,
		VideoID:  videoID,
	}

	var details VideoDetails
	if err := c.post(ctx, OpSummary, "/summarize", payload, &details); err != nil {
		return nil, c.fail(OpSummary, err)
	}
	metrics.RecordOperation(OpSummary, true)
	return &details, nil
}

// GenerateStyle returns a style prompt for a video summary.
func (c *Client) GenerateStyle(ctx context.Context, req StyleRequest) (*StyleGeneration, error) {
	if c == nil {
		return nil, fmt.Errorf("generation client not configured")
	}
	if err := c.admit(ctx, EndpointStyle); err != nil {
		return nil, c.fail(OpStyle, err)
	}

	var generation StyleGeneration
	if err := c.post(ctx, OpStyle, "/generate_style", req, &generation); err != nil {
		return nil, c.fail(OpStyle, err)
	}
	metrics.RecordOperation(OpStyle, true)
	return &generation, nil
}

// GenerateThumbnail renders a thumbnail and names it for local saving.
func (c *Client) GenerateThumbnail(ctx context.Context, req ThumbnailRequest) (*ThumbnailResult, error) {
	if c == nil {
		return nil, fmt.Errorf("generation client not configured")
	}
	// a blank id would still spend quota and yield "thumbnail--<ms>.png"
	if strings.TrimSpace(req.VideoID) == "" {
		return nil, c.fail(OpThumbnail, invalidInput(MsgVideoIDRequired))
	}
	if err := c.admit(ctx, EndpointThumbnail); err != nil {
		return nil, c.fail(OpThumbnail, err)
	}

	var parsed struct {
		URL string `json:"url"`
	}
	if err := c.post(ctx, OpThumbnail, "/generate_thumbnails", req, &parsed); err != nil {
		return nil, c.fail(OpThumbnail, err)
	}
	if strings.TrimSpace(parsed.URL) == "" {
		return nil, c.fail(OpThumbnail, badResponseShape(MsgMissingURL, nil))
	}

	metrics.RecordOperation(OpThumbnail, true)
	return &ThumbnailResult{
		URL:      parsed.URL,
		Filename: ThumbnailFilename(req.VideoID, c.nextStamp()),
	}, nil
}

// ThumbnailFilename names a generated thumbnail.
func ThumbnailFilename(videoID string, epochMs int64) string {
	if videoID == CustomVideoID {
		return fmt.Sprintf("custom-thumbnail-%d.png", epochMs)
	}
	return fmt.Sprintf("thumbnail-%s-%d.png", videoID, epochMs)
}

func (c *Client) post(ctx context.Context, operation, path string, payload any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return invalidInput(fmt.Sprintf("encode request: %v", err))
	}

	url := strings.TrimRight(c.BaseURL, "/") + path
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return networkError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(httpReq)
	duration := time.Since(start)
	metrics.RecordBackendCall(operation, duration)
	if err != nil {
		Trace(TraceEntry{
			Operation:   operation,
			Endpoint:    url,
			Method:      http.MethodPost,
			RequestBody: body,
			Error:       err.Error(),
			DurationMs:  duration.Milliseconds(),
		})
		return networkError(err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := readCapped(resp.Body)
	if err != nil {
		return err
	}

	Trace(TraceEntry{
		Operation:   operation,
		Endpoint:    url,
		Method:      http.MethodPost,
		RequestBody: body,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Response:    respBody,
		DurationMs:  duration.Milliseconds(),
	})

	return classifyResponse(resp.StatusCode, resp.Header, respBody, c.now(), out)
}

// admit checks the endpoint's window. When the window store fails the
// request is admitted and counted as bypassed, unless FailClosed is set.
func (c *Client) admit(ctx context.Context, endpoint Endpoint) error {
	err := c.Limiter.Admit(ctx, endpoint)
	if err == nil {
		metrics.RecordAdmission(string(endpoint), metrics.AdmissionAdmitted)
		return nil
	}

	if failure, ok := AsFailure(err); ok {
		metrics.RecordAdmission(string(endpoint), metrics.AdmissionDenied)
		c.debug("Request rate limited",
			zap.String("kind", string(endpoint)),
			zap.Duration("retry_after", failure.RetryAfter),
		)
		return failure
	}

	if c.FailClosed {
		metrics.RecordAdmission(string(endpoint), metrics.AdmissionDenied)
		c.warn("Rate limit store unavailable, refusing request",
			zap.String("kind", string(endpoint)),
			zap.Error(err),
		)
		return &Failure{Kind: KindNetwork, Origin: OriginNetwork, Message: MsgLimiterUnavailable, Err: err}
	}

	metrics.RecordAdmission(string(endpoint), metrics.AdmissionBypassed)
	c.warn("Rate limit store unavailable, admitting request without quota",
		zap.String("kind", string(endpoint)),
		zap.Error(err),
	)
	return nil
}

// readCapped reads at most MaxResponseBytes. Anything longer is reported
// with the backend's own "Payload too large" message.
func readCapped(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxResponseBytes+1))
	if err != nil {
		return nil, networkError(err)
	}
	if len(body) > MaxResponseBytes {
		return nil, badResponseShape(MsgPayloadTooLarge, nil)
	}
	return body, nil
}

func (c *Client) fail(operation string, err error) error {
	metrics.RecordOperation(operation, false)
	failure, ok := AsFailure(err)
	if !ok {
		return err
	}

	metrics.RecordClientFailure(operation, string(failure.Origin))
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("kind", string(failure.Kind)),
		zap.String("origin", string(failure.Origin)),
	}
	if failure.StatusCode > 0 {
		fields = append(fields, zap.Int("status", failure.StatusCode))
	}
	if failure.Kind == KindRateLimited || failure.Kind == KindInvalidInput {
		c.debug(failure.Message, fields...)
	} else {
		c.warn(failure.Message, fields...)
	}
	return failure
}

// nextStamp returns a strictly increasing epoch millisecond value.
func (c *Client) nextStamp() int64 {
	ms := c.now().UnixMilli()

	c.stampMu.Lock()
	defer c.stampMu.Unlock()

	if ms <= c.lastStamp {
		ms = c.lastStamp + 1
	}
	c.lastStamp = ms
	return ms
}

func (c *Client) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) debug(msg string, fields ...zap.Field) {
	if c.Logger != nil {
		c.Logger.Debug(msg, fields...)
	}
}

func (c *Client) warn(msg string, fields ...zap.Field) {
	if c.Logger != nil {
		c.Logger.Warn(msg, fields...)
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
