package genclient

import (
	"context"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/thumbsmith/thumbsmith/internal/metrics"
)

// Sink turns a downloaded image into a saved artifact.
type Sink interface {
	Acquire(payload []byte, contentType string) (SinkHandle, error)
}

// SinkHandle is a temporary resource holding a payload until it is saved.
// Release is called exactly once whether or not Save ran or succeeded.
type SinkHandle interface {
	Save(filename string) error
	Release()
}

// DownloadAsFile fetches an image and saves it through sink under filename.
func (c *Client) DownloadAsFile(ctx context.Context, url, filename string, sink Sink) error {
	if c == nil {
		return fmt.Errorf("generation client not configured")
	}
	if !isHTTPURL(url) {
		return c.fail(OpDownload, invalidInput(MsgInvalidURL))
	}
	if strings.TrimSpace(filename) == "" {
		return c.fail(OpDownload, invalidInput(MsgFilenameRequired))
	}
	if sink == nil {
		return fmt.Errorf("download sink is required")
	}

	payload, contentType, err := c.fetchImage(ctx, url)
	if err != nil {
		return c.fail(OpDownload, err)
	}

	handle, err := sink.Acquire(payload, contentType)
	if err != nil {
		metrics.RecordOperation(OpDownload, false)
		return fmt.Errorf("prepare download: %w", err)
	}
	defer handle.Release()

	if err := handle.Save(filename); err != nil {
		metrics.RecordOperation(OpDownload, false)
		return fmt.Errorf("save %s: %w", filename, err)
	}

	metrics.RecordOperation(OpDownload, true)
	return nil
}

// isHTTPURL accepts absolute http and https URLs only.
func isHTTPURL(raw string) bool {
	u, err := neturl.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (c *Client) fetchImage(ctx context.Context, url string) ([]byte, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", networkError(err)
	}

	resp, err := c.httpClient().Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		Trace(TraceEntry{
			Operation:  OpDownload,
			Endpoint:   url,
			Method:     http.MethodGet,
			Error:      err.Error(),
			DurationMs: duration.Milliseconds(),
		})
		return nil, "", networkError(err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	contentType := resp.Header.Get("Content-Type")
	Trace(TraceEntry{
		Operation:   OpDownload,
		Endpoint:    url,
		Method:      http.MethodGet,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		DurationMs:  duration.Milliseconds(),
	})

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", &Failure{
			Kind:       KindNetwork,
			Origin:     OriginNetwork,
			Message:    fmt.Sprintf("HTTP error! status: %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return nil, "", badResponseShape(MsgInvalidImage, nil)
	}

	if resp.ContentLength > MaxResponseBytes {
		return nil, "", badResponseShape(MsgPayloadTooLarge, nil)
	}
	payload, err := readCapped(resp.Body)
	if err != nil {
		return nil, "", err
	}
	if len(payload) == 0 {
		return nil, "", badResponseShape(MsgEmptyImage, nil)
	}
	return payload, contentType, nil
}
