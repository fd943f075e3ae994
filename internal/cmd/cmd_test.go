package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/require"

	"github.com/thumbsmith/thumbsmith/internal/auth"
	"github.com/thumbsmith/thumbsmith/internal/config"
	"github.com/thumbsmith/thumbsmith/internal/core"
	"github.com/thumbsmith/thumbsmith/internal/genclient"
	"github.com/thumbsmith/thumbsmith/internal/output"
)

func TestSelectEndpoints(t *testing.T) {
	all, err := selectEndpoints(nil, true)
	require.NoError(t, err)
	require.Equal(t, genclient.Endpoints, all)

	picked, err := selectEndpoints([]string{"Style", "thumbnail,style"}, false)
	require.NoError(t, err)
	require.Equal(t, []genclient.Endpoint{genclient.EndpointStyle, genclient.EndpointThumbnail}, picked)

	_, err = selectEndpoints([]string{"images"}, false)
	require.Error(t, err)

	_, err = selectEndpoints([]string{"style"}, true)
	require.Error(t, err)
}

func TestFilenameFromURL(t *testing.T) {
	require.Equal(t, "abc.png", filenameFromURL("https://cdn.example.com/out/abc.png?sig=1"))
	require.Equal(t, "render.png", filenameFromURL("https://cdn.example.com/render/"))
	require.Equal(t, "output.png", filenameFromURL("https://cdn.example.com/"))
	require.Equal(t, "my-image.jpeg", filenameFromURL("https://cdn.example.com/My Image.jpeg"))
}

func TestReadSummary(t *testing.T) {
	summary, err := readSummary(nil, []string{"  a video about go  "}, "")
	require.NoError(t, err)
	require.Equal(t, "a video about go", summary)

	summary, err = readSummary(strings.NewReader("from stdin\n"), []string{"-"}, "")
	require.NoError(t, err)
	require.Equal(t, "from stdin", summary)

	path := t.TempDir() + "/summary.txt"
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0o600))
	summary, err = readSummary(nil, nil, path)
	require.NoError(t, err)
	require.Equal(t, "from file", summary)

	_, err = readSummary(nil, []string{"x"}, path)
	require.Error(t, err)

	_, err = readSummary(nil, []string{"   "}, "")
	require.EqualError(t, err, "summary is required")
}

func TestExitCodeFor(t *testing.T) {
	limiter := &genclient.RateLimiter{
		Store:  genclient.NewMemoryWindowStore(),
		Limits: map[genclient.Endpoint]genclient.RateLimit{genclient.EndpointStyle: {Requests: 1, Window: time.Minute}},
	}
	ctx := context.Background()
	require.NoError(t, limiter.Admit(ctx, genclient.EndpointStyle))
	limited := limiter.Admit(ctx, genclient.EndpointStyle)
	require.Error(t, limited)

	require.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCodeFor(fmt.Errorf("wrapped: %w", limited)))
	require.Equal(t, foundry.ExitConfigInvalid, ExitCodeFor(auth.ErrUnauthenticated))
	require.Equal(t, foundry.ExitFileNotFound, ExitCodeFor(fmt.Errorf("open: %w", os.ErrNotExist)))
	require.Equal(t, foundry.ExitFailure, ExitCodeFor(errors.New("boom")))
}

func TestLimitsFromConfig(t *testing.T) {
	limits := limitsFromConfig(config.LimitsConfig{ThumbnailQuota: 3, StyleQuota: 1, SummaryQuota: 5})
	require.Equal(t, genclient.RateLimit{Requests: 3, Window: genclient.DefaultWindow}, limits[genclient.EndpointThumbnail])
	require.Equal(t, genclient.RateLimit{Requests: 1, Window: genclient.DefaultWindow}, limits[genclient.EndpointStyle])

	limits = limitsFromConfig(config.LimitsConfig{Window: time.Minute, ThumbnailQuota: 2})
	require.Equal(t, time.Minute, limits[genclient.EndpointSummary].Window)
}

func TestFilterByType(t *testing.T) {
	records := []core.ThumbnailRecord{
		{ID: "1", Type: core.ThumbnailTypeCustom},
		{ID: "2", Type: core.ThumbnailTypeYouTube},
		{ID: "3", Type: core.ThumbnailTypeCustom},
	}
	filtered := filterByType(records, core.ThumbnailTypeCustom)
	require.Len(t, filtered, 2)
	require.Equal(t, "3", filtered[1].ID)
}

func TestWriteResetResults(t *testing.T) {
	results := []resetResult{{Endpoint: genclient.EndpointStyle, Cleared: 2}}

	var buf bytes.Buffer
	require.NoError(t, writeResetResults(&buf, output.FormatTable, results, true))
	require.Equal(t, "Would clear 2 request(s) from style window\n", buf.String())

	buf.Reset()
	require.NoError(t, writeResetResults(&buf, output.FormatJSON, results, false))
	require.Contains(t, buf.String(), `"dry_run": false`)
	require.Contains(t, buf.String(), `"cleared": 2`)
}
