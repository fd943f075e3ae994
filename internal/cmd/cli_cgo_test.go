//go:build cgo

package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/require"

	"github.com/thumbsmith/thumbsmith/internal/core"
	"github.com/thumbsmith/thumbsmith/internal/genclient"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCustomGenerationSharesSQLiteQuota(t *testing.T) {
	var thumbnails atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate_thumbnails" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		thumbnails.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"url":"https://cdn.example.com/t.png"}`)
	}))
	t.Cleanup(backend.Close)

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("THUMBSMITH_BACKEND_BASE_URL", backend.URL)
	t.Setenv("THUMBSMITH_STORE_PATH", filepath.Join(dir, "thumbsmith.db"))
	t.Setenv("THUMBSMITH_LIMITS_STORE", "sqlite")
	t.Setenv("THUMBSMITH_PRESETS_DIR", filepath.Join(dir, "presets"))
	t.Setenv("THUMBSMITH_AUTH_USER_ID", "alice")

	for i := 0; i < 2; i++ {
		out, err := runCLI(t, "generate", "custom", "--preset", "bold-gaming", "--text", "GG")
		require.NoError(t, err)
		require.Contains(t, out, "Preset:    bold-gaming")
	}

	// A separate invocation sees the quota used by the earlier ones.
	_, err := runCLI(t, "generate", "custom")
	require.True(t, genclient.IsKind(err, genclient.KindRateLimited))
	require.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCodeFor(err))
	require.EqualValues(t, 2, thumbnails.Load())

	out, err := runCLI(t, "library", "list", "--output-format", "json")
	require.NoError(t, err)
	var records []core.ThumbnailRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	for _, r := range records {
		require.Equal(t, "alice", r.UserID)
		require.Equal(t, core.ThumbnailTypeCustom, r.Type)
	}

	out, err = runCLI(t, "rate-limit", "list", "--endpoint", "thumbnail", "--output-format", "json")
	require.NoError(t, err)
	require.Contains(t, out, `"count": 2`)

	_, err = runCLI(t, "rate-limit", "reset", "--endpoint", "thumbnail", "--output-format", "table")
	require.NoError(t, err)

	_, err = runCLI(t, "generate", "custom", "--style", "plain white")
	require.NoError(t, err)
	require.EqualValues(t, 3, thumbnails.Load())
}
