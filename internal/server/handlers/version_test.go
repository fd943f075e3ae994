package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionHandlerReportsBuild(t *testing.T) {
	SetVersionInfo("1.2.3", "abcd123", "2025-11-07T12:00:00Z")
	SetAppName("thumbsmith")
	t.Cleanup(func() {
		SetAppName("")
		SetVersionInfo("dev", "unknown", "unknown")
	})

	rec := httptest.NewRecorder()
	VersionHandler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "thumbsmith", resp.App.Name)
	require.Equal(t, "1.2.3", resp.App.Version)
	require.Equal(t, "abcd123", resp.App.Commit)
	require.NotEmpty(t, resp.App.GoVersion)
	require.NotEmpty(t, resp.Dependencies["gofulmen"])
	require.NotEmpty(t, resp.Dependencies["crucible"])
	require.NotEmpty(t, resp.Runtime.Platform)
}

func TestVersionHandlerFallsBackToExecutableName(t *testing.T) {
	SetAppName("")

	rec := httptest.NewRecorder()
	VersionHandler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var resp VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.App.Name)
	require.NotEqual(t, "thumbsmith", resp.App.Name)
}
