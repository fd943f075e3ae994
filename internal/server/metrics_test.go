package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry/exporters"
	"github.com/stretchr/testify/require"

	apperrors "github.com/thumbsmith/thumbsmith/internal/errors"
	"github.com/thumbsmith/thumbsmith/internal/observability"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func stubExporter(t *testing.T, transport roundTripFunc) {
	t.Helper()
	previousClient := metricsProxyClient
	metricsProxyClient = &http.Client{Transport: transport}
	observability.PrometheusExporter = exporters.NewPrometheusExporter("test", ":0")
	t.Cleanup(func() {
		metricsProxyClient = previousClient
		observability.PrometheusExporter = nil
	})
}

func TestMetricsHandlerProxiesExporter(t *testing.T) {
	var accept string
	stubExporter(t, func(req *http.Request) (*http.Response, error) {
		accept = req.Header.Get("Accept")
		resp := &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("genclient_admissions_total{kind=\"thumbnail\",result=\"admitted\"} 2\n")),
		}
		resp.Header.Set("Connection", "close")
		return resp, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept", "text/plain")
	rec := httptest.NewRecorder()
	MetricsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/plain", accept)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	require.Empty(t, rec.Header().Get("Connection"))
	require.Contains(t, rec.Body.String(), "genclient_admissions_total")
}

func TestMetricsHandlerWithoutExporter(t *testing.T) {
	observability.PrometheusExporter = nil

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, apperrors.CodeUnavailable, decodeError(t, rec).Code)
}

func TestMetricsHandlerExporterDown(t *testing.T) {
	stubExporter(t, func(*http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
