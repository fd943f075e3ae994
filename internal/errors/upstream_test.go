package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thumbsmith/thumbsmith/internal/genclient"
)

func TestFromFailureCodes(t *testing.T) {
	tests := []struct {
		failure *genclient.Failure
		code    string
		status  int
	}{
		{&genclient.Failure{Kind: genclient.KindRateLimited, Origin: genclient.OriginRateLimited, Message: genclient.MsgRateLimited}, CodeRateLimited, http.StatusTooManyRequests},
		{&genclient.Failure{Kind: genclient.KindServerReported, Origin: genclient.OriginClientHTTP, Message: "bad video", StatusCode: 400}, CodeUpstreamRejected, http.StatusBadGateway},
		{&genclient.Failure{Kind: genclient.KindBadResponseShape, Origin: genclient.OriginBadResponseShape, Message: genclient.MsgExpectedJSON}, CodeUpstreamBadResponse, http.StatusBadGateway},
		{&genclient.Failure{Kind: genclient.KindNetwork, Origin: genclient.OriginNetwork, Message: "refused"}, CodeUpstreamUnavailable, http.StatusServiceUnavailable},
		{&genclient.Failure{Kind: genclient.KindNetwork, Origin: genclient.OriginNetwork, Message: "slow", Err: context.DeadlineExceeded}, "TIMEOUT", http.StatusGatewayTimeout},
		{&genclient.Failure{Kind: genclient.KindInvalidInput, Origin: genclient.OriginInvalidInput, Message: genclient.MsgInvalidURL}, "INVALID_INPUT", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			envelope := FromFailure(context.Background(), tt.failure)
			require.Equal(t, tt.code, envelope.Code)
			require.Equal(t, tt.failure.Message, envelope.Message)
			require.Equal(t, tt.status, HTTPStatusFromEnvelope(envelope))
		})
	}
}

func TestRespondWithErrorSetsRetryAfter(t *testing.T) {
	failure := &genclient.Failure{
		Kind:       genclient.KindRateLimited,
		Origin:     genclient.OriginRateLimited,
		Message:    genclient.MsgRateLimited,
		RetryAfter: 12500 * time.Millisecond,
	}
	req := httptest.NewRequest(http.MethodPost, "/api/style", nil)
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, fmt.Errorf("style: %w", failure))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "13", rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), genclient.MsgRateLimited)
}

func TestFromErrorFallsBackToInternal(t *testing.T) {
	envelope := FromError(context.Background(), fmt.Errorf("boom"))
	require.Equal(t, "INTERNAL_ERROR", envelope.Code)
}

func TestEnvelopeStatusCatalog(t *testing.T) {
	require.Equal(t, http.StatusNotFound, HTTPStatusFromEnvelope(NewNotFoundError("gone")))
	require.Equal(t, http.StatusUnauthorized, HTTPStatusFromEnvelope(WrapUnauthorized(context.Background(), nil, "Authentication required")))
	require.Equal(t, http.StatusInternalServerError, HTTPStatusFromEnvelope(New("SOMETHING_ELSE", "x")))
	require.Equal(t, http.StatusInternalServerError, HTTPStatusFromEnvelope(nil))
}

func TestWrapRecordsCause(t *testing.T) {
	envelope := WrapDatabaseError(context.Background(), fmt.Errorf("disk full"), "Failed to save thumbnail")
	require.Equal(t, CodeDatabase, envelope.Code)
	require.Equal(t, "disk full", envelope.Context["wrapped_error"])
	require.NotEmpty(t, envelope.CorrelationID)
}

func TestRespondWithEnvelopeBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/library/x", nil)
	rec := httptest.NewRecorder()

	RespondWithEnvelope(rec, req, WrapNotFound(req.Context(), nil, "Thumbnail not found"))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Empty(t, rec.Header().Get("Retry-After"))

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, CodeNotFound, body.Error.Code)
	require.Equal(t, "Thumbnail not found", body.Error.Message)
	require.NotEmpty(t, body.Error.RequestID)
}
