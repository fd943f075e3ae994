package errors

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/thumbsmith/thumbsmith/internal/genclient"
	"github.com/thumbsmith/thumbsmith/internal/metrics"
	"github.com/thumbsmith/thumbsmith/internal/observability"
	"github.com/thumbsmith/thumbsmith/internal/server/middleware"
)

type level int

const (
	levelClient level = iota
	levelWarn
	levelError
	levelCritical
)

type codeInfo struct {
	status int
	level  level
}

// withSeverity applies the catalog severity. Client errors carry none and
// are logged at info.
func withSeverity(envelope *errors.ErrorEnvelope, code string) *errors.ErrorEnvelope {
	var (
		updated *errors.ErrorEnvelope
		err     error
	)
	switch catalog[code].level {
	case levelWarn:
		updated, err = envelope.WithSeverity(errors.SeverityMedium)
	case levelError:
		updated, err = envelope.WithSeverity(errors.SeverityHigh)
	case levelCritical:
		updated, err = envelope.WithSeverity(errors.SeverityCritical)
	default:
		return envelope
	}
	if err != nil {
		return envelope
	}
	return updated
}

var catalog = map[string]codeInfo{
	CodeInvalidInput:        {http.StatusBadRequest, levelClient},
	CodeNotFound:            {http.StatusNotFound, levelClient},
	CodeUnauthorized:        {http.StatusUnauthorized, levelClient},
	CodeMethodNotAllowed:    {http.StatusMethodNotAllowed, levelClient},
	CodeRateLimited:         {http.StatusTooManyRequests, levelWarn},
	CodeUpstreamRejected:    {http.StatusBadGateway, levelWarn},
	CodeUpstreamBadResponse: {http.StatusBadGateway, levelWarn},
	CodeUpstreamUnavailable: {http.StatusServiceUnavailable, levelWarn},
	CodeTimeout:             {http.StatusGatewayTimeout, levelWarn},
	CodeUnavailable:         {http.StatusServiceUnavailable, levelWarn},
	CodeDatabase:            {http.StatusInternalServerError, levelError},
	CodeInternal:            {http.StatusInternalServerError, levelError},
	CodeConfigInvalid:       {http.StatusInternalServerError, levelCritical},
}

// HTTPStatusFromEnvelope resolves the response status for an envelope.
// Unknown codes are 500.
func HTTPStatusFromEnvelope(envelope *errors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}
	if info, ok := catalog[envelope.Code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// EnsureEnvelope turns any error into an envelope. Client failures keep
// their kind; anything else becomes INTERNAL_ERROR.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		return New(CodeInternal, "unexpected nil error")
	}
	if envelope, ok := err.(*errors.ErrorEnvelope); ok {
		if envelope == nil {
			return New(CodeInternal, "unexpected nil error")
		}
		return envelope
	}
	if failure, ok := genclient.AsFailure(err); ok {
		return FromFailure(context.Background(), failure)
	}
	return withContext(New(CodeInternal, "unexpected error"), map[string]interface{}{
		"wrapped_error": err.Error(),
	})
}

// HTTPErrorDetail is the body callers receive for a failed request.
type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HTTPErrorResponse is the top-level error document.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// RespondWithError writes err as a JSON error response.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	RespondWithEnvelope(w, r, EnsureEnvelope(err))
}

// RespondWithEnvelope writes envelope, logs it and counts it. Rate limited
// responses also get a Retry-After header.
func RespondWithEnvelope(w http.ResponseWriter, r *http.Request, envelope *errors.ErrorEnvelope) {
	if w == nil {
		return
	}
	if envelope == nil {
		envelope = EnsureEnvelope(nil)
	}
	if envelope.CorrelationID == "" {
		id := ""
		if r != nil {
			id = middleware.GetRequestID(r.Context())
		}
		if id == "" {
			id = "fallback-" + errors.GenerateCorrelationID()
		}
		envelope = envelope.WithCorrelationID(id)
	}

	status := HTTPStatusFromEnvelope(envelope)
	logEnvelope(envelope, status)
	metrics.RecordError(envelope.Code, status)
	if r != nil {
		metrics.RecordErrorByEndpoint(r.URL.Path, envelope.Code)
	}

	setRetryAfter(w, envelope)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{Error: HTTPErrorDetail{
		Code:      envelope.Code,
		Message:   envelope.Message,
		Details:   responseDetails(envelope),
		RequestID: envelope.CorrelationID,
	}})
}

// responseDetails merges envelope details with its context. Details win.
func responseDetails(envelope *errors.ErrorEnvelope) map[string]interface{} {
	details := make(map[string]interface{}, len(envelope.Details)+len(envelope.Context))
	for k, v := range envelope.Context {
		details[k] = v
	}
	for k, v := range envelope.Details {
		details[k] = v
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

func logEnvelope(envelope *errors.ErrorEnvelope, status int) {
	logger := observability.ServerLogger
	if logger == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", status),
		zap.String("request_id", envelope.CorrelationID),
	}
	for k, v := range envelope.Context {
		fields = append(fields, zap.Any(k, v))
	}

	switch catalog[envelope.Code].level {
	case levelError, levelCritical:
		logger.Error(envelope.Message, fields...)
	case levelWarn:
		logger.Warn(envelope.Message, fields...)
	default:
		if status >= http.StatusInternalServerError {
			logger.Error(envelope.Message, fields...)
			return
		}
		logger.Info(envelope.Message, fields...)
	}
}
