package errors

import (
	"context"
	stderrors "errors"
	"math"
	"net/http"
	"strconv"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/thumbsmith/thumbsmith/internal/genclient"
)

// Codes for generation backend failures.
const (
	CodeRateLimited         = "RATE_LIMITED"
	CodeUpstreamRejected    = "UPSTREAM_REJECTED"
	CodeUpstreamBadResponse = "UPSTREAM_BAD_RESPONSE"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
)

const retryAfterKey = "retry_after_seconds"

// FromFailure maps a generation client failure to an envelope. The failure
// message is kept as the envelope message so it can be shown as is.
func FromFailure(ctx context.Context, failure *genclient.Failure) *errors.ErrorEnvelope {
	if failure == nil {
		return EnsureEnvelope(nil)
	}

	code := CodeUpstreamUnavailable
	switch failure.Kind {
	case genclient.KindRateLimited:
		code = CodeRateLimited
	case genclient.KindInvalidInput:
		code = CodeInvalidInput
	case genclient.KindServerReported:
		code = CodeUpstreamRejected
	case genclient.KindBadResponseShape:
		code = CodeUpstreamBadResponse
	case genclient.KindNetwork:
		if stderrors.Is(failure.Err, context.DeadlineExceeded) {
			code = CodeTimeout
		}
	}

	envelope := Wrap(ctx, code, nil, failure.Message)

	details := map[string]interface{}{
		"kind":   string(failure.Kind),
		"origin": string(failure.Origin),
	}
	if failure.StatusCode > 0 {
		details["upstream_status"] = failure.StatusCode
	}
	if failure.RetryAfter > 0 {
		details[retryAfterKey] = int(math.Ceil(failure.RetryAfter.Seconds()))
	}
	return withContext(envelope, details)
}

// FromError maps err to an envelope, recognizing client failures.
func FromError(ctx context.Context, err error) *errors.ErrorEnvelope {
	if failure, ok := genclient.AsFailure(err); ok {
		return FromFailure(ctx, failure)
	}
	return EnsureEnvelope(err)
}

func setRetryAfter(w http.ResponseWriter, envelope *errors.ErrorEnvelope) {
	if envelope == nil || envelope.Code != CodeRateLimited {
		return
	}
	var seconds int
	switch v := envelope.Context[retryAfterKey].(type) {
	case int:
		seconds = v
	case int64:
		seconds = int(v)
	case float64:
		seconds = int(math.Ceil(v))
	}
	if seconds <= 0 {
		return
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
}
