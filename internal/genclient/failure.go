package genclient

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies the failure class returned by the client.
type Kind string

const (
	KindRateLimited      Kind = "RateLimited"
	KindNetwork          Kind = "NetworkError"
	KindServerReported   Kind = "ServerReported"
	KindBadResponseShape Kind = "BadResponseShape"
	KindInvalidInput     Kind = "InvalidInput"
)

// Origin tags where a failure came from.
type Origin string

const (
	OriginRateLimited      Origin = "rate_limited"
	OriginClientHTTP       Origin = "client_http_error"
	OriginServer           Origin = "server_error"
	OriginBadResponseShape Origin = "bad_response_shape"
	OriginNetwork          Origin = "network_error"
	OriginInvalidInput     Origin = "invalid_input"
)

// Messages shown to users verbatim.
const (
	MsgRateLimited      = "Rate limit exceeded. Please try again later."
	MsgGenericError     = "An error occurred"
	MsgBadRequest       = "Bad Request: Invalid parameters provided"
	MsgNotFound         = "Resource not found"
	MsgPayloadTooLarge  = "Payload too large: File size exceeded 16MB"
	MsgInternalServer   = "Internal server error. Please try again later."
	MsgUnexpected       = "An unexpected error occurred"
	MsgExpectedJSON     = "Invalid response format. Expected JSON."
	MsgUnparseable      = "Failed to parse server response. Please try again later."
	MsgMissingURL       = "Failed to generate thumbnail: No URL received"
	MsgInvalidURL       = "Invalid thumbnail URL"
	MsgInvalidImage     = "Invalid image response from server"
	MsgEmptyImage       = "Received empty image file"
	MsgVideoIDRequired  = "video id is required"
	MsgFilenameRequired = "filename is required"

	MsgLimiterUnavailable = "Rate limit store unavailable. Please try again later."
)

// MaxResponseBytes caps backend responses and downloaded images. It matches
// the backend's own upload limit.
const MaxResponseBytes = 16 << 20

// Failure is the single error type produced by the client.
type Failure struct {
	Kind       Kind
	Origin     Origin
	Message    string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (f *Failure) Error() string {
	if f == nil {
		return "generation client failure"
	}
	return f.Message
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// String renders the failure with its tags for logs.
func (f *Failure) String() string {
	if f == nil {
		return ""
	}
	if f.StatusCode > 0 {
		return fmt.Sprintf("%s[%s] status %d: %s", f.Kind, f.Origin, f.StatusCode, f.Message)
	}
	return fmt.Sprintf("%s[%s]: %s", f.Kind, f.Origin, f.Message)
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) && f != nil {
		return f, true
	}
	return nil, false
}

// IsKind reports whether err is a Failure of the given kind.
func IsKind(err error, kind Kind) bool {
	f, ok := AsFailure(err)
	return ok && f.Kind == kind
}

func rateLimited(retryAfter time.Duration) *Failure {
	return &Failure{Kind: KindRateLimited, Origin: OriginRateLimited, Message: MsgRateLimited, RetryAfter: retryAfter}
}

func networkError(err error) *Failure {
	msg := "network request failed"
	if err != nil {
		msg = err.Error()
	}
	return &Failure{Kind: KindNetwork, Origin: OriginNetwork, Message: msg, Err: err}
}

func serverReported(status int, message string) *Failure {
	origin := OriginServer
	if status >= 400 && status < 500 {
		origin = OriginClientHTTP
	}
	return &Failure{Kind: KindServerReported, Origin: origin, Message: message, StatusCode: status}
}

func badResponseShape(message string, err error) *Failure {
	return &Failure{Kind: KindBadResponseShape, Origin: OriginBadResponseShape, Message: message, Err: err}
}

func invalidInput(message string) *Failure {
	return &Failure{Kind: KindInvalidInput, Origin: OriginInvalidInput, Message: message}
}
