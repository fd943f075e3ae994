package genclient

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var statusMessages = map[int]string{
	http.StatusBadRequest:            MsgBadRequest,
	http.StatusNotFound:              MsgNotFound,
	http.StatusRequestEntityTooLarge: MsgPayloadTooLarge,
	http.StatusTooManyRequests:       MsgRateLimited,
	http.StatusInternalServerError:   MsgInternalServer,
}

// StatusMessage returns the fixed message for a non-JSON error status.
func StatusMessage(status int) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return MsgUnexpected
}

func isJSONContent(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}

// classifyResponse checks status and content type, then decodes body into out.
func classifyResponse(status int, header http.Header, body []byte, now time.Time, out any) error {
	contentType := header.Get("Content-Type")

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return statusFailure(status, header, body, now)
	}

	if !isJSONContent(contentType) {
		return badResponseShape(MsgExpectedJSON, nil)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return badResponseShape(MsgUnparseable, err)
	}
	return nil
}

func statusFailure(status int, header http.Header, body []byte, now time.Time) *Failure {
	var msg string
	if isJSONContent(header.Get("Content-Type")) {
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
			msg = payload.Error
		} else {
			msg = MsgGenericError
		}
	} else {
		msg = StatusMessage(status)
	}

	failure := serverReported(status, msg)
	if status == http.StatusTooManyRequests {
		failure.RetryAfter = parseRetryAfter(header.Get("Retry-After"), now)
	}
	return failure
}

// parseRetryAfter accepts delta seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
