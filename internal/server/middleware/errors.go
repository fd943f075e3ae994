package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/thumbsmith/thumbsmith/internal/metrics"
	"github.com/thumbsmith/thumbsmith/internal/observability"
)

// Recovery turns a handler panic into a 500 JSON error and counts it. The
// body matches the error documents written by internal/errors, which cannot
// be imported here.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			id := GetRequestID(r.Context())
			stack := string(debug.Stack())
			metrics.RecordPanic()
			if logger := observability.ServerLogger; logger != nil {
				logger.Error("Handler panicked",
					zap.String("request_id", id),
					zap.String("path", r.URL.Path),
					zap.Any("panic", recovered),
					zap.String("stack", stack))
			}

			envelope := errors.NewErrorEnvelope("INTERNAL_ERROR", fmt.Sprintf("panic: %v", recovered)).
				WithCorrelationID(id)
			writePanic(w, envelope)
		}()

		next.ServeHTTP(w, r)
	})
}

type panicBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func writePanic(w http.ResponseWriter, envelope *errors.ErrorEnvelope) {
	var body panicBody
	body.Error.Code = envelope.Code
	body.Error.Message = envelope.Message
	body.Error.RequestID = envelope.CorrelationID

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(body)
}
