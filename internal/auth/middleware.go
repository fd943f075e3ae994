package auth

import (
	"net/http"
	"strings"

	apperrors "github.com/thumbsmith/thumbsmith/internal/errors"
)

// Middleware requires a valid Bearer session token and stores its user on the
// request context.
func Middleware(manager *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok || manager == nil {
				apperrors.RespondWithEnvelope(w, r, apperrors.WrapUnauthorized(r.Context(), nil, ErrUnauthenticated.Error()))
				return
			}

			user, err := manager.Verify(token)
			if err != nil {
				apperrors.RespondWithEnvelope(w, r, apperrors.WrapUnauthorized(r.Context(), err, ErrUnauthenticated.Error()))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return token, token != ""
}
