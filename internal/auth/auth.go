// Package auth resolves the current user for library and studio operations.
package auth

import (
	"context"
	"errors"
	"strings"
)

// ErrUnauthenticated is returned when no user is signed in.
var ErrUnauthenticated = errors.New("Authentication required") //nolint:staticcheck // shown to users verbatim

// User is the signed-in identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Provider reports the current user.
type Provider interface {
	CurrentUser(ctx context.Context) (*User, error)
}

type contextKey struct{}

// WithUser stores user on ctx.
func WithUser(ctx context.Context, user *User) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the user stored on ctx, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	if ctx == nil {
		return nil, false
	}
	user, ok := ctx.Value(contextKey{}).(*User)
	if !ok || user == nil || strings.TrimSpace(user.ID) == "" {
		return nil, false
	}
	return user, true
}

// UserScope returns the id of the user on ctx, or "" when there is none.
func UserScope(ctx context.Context) string {
	if user, ok := UserFromContext(ctx); ok {
		return user.ID
	}
	return ""
}

// ContextProvider reads the user placed on the request context by Middleware.
type ContextProvider struct{}

// CurrentUser implements Provider.
func (ContextProvider) CurrentUser(ctx context.Context) (*User, error) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// StaticProvider always reports the same user. The CLI uses it.
type StaticProvider struct {
	User *User
}

// NewStaticProvider returns a provider for id. An empty id yields a provider
// with no user.
func NewStaticProvider(id string) StaticProvider {
	id = strings.TrimSpace(id)
	if id == "" {
		return StaticProvider{}
	}
	return StaticProvider{User: &User{ID: id}}
}

// CurrentUser implements Provider.
func (p StaticProvider) CurrentUser(context.Context) (*User, error) {
	if p.User == nil || strings.TrimSpace(p.User.ID) == "" {
		return nil, ErrUnauthenticated
	}
	return p.User, nil
}
