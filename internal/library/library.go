// Package library manages a signed-in user's saved thumbnails.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/thumbsmith/thumbsmith/internal/auth"
	"github.com/thumbsmith/thumbsmith/internal/core"
	"github.com/thumbsmith/thumbsmith/internal/metrics"
)

// Messages returned to users.
const (
	MsgSaveFailed   = "Failed to save thumbnail data"
	MsgFetchFailed  = "Failed to fetch user thumbnails"
	MsgDeleteFailed = "Failed to delete thumbnail"
)

// ErrNotFound is returned for missing records and for records owned by
// another user.
var ErrNotFound = core.ErrThumbnailNotFound

// Store persists thumbnail records.
type Store interface {
	CreateThumbnail(ctx context.Context, record core.ThumbnailRecord) (*core.ThumbnailRecord, error)
	ListThumbnailsByOwner(ctx context.Context, owner string) ([]core.ThumbnailRecord, error)
	GetThumbnail(ctx context.Context, id string) (*core.ThumbnailRecord, error)
	DeleteThumbnail(ctx context.Context, id string) error
}

// Error is a storage failure carrying a user-facing message.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Service gates store access on the current user.
type Service struct {
	Store  Store
	Auth   auth.Provider
	Logger *logging.Logger
}

// New returns a library service.
func New(store Store, provider auth.Provider) *Service {
	return &Service{Store: store, Auth: provider}
}

// Save stores record under the current user. Any user id on record is
// replaced.
func (s *Service) Save(ctx context.Context, record core.ThumbnailRecord) (*core.ThumbnailRecord, error) {
	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	record.UserID = user.ID

	saved, err := s.Store.CreateThumbnail(ctx, record)
	if err != nil {
		s.warn("save thumbnail failed", zap.String("user", user.ID), zap.Error(err))
		metrics.RecordOperation("library_save", false)
		metrics.RecordOperationError("library_save", "database")
		return nil, &Error{Message: MsgSaveFailed, Err: err}
	}
	metrics.RecordOperation("library_save", true)
	return saved, nil
}

// List returns the current user's thumbnails, newest first.
func (s *Service) List(ctx context.Context) ([]core.ThumbnailRecord, error) {
	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	records, err := s.Store.ListThumbnailsByOwner(ctx, user.ID)
	if err != nil {
		s.warn("list thumbnails failed", zap.String("user", user.ID), zap.Error(err))
		metrics.RecordOperation("library_list", false)
		metrics.RecordOperationError("library_list", "database")
		return nil, &Error{Message: fmt.Sprintf("%s: %s", MsgFetchFailed, err.Error()), Err: err}
	}
	metrics.RecordOperation("library_list", true)
	return records, nil
}

// Get returns one of the current user's thumbnails.
func (s *Service) Get(ctx context.Context, id string) (*core.ThumbnailRecord, error) {
	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.owned(ctx, user, id)
}

// Delete removes one of the current user's thumbnails.
func (s *Service) Delete(ctx context.Context, id string) error {
	user, err := s.currentUser(ctx)
	if err != nil {
		return err
	}
	if _, err := s.owned(ctx, user, id); err != nil {
		return err
	}

	if err := s.Store.DeleteThumbnail(ctx, id); err != nil {
		metrics.RecordOperation("library_delete", false)
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		metrics.RecordOperationError("library_delete", "database")
		s.warn("delete thumbnail failed", zap.String("id", id), zap.Error(err))
		return &Error{Message: MsgDeleteFailed, Err: err}
	}
	metrics.RecordOperation("library_delete", true)
	return nil
}

func (s *Service) owned(ctx context.Context, user *auth.User, id string) (*core.ThumbnailRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	record, err := s.Store.GetThumbnail(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &Error{Message: MsgFetchFailed, Err: err}
	}
	if record.UserID != user.ID {
		return nil, ErrNotFound
	}
	return record, nil
}

func (s *Service) currentUser(ctx context.Context) (*auth.User, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("library is not configured")
	}
	if s.Auth == nil {
		return nil, auth.ErrUnauthenticated
	}
	user, err := s.Auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return nil, auth.ErrUnauthenticated
	}
	return user, nil
}

func (s *Service) warn(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Warn(msg, fields...)
	}
}
