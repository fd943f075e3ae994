package library

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thumbsmith/thumbsmith/internal/auth"
	"github.com/thumbsmith/thumbsmith/internal/core"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]core.ThumbnailRecord
	seq     int
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]core.ThumbnailRecord{}}
}

func (m *memoryStore) CreateThumbnail(_ context.Context, record core.ThumbnailRecord) (*core.ThumbnailRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.seq++
	record.ID = fmt.Sprintf("t%d", m.seq)
	record.CreatedAt = time.Unix(int64(m.seq), 0)
	record.UpdatedAt = record.CreatedAt
	m.records[record.ID] = record
	return &record, nil
}

func (m *memoryStore) ListThumbnailsByOwner(_ context.Context, owner string) ([]core.ThumbnailRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []core.ThumbnailRecord
	for _, r := range m.records {
		if r.UserID == owner {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) GetThumbnail(_ context.Context, id string) (*core.ThumbnailRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, core.ErrThumbnailNotFound
	}
	return &r, nil
}

func (m *memoryStore) DeleteThumbnail(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.records[id]; !ok {
		return core.ErrThumbnailNotFound
	}
	delete(m.records, id)
	return nil
}

func TestSaveStampsCurrentUser(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := New(store, auth.NewStaticProvider("alice"))

	saved, err := svc.Save(ctx, core.ThumbnailRecord{UserID: "mallory", Style: "s", ImageURL: "u", Type: core.ThumbnailTypeCustom})
	require.NoError(t, err)
	require.Equal(t, "alice", saved.UserID)

	first, err := svc.Save(ctx, core.ThumbnailRecord{Style: "s2", ImageURL: "u2", Type: core.ThumbnailTypeYouTube})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, first.ID, list[0].ID)
}

func TestRequiresAuthentication(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := New(store, auth.NewStaticProvider(""))

	_, err := svc.Save(ctx, core.ThumbnailRecord{Style: "s", ImageURL: "u", Type: core.ThumbnailTypeCustom})
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
	require.Empty(t, store.records)

	_, err = svc.List(ctx)
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
	require.EqualError(t, svc.Delete(ctx, "t1"), "Authentication required")

	_, err = (&Service{Store: store}).List(ctx)
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestDeleteRefusesOtherOwners(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	alice := New(store, auth.NewStaticProvider("alice"))
	bob := New(store, auth.NewStaticProvider("bob"))

	saved, err := alice.Save(ctx, core.ThumbnailRecord{Style: "s", ImageURL: "u", Type: core.ThumbnailTypeCustom})
	require.NoError(t, err)

	require.ErrorIs(t, bob.Delete(ctx, saved.ID), ErrNotFound)
	_, err = bob.Get(ctx, saved.ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, alice.Delete(ctx, saved.ID))
	require.ErrorIs(t, alice.Delete(ctx, saved.ID), ErrNotFound)
}

func TestStoreFailureMessages(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := New(store, auth.NewStaticProvider("alice"))
	saved, err := svc.Save(ctx, core.ThumbnailRecord{Style: "s", ImageURL: "u", Type: core.ThumbnailTypeCustom})
	require.NoError(t, err)

	cause := errors.New("disk full")
	store.err = cause

	_, err = svc.Save(ctx, core.ThumbnailRecord{Style: "s", ImageURL: "u", Type: core.ThumbnailTypeCustom})
	require.EqualError(t, err, MsgSaveFailed)
	require.ErrorIs(t, err, cause)

	_, err = svc.List(ctx)
	require.EqualError(t, err, "Failed to fetch user thumbnails: disk full")

	err = svc.Delete(ctx, saved.ID)
	require.EqualError(t, err, MsgDeleteFailed)
	var libErr *Error
	require.ErrorAs(t, err, &libErr)
}
