//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thumbsmith/thumbsmith/internal/config"
	"github.com/thumbsmith/thumbsmith/internal/core"
	"github.com/thumbsmith/thumbsmith/internal/genclient"
)

func TestOpenMemoryStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{
		Driver: "libsql",
		Path:   ":memory:",
	}

	store, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, store)
	require.Equal(t, "libsql", store.Driver())
	require.NoError(t, store.Close())
}

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func openMigrated(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	store, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(ctx))
	store.Clock = (&stepClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}).Now
	return store
}

func TestThumbnailLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openMigrated(t)

	first, err := store.CreateThumbnail(ctx, core.ThumbnailRecord{
		UserID:    "alice",
		VideoLink: "https://youtube.com/watch?v=abc",
		Style:     "neon",
		ImageURL:  "https://x/1.png",
		Type:      core.ThumbnailTypeYouTube,
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.Equal(t, first.CreatedAt, first.UpdatedAt)

	second, err := store.CreateThumbnail(ctx, core.ThumbnailRecord{
		UserID:   "alice",
		Style:    "minimal",
		ImageURL: "https://x/2.png",
		Type:     core.ThumbnailTypeCustom,
	})
	require.NoError(t, err)

	_, err = store.CreateThumbnail(ctx, core.ThumbnailRecord{
		UserID:   "bob",
		Style:    "other",
		ImageURL: "https://x/3.png",
		Type:     core.ThumbnailTypeCustom,
	})
	require.NoError(t, err)

	records, err := store.ListThumbnailsByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, second.ID, records[0].ID)
	require.Equal(t, first.ID, records[1].ID)
	require.Equal(t, "https://youtube.com/watch?v=abc", records[1].VideoLink)
	require.Empty(t, records[0].VideoLink)

	got, err := store.GetThumbnail(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, core.ThumbnailTypeYouTube, got.Type)
	require.True(t, first.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, store.DeleteThumbnail(ctx, first.ID))
	require.ErrorIs(t, store.DeleteThumbnail(ctx, first.ID), ErrNotFound)
	_, err = store.GetThumbnail(ctx, first.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListThumbnailsFallsBackWithoutIndex(t *testing.T) {
	ctx := context.Background()
	store := openMigrated(t)

	var ids []string
	for i := 0; i < 3; i++ {
		record, err := store.CreateThumbnail(ctx, core.ThumbnailRecord{
			UserID:   "alice",
			Style:    "s",
			ImageURL: "https://x/y.png",
			Type:     core.ThumbnailTypeCustom,
		})
		require.NoError(t, err)
		ids = append(ids, record.ID)
	}

	_, err := store.DB.ExecContext(ctx, "DROP INDEX "+ownerCreatedIndex)
	require.NoError(t, err)

	records, err := store.ListThumbnailsByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, ids[2], records[0].ID)
	require.Equal(t, ids[1], records[1].ID)
	require.Equal(t, ids[0], records[2].ID)
}

func TestCreateThumbnailValidates(t *testing.T) {
	ctx := context.Background()
	store := openMigrated(t)

	_, err := store.CreateThumbnail(ctx, core.ThumbnailRecord{Style: "s", ImageURL: "u", Type: core.ThumbnailTypeCustom})
	require.Error(t, err)

	_, err = store.CreateThumbnail(ctx, core.ThumbnailRecord{UserID: "a", Style: "s", ImageURL: "u", Type: "gif"})
	require.Error(t, err)
}

func TestRateWindowsSlidingWindow(t *testing.T) {
	ctx := context.Background()
	store := openMigrated(t)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &genclient.RateLimiter{
		Store: store.RateWindows(),
		Clock: func() time.Time { return now },
	}

	require.NoError(t, limiter.Admit(ctx, genclient.EndpointThumbnail))
	require.NoError(t, limiter.Admit(ctx, genclient.EndpointThumbnail))

	now = now.Add(10 * time.Second)
	err := limiter.Admit(ctx, genclient.EndpointThumbnail)
	require.True(t, genclient.IsKind(err, genclient.KindRateLimited))
	failure, _ := genclient.AsFailure(err)
	require.Equal(t, 20*time.Second, failure.RetryAfter)

	require.NoError(t, limiter.Admit(ctx, genclient.EndpointStyle))

	stamps, err := limiter.Snapshot(ctx, genclient.EndpointThumbnail)
	require.NoError(t, err)
	require.Len(t, stamps, 2)

	now = now.Add(20 * time.Second)
	require.NoError(t, limiter.Admit(ctx, genclient.EndpointThumbnail))

	require.NoError(t, limiter.Reset(ctx, genclient.EndpointThumbnail))
	stamps, err = limiter.Snapshot(ctx, genclient.EndpointThumbnail)
	require.NoError(t, err)
	require.Empty(t, stamps)
}

func TestOpenFileStoreUsesWAL(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, config.StoreConfig{Path: t.TempDir() + "/thumbsmith.db"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.Equal(t, 1, store.DB.Stats().MaxOpenConnections)

	var mode string
	require.NoError(t, store.DB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	require.Contains(t, mode, "wal")

	var timeout int
	require.NoError(t, store.DB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
	require.GreaterOrEqual(t, timeout, 1000)
}
