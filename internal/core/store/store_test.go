package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thumbsmith/thumbsmith/internal/config"
	"github.com/thumbsmith/thumbsmith/internal/core"
)

func TestResolveTarget(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "thumbsmith.db")

	cases := []struct {
		name  string
		cfg   config.StoreConfig
		dsn   string
		local bool
	}{
		{"remote url gets token", config.StoreConfig{URL: "libsql://db.turso.io", AuthToken: "tok"}, "libsql://db.turso.io?authToken=tok", false},
		{"existing query is kept", config.StoreConfig{URL: "libsql://db.turso.io?foo=bar", AuthToken: "tok"}, "libsql://db.turso.io?authToken=tok&foo=bar", false},
		{"explicit token wins", config.StoreConfig{URL: "libsql://db.turso.io?authToken=a", AuthToken: "b"}, "libsql://db.turso.io?authToken=a", false},
		{"file prefix", config.StoreConfig{Path: "file:./thumbsmith.db"}, "file:./thumbsmith.db", true},
		{"memory", config.StoreConfig{Path: ":memory:"}, ":memory:", true},
		{"plain path", config.StoreConfig{Path: nested}, "file:" + nested, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolveTarget(tc.cfg)
			require.NoError(t, err)
			require.Equal(t, tc.dsn, got.dsn)
			require.Equal(t, tc.local, got.local)
		})
	}
	require.DirExists(t, filepath.Dir(nested))

	_, err := resolveTarget(config.StoreConfig{})
	require.Error(t, err)
}

func TestTargetFile(t *testing.T) {
	require.False(t, target{dsn: memoryDSN, local: true}.file())
	require.True(t, target{dsn: "file:/tmp/x.db", local: true}.file())
	require.False(t, target{dsn: "libsql://db.turso.io"}.file())
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []core.ThumbnailRecord{
		{ID: "a", CreatedAt: base},
		{ID: "c", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "b", CreatedAt: base.Add(time.Minute)},
	}

	SortNewestFirst(records)
	require.Equal(t, []string{"c", "b", "a"}, []string{records[0].ID, records[1].ID, records[2].ID})
}
