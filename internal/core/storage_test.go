package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageConfigFromEnv(t *testing.T) {
	t.Setenv("CITYDESK_STORAGE_DRIVER", "postgres")
	t.Setenv("CITYDESK_SQLITE_PATH", "/tmp/x.db")
	t.Setenv("CITYDESK_POSTGRES_DSN", "postgres://db/citydesk")
	assert.Equal(t, StorageConfig{
		Driver:      StoragePostgres,
		SQLitePath:  "/tmp/x.db",
		PostgresDSN: "postgres://db/citydesk",
	}, StorageConfigFromEnv())
}

func TestOpenPersistentStore(t *testing.T) {
	ctx := context.Background()

	mem, err := OpenPersistentStore(ctx, StorageConfig{Driver: StorageMemory}, nil)
	require.NoError(t, err)
	assert.Empty(t, mem.ListCities())

	path := filepath.Join(t.TempDir(), "citydesk.db")
	store, err := OpenPersistentStore(ctx, StorageConfig{SQLitePath: path}, NewDefaultRulesEngine())
	require.NoError(t, err)
	svc := NewService(store)
	_, _, err = svc.CreateCity(ctx, validCity("Rio"))
	require.NoError(t, err)

	reopened, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	assert.Len(t, reopened.ListCities(), 1)

	_, err = OpenPersistentStore(ctx, StorageConfig{Driver: "mongo"}, nil)
	assert.EqualError(t, err, "unknown storage driver mongo")
}
