package core

import (
	"citydesk/internal/infra/persistence/memory"
	"citydesk/pkg/domain"
	"context"
	"fmt"
	"os"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver      StorageDriver `yaml:"driver"`
	SQLitePath  string        `yaml:"sqlite_path"`
	PostgresDSN string        `yaml:"postgres_dsn"`
}

// StorageConfigFromEnv reads the backend selection from environment variables.
// Defaults to sqlite when unset.
//
//	CITYDESK_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	CITYDESK_SQLITE_PATH: path to sqlite file (default ./citydesk.db)
//	CITYDESK_POSTGRES_DSN: postgres DSN when driver=postgres
func StorageConfigFromEnv() StorageConfig {
	return StorageConfig{
		Driver:      StorageDriver(os.Getenv("CITYDESK_STORAGE_DRIVER")),
		SQLitePath:  os.Getenv("CITYDESK_SQLITE_PATH"),
		PostgresDSN: os.Getenv("CITYDESK_POSTGRES_DSN"),
	}
}

// OpenPersistentStore opens the backend described by cfg.
func OpenPersistentStore(ctx context.Context, cfg StorageConfig, engine *RulesEngine) (PersistentStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return NewSQLiteStore(cfg.SQLitePath, engine)
	case StoragePostgres:
		return NewPostgresStore(ctx, cfg.PostgresDSN, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
