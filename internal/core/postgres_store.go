package core

import (
	"citydesk/internal/infra/persistence/postgres"
	"context"
)

// NewPostgresStore constructs a Postgres-backed store from the provided DSN.
func NewPostgresStore(ctx context.Context, dsn string, engine *RulesEngine) (*postgres.Store, error) {
	return postgres.NewStore(ctx, dsn, engine)
}
