package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"vidtube/cmd/identity/migrations"
)

// Migrate runs a goose command over the embedded account migrations using a
// database/sql handle borrowed from pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cmd migrations.Command) error {
	if pool == nil {
		return fmt.Errorf("%w: migrations need VIDTUBE_DATABASE_URL", ErrConfig)
	}
	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	return migrations.Run(ctx, db, cmd)
}
