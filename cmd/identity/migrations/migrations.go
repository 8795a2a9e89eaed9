// Package migrations embeds the account schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var Migrations embed.FS

// Command is a goose verb supported by Run.
type Command string

const (
	Up     Command = "up"
	Down   Command = "down"
	Status Command = "status"
)

// gooseRun is a seam for tests.
var gooseRun = func(ctx context.Context, cmd Command, db *sql.DB) error {
	switch cmd {
	case Up:
		return goose.UpContext(ctx, db, ".")
	case Down:
		return goose.DownContext(ctx, db, ".")
	case Status:
		return goose.StatusContext(ctx, db, ".")
	default:
		return fmt.Errorf("migrations: unknown command %q", cmd)
	}
}

// Run applies cmd against db using the embedded migrations.
func Run(ctx context.Context, db *sql.DB, cmd Command) error {
	goose.SetBaseFS(Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseRun(ctx, cmd, db)
}
