// Package migrations holds the embedded schema for the message tables,
// interaction log and singleton counter rows. Migrations run once at startup,
// before the connection pool is opened.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var schema embed.FS

// Run brings the database up to the latest embedded migration
func Run(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(schema)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}
