package db

import (
	"context"

	"github.com/panvault/panvault/internal/db/migrations"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies all pending embedded migrations.
func (db *DB) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db.DB, ".")
}
