// internal/storage/init.go
package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"

	"imagebatch/internal/logger"
)

const migrationPath = "migrations"

//go:embed migrations/*.sql
var migrations embed.FS

func runMigrations(db *sql.DB) error {
	const op = "storage.migrations"

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := goose.Up(db, migrationPath)
	if err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			logger.Log.Info("no migrations to apply")
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	logger.Log.Info("database migrations applied")
	return nil
}
