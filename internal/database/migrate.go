package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/pressly/goose/v3"
)

// Migrate applies all pending goose migrations from migrationsPath.
func Migrate(ctx context.Context, db *sql.DB, migrationsPath string) error {
	if err := goose.SetDialect("mysql"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	log.Println("Applying database migrations...")
	if err := goose.UpContext(ctx, db, migrationsPath); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get version: %w", err)
	}
	log.Printf("Migrations applied successfully (version %d)", version)
	return nil
}
