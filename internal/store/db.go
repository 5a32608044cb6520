// Package store opens the local SQLite database and keeps its schema current.
// The local store is the sole source of truth while offline; it knows nothing
// about network state.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"mealtrack/internal/dbx"
	"mealtrack/internal/store/migrations"
)

// Open opens (creating if necessary) the SQLite database at dsn and applies
// any outstanding migrations. The caller owns the returned handle.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// PurgeUser removes every row belonging to the user across all tables, in a
// single transaction. Used on logout.
func PurgeUser(ctx context.Context, db *sql.DB, userID string) error {
	tables := []string{"meal_records", "meal_configs", "templates", "profiles", "foods"}

	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE user_id = ?", userID); err != nil {
				return fmt.Errorf("purge %s: %w", table, err)
			}
		}
		return nil
	})
}
