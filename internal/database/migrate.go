package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type Migrator interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Migrate applies every embedded migration that is not yet recorded in
// schema_migrations, each one inside its own transaction.
func Migrate(ctx context.Context, db Migrator, logger *slog.Logger) error {
	return migrateFS(ctx, db, migrationFiles, "migrations", logger)
}

func migrateFS(ctx context.Context, db Migrator, files fs.FS, dir string, logger *slog.Logger) error {
	if _, err := db.Exec(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now())"); err != nil {
		logger.Error("Error creating schema_migrations", slog.String("error", err.Error()))
		return err
	}

	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		version := strings.TrimSuffix(name, ".sql")

		var count int
		if err = db.QueryRow(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = $1", version).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		sqlBytes, err := fs.ReadFile(files, dir+"/"+name)
		if err != nil {
			return err
		}

		if err = applyMigration(ctx, db, version, string(sqlBytes)); err != nil {
			logger.Error("Migration failed", slog.String("version", version), slog.String("error", err.Error()))
			return err
		}

		logger.Info("Migration applied", slog.String("version", version))
	}

	return nil
}

func applyMigration(ctx context.Context, db Migrator, version, sql string) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, sql); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("migration %s failed: %w", version, err)
	}

	if _, err = tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}
