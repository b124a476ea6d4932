package postgres

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	ierr "github.com/flexprice/tiersync/internal/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one embedded schema file, applied at most once
type Migration struct {
	Version string
	SQL     string
}

// Migrations lists the embedded migrations in apply order
func Migrations() ([]Migration, error) {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		body, err := migrationFiles.ReadFile(name)
		if err != nil {
			return nil, ierr.WithError(err).Mark(ierr.ErrSystem)
		}
		out = append(out, Migration{Version: name[len("migrations/"):], SQL: string(body)})
	}
	return out, nil
}

// Migrate applies every embedded migration not yet recorded in
// schema_migrations. Each file runs in its own transaction.
func (db *DB) Migrate(ctx context.Context) ([]string, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create schema_migrations").
			Mark(ierr.ErrDatabase)
	}

	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, m := range migrations {
		err := db.WithTx(ctx, func(ctx context.Context) error {
			q := db.GetQuerier(ctx)

			var exists bool
			if err := q.GetContext(ctx, &exists,
				`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version); err != nil {
				return err
			}
			if exists {
				return nil
			}

			if _, err := q.ExecContext(ctx, m.SQL); err != nil {
				return err
			}
			if _, err := q.ExecContext(ctx,
				`INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
				return err
			}
			applied = append(applied, m.Version)
			return nil
		})
		if err != nil {
			return applied, ierr.WithError(err).
				WithHintf("Migration %s failed", m.Version).
				Mark(ierr.ErrDatabase)
		}
	}

	db.logger.Infow("database migrations applied", "applied", applied, "total", len(migrations))
	return applied, nil
}
