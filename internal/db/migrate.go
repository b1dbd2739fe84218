package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Migrate applies all pending schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	migdir, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}

	// The pool owns the connections; the *sql.DB is only a view for goose.
	sqlDB := stdlib.OpenDBFromPool(db.pool)

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migdir)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	ver, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("checking database version: %w", err)
	}
	log.Info().Int64("version", ver).Msg("current database version")

	for {
		res, err := provider.UpByOne(ctx)
		if res != nil {
			log.Debug().Msgf("migration: %s", res)
		}
		if errors.Is(err, goose.ErrNoNextVersion) {
			break
		}
		if err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
	}

	ver, err = provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("checking database version: %w", err)
	}
	log.Info().Int64("version", ver).Msg("database migrated")

	return nil
}
