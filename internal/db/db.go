package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	"github.com/torfstack/assetprint/internal/logging"
	"github.com/torfstack/assetprint/internal/util"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

type Database struct {
	db *sql.DB
}

// New opens the fingerprint history at path, creating it and running all
// pending migrations as needed.
func New(ctx context.Context, path string) (*Database, error) {
	f, err := util.OpenWithParents(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not create database file '%s': %w", path, err)
	}
	_ = f.Close()

	sqlDb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	d := &Database{sqlDb}
	err = d.runMigrations(ctx)
	if err != nil {
		_ = sqlDb.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}
	return d, nil
}

func (d *Database) runMigrations(ctx context.Context) error {
	err := goose.SetDialect("sqlite")
	if err != nil {
		return fmt.Errorf("could not set dialect 'sqlite': %w", err)
	}
	goose.SetLogger(logging.GooseLogger{})
	goose.SetBaseFS(embedMigrations)

	if err = goose.UpContext(ctx, d.db, "migrations"); err != nil {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *Database) Queries() *Queries {
	return &Queries{db: d.db}
}
