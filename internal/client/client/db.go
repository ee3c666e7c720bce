package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/miroir/internal/client/migrations"
	"github.com/dmitrijs2005/miroir/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/miroir/internal/filex"

	_ "modernc.org/sqlite"
)

type Repositories struct {
	Metadata metadata.Repository
}

func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Metadata: metadata.NewSQLiteRepository(db),
	}
}

// RunMigrations applies the embedded SQLite migrations. Already applied
// versions are skipped.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	p, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// InitDatabase opens (creating if needed) the local SQLite database at dsn
// and migrates it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	if _, err := filex.EnsureParentDir(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection keeps :memory: databases alive between calls
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
