package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/miroir/internal/client/docstore/migrations"
	"github.com/dmitrijs2005/miroir/internal/common"
	"github.com/dmitrijs2005/miroir/internal/dbx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects through the pgx driver and applies migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return NewPostgresStore(db), nil
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	p, err := goose.NewProvider(goose.DialectPostgres, db, migrations.Migrations)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Get(ctx context.Context, collection, key string) (Document, error) {
	return get(ctx, s.db, collection, key, false)
}

func (s *PostgresStore) Put(ctx context.Context, collection, key string, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	query :=
		`INSERT INTO documents (collection, key, body)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (collection, key) DO UPDATE SET body = excluded.body, updated_at = now()`

	if _, err := s.db.ExecContext(ctx, query, collection, key, body); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Update shallow-merges fields into the stored document.
func (s *PostgresStore) Update(ctx context.Context, collection, key string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	query :=
		`UPDATE documents SET body = body || $3::jsonb, updated_at = now()
		 WHERE collection = $1 AND key = $2`

	res, err := s.db.ExecContext(ctx, query, collection, key, patch)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// Modify runs fn on the current document with the row locked, then stores
// what fn returns.
func (s *PostgresStore) Modify(ctx context.Context, collection, key string, fn func(Document) (Document, error)) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		doc, err := get(ctx, tx, collection, key, true)
		if err != nil {
			return err
		}
		next, err := fn(doc)
		if err != nil {
			return err
		}
		body, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		query :=
			`UPDATE documents SET body = $3, updated_at = now()
			 WHERE collection = $1 AND key = $2`
		if _, err := tx.ExecContext(ctx, query, collection, key, body); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

func get(ctx context.Context, db dbx.DBTX, collection, key string, lock bool) (Document, error) {
	query :=
		`SELECT body FROM documents
		 WHERE collection = $1 AND key = $2`
	if lock {
		query += ` FOR UPDATE`
	}

	var body []byte
	err := db.QueryRowContext(ctx, query, collection, key).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", collection, key, err)
	}
	return doc, nil
}
