package metadata

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/miroir/internal/dbx"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE metadata (
  key        TEXT PRIMARY KEY,
  value      TEXT NOT NULL,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(schema)
	require.NoError(t, err)
	return db
}

func TestWriteAndRead(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Write(ctx, "miroir_user", `{"uid":"u1"}`))

	v, ok, err := r.Read(ctx, "miroir_user")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"uid":"u1"}`, v)
}

func TestRead_Absent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, ok, err := r.Read(context.Background(), "absent")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, v)
}

func TestRead_EmptyValueIsPresent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Write(ctx, "k", ""))
	_, ok, err := r.Read(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestWrite_UpsertOverwritesValue(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Write(ctx, "k", "old"))
	require.NoError(t, r.Write(ctx, "k", "new"))

	v, _, err := r.Read(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "new", v)
}

func TestList_ReturnsAllPairs(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Write(ctx, "a", "1"))
	require.NoError(t, r.Write(ctx, "b", "2"))

	m, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, m)
}

func TestDelete_RemovesKeyAndIsIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Write(ctx, "x", "1"))
	require.NoError(t, r.Delete(ctx, "x"))

	_, ok, err := r.Read(ctx, "x")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, r.Delete(ctx, "x"))
}

func TestClear_RemovesAllKeys(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Write(ctx, "a", "1"))
	require.NoError(t, r.Write(ctx, "b", "2"))
	require.NoError(t, r.Clear(ctx))

	m, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestWrite_InsideRolledBackTxIsDiscarded(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	_ = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		require.NoError(t, NewSQLiteRepository(tx).Write(ctx, "k", "v"))
		return assert.AnError
	})

	_, ok, err := NewSQLiteRepository(db).Read(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestErrorsAreWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, _, err := r.Read(ctx, "k")
	require.ErrorContains(t, err, "failed to read metadata[k]")

	require.ErrorContains(t, r.Write(ctx, "k", "v"), "failed to write metadata[k]")
	require.ErrorContains(t, r.Delete(ctx, "k"), "failed to delete metadata[k]")
	require.ErrorContains(t, r.Clear(ctx), "failed to clear metadata")

	_, err = r.List(ctx)
	require.ErrorContains(t, err, "failed to list metadata")
}
