package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(context.Background(), db))
	return db
}

func TestSQLiteSetAndGet_InsertThenGet(t *testing.T) {
	s := NewSQLiteStorage(setupDB(t))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "access_token", "abc"))

	v, err := s.Get(ctx, "access_token")
	require.NoError(t, err)
	require.Equal(t, "abc", v)
}

func TestSQLiteGet_NotExists_ReturnsEmpty(t *testing.T) {
	s := NewSQLiteStorage(setupDB(t))

	v, err := s.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.Empty(t, v)
}

func TestSQLiteSet_UpsertOverwritesValue(t *testing.T) {
	s := NewSQLiteStorage(setupDB(t))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "old"))
	require.NoError(t, s.Set(ctx, "k", "new"))

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "new", v)
}

func TestSQLiteDelete_RemovesKey_AndIsIdempotent(t *testing.T) {
	s := NewSQLiteStorage(setupDB(t))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "x", "v"))
	require.NoError(t, s.Delete(ctx, "x"))

	v, err := s.Get(ctx, "x")
	require.NoError(t, err)
	require.Empty(t, v)

	require.NoError(t, s.Delete(ctx, "x"))
}

func TestSQLiteGet_DBErrorWrapped(t *testing.T) {
	db := setupDB(t)
	s := NewSQLiteStorage(db)

	require.NoError(t, db.Close())

	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to get credentials[k]")
}

func TestSQLiteRunMigrations_ErrorReturnedNotFatal(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	err = RunMigrations(context.Background(), db)
	require.Error(t, err, "a migration failure surfaces to the caller")
}

func TestSQLiteMigrations_Idempotent(t *testing.T) {
	db := setupDB(t)

	require.NoError(t, RunMigrations(context.Background(), db))

	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='credentials'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "credentials", name)
}

func TestMemoryStorage_RoundTrip(t *testing.T) {
	m := NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", "1"))
	v, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	require.NoError(t, m.Delete(ctx, "a"))
	v, err = m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, m.Delete(ctx, "a"))
}
