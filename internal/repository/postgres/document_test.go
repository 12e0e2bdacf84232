package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karan-0412/nabha/internal/repository"
)

func setupRepository(t *testing.T) repository.DocumentStore {
	t.Helper()
	dsn := os.Getenv("TELEMED_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TELEMED_TEST_POSTGRES_DSN not set")
	}

	db, err := NewDB(Config{DSN: dsn, MaxOpenConns: 2})
	require.NoError(t, err)
	require.NoError(t, EnsureSchema(context.Background(), db))

	repo := NewDocumentRepository(db, "test:"+uuid.NewString()+":")
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestDocumentRepository_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	_, err := repo.Get(ctx, "doc")
	assert.ErrorIs(t, err, repository.ErrDocumentNotFound)

	rev, err := repo.Put(ctx, "doc", []byte(`{"v":1}`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	_, err = repo.Put(ctx, "doc", []byte(`{"v":9}`), 0)
	assert.ErrorIs(t, err, repository.ErrRevisionConflict)

	_, err = repo.Put(ctx, "doc", []byte(`{"v":9}`), 7)
	assert.ErrorIs(t, err, repository.ErrRevisionConflict)

	rev, err = repo.Put(ctx, "doc", []byte(`{"v":2}`), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)

	doc, err := repo.Get(ctx, "doc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(doc.Data))
	assert.Equal(t, int64(2), doc.Revision)

	_, err = repo.Put(ctx, "doc", []byte(`{"v":3}`), 1)
	assert.ErrorIs(t, err, repository.ErrRevisionConflict)
}

func TestWithTx_KeepsCallbackError(t *testing.T) {
	dsn := os.Getenv("TELEMED_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TELEMED_TEST_POSTGRES_DSN not set")
	}
	db, err := NewDB(Config{DSN: dsn, MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	base := NewBaseRepository(db)
	sentinel := errors.New("stop")
	err = base.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	err = base.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		var one int
		return tx.Get(&one, "SELECT 1")
	})
	assert.NoError(t, err)
}
