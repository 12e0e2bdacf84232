package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karan-0412/nabha/internal/repository"
)

func TestDocumentStore_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store, err := NewDocumentStore(Config{})
	require.NoError(t, err)

	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, repository.ErrDocumentNotFound)

	rev, err := store.Put(ctx, "k", []byte(`{"a":1}`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	// creating again must fail
	_, err = store.Put(ctx, "k", []byte(`{}`), 0)
	assert.ErrorIs(t, err, repository.ErrRevisionConflict)

	// stale revision
	rev, err = store.Put(ctx, "k", []byte(`{"a":2}`), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)
	_, err = store.Put(ctx, "k", []byte(`{"a":3}`), 1)
	assert.ErrorIs(t, err, repository.ErrRevisionConflict)

	doc, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(doc.Data))
	assert.Equal(t, int64(2), doc.Revision)
}

func TestDocumentStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store, err := NewDocumentStore(Config{})
	require.NoError(t, err)

	_, err = store.Put(ctx, "k", []byte("abc"), 0)
	require.NoError(t, err)

	doc, err := store.Get(ctx, "k")
	require.NoError(t, err)
	doc.Data[0] = 'z'

	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again.Data))
}

func TestDocumentStore_RevisionNeverRewinds(t *testing.T) {
	ctx := context.Background()
	store, err := NewDocumentStore(Config{})
	require.NoError(t, err)

	_, err = store.Put(ctx, "k", []byte("x"), 0)
	require.NoError(t, err)
	rev, err := store.Put(ctx, "k", []byte("y"), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)

	_, err = store.Put(ctx, "k", []byte("z"), 0)
	assert.ErrorIs(t, err, repository.ErrRevisionConflict)
	_, err = store.Put(ctx, "k", []byte("z"), 1)
	assert.ErrorIs(t, err, repository.ErrRevisionConflict)
}

func TestDocumentStore_Snapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "telemed.snapshot")

	store, err := NewDocumentStore(Config{SnapshotPath: path})
	require.NoError(t, err)
	_, err = store.Put(ctx, "telemed-db-v1", []byte(`{"seedVersion":3}`), 0)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewDocumentStore(Config{SnapshotPath: path})
	require.NoError(t, err)
	doc, err := reopened.Get(ctx, "telemed-db-v1")
	require.NoError(t, err)
	assert.Equal(t, `{"seedVersion":3}`, string(doc.Data))
	assert.Equal(t, int64(1), doc.Revision)
}
