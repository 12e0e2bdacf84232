package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karan-0412/nabha/internal/repository"
)

func setupStore(t *testing.T) repository.DocumentStore {
	t.Helper()
	url := os.Getenv("TELEMED_TEST_REDIS_URL")
	if url == "" {
		t.Skip("TELEMED_TEST_REDIS_URL not set")
	}

	client, err := NewClient(context.Background(), url, 2)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewDocumentStore(client, "test:"+uuid.NewString()+":")
}

func TestDocumentStore_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	_, err := store.Get(ctx, "doc")
	assert.ErrorIs(t, err, repository.ErrDocumentNotFound)

	rev, err := store.Put(ctx, "doc", []byte(`{"v":1}`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	_, err = store.Put(ctx, "doc", []byte(`{"v":2}`), 0)
	assert.ErrorIs(t, err, repository.ErrRevisionConflict)

	rev, err = store.Put(ctx, "doc", []byte(`{"v":2}`), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)

	doc, err := store.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(doc.Data))
	assert.Equal(t, int64(2), doc.Revision)

	_, err = store.Put(ctx, "doc", []byte(`{"v":3}`), 1)
	assert.ErrorIs(t, err, repository.ErrRevisionConflict)
}
