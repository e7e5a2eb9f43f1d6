package docstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFileStorePutGetPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store, err := NewJSONFileStore(dir, WithJSONFileClock(func() time.Time { return now }))
	require.NoError(t, err)

	first, err := store.Put(ctx, "products", "gate-hinge", []byte(`{"title":"Gate Hinge"}`))
	require.NoError(t, err)
	assert.Equal(t, now, first.CreatedAt)

	now = now.Add(time.Hour)
	second, err := store.Put(ctx, "products", "gate-hinge", []byte(`{"title":"Heavy Gate Hinge"}`))
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, now, second.UpdatedAt)

	got, err := store.Get(ctx, "products", "gate-hinge")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Heavy Gate Hinge"}`, string(got.Data))

	_, err = os.Stat(filepath.Join(dir, "products.json"))
	require.NoError(t, err)
}

func TestJSONFileStoreReloadsFromDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewJSONFileStore(dir)
	require.NoError(t, err)
	_, err = store.Put(ctx, "gallery", "b", []byte(`{"n":2}`))
	require.NoError(t, err)
	_, err = store.Put(ctx, "gallery", "a", []byte(`{"n":1}`))
	require.NoError(t, err)

	reopened, err := NewJSONFileStore(dir)
	require.NoError(t, err)
	docs, err := reopened.List(ctx, "gallery")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
}

func TestJSONFileStoreNotFoundAndValidation(t *testing.T) {
	ctx := context.Background()
	store, err := NewJSONFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(ctx, "orders", "missing")
	assert.True(t, IsNotFound(err))

	err = store.Delete(ctx, "orders", "missing")
	assert.True(t, IsNotFound(err))

	_, err = store.Put(ctx, "orders", "o1", []byte(`not json`))
	assert.Error(t, err)

	_, err = store.List(ctx, "../escape")
	assert.Error(t, err)

	assert.NoError(t, store.Ping(ctx))
}

func TestJSONFileStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewJSONFileStore(t.TempDir())
	require.NoError(t, err)
	_, err = store.Put(ctx, "contacts", "c1", []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "contacts", "c1"))
	docs, err := store.List(ctx, "contacts")
	require.NoError(t, err)
	assert.Empty(t, docs)
}
