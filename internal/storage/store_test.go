package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"masterimage/internal/config"
)

func fsConfig(t *testing.T) *config.StorageConfig {
	t.Helper()
	cfg := config.DefaultStorage()
	cfg.Directory = filepath.Join(t.TempDir(), "img")
	return &cfg
}

func TestNew_SelectsBackend(t *testing.T) {
	cfg := fsConfig(t)
	assert.IsType(t, &FilesystemBackend{}, New(cfg))

	cfg.Columns.Blob = true
	assert.IsType(t, &BlobBackend{}, New(cfg))
}

func TestFilesystemBackend_RoundTrip(t *testing.T) {
	cfg := fsConfig(t)
	store := NewFilesystemBackend(cfg)
	ctx := context.Background()
	rec := &Record{ID: "123", CreatedAt: time.Date(2007, time.November, 24, 0, 0, 0, 0, time.UTC)}

	exists, err := store.Exists(ctx, rec)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Read(ctx, rec)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Write(ctx, rec, []byte("pixels")))

	expected := filepath.Join(cfg.Directory, "2007", "11", "24", "123.png")
	assert.Equal(t, expected, store.Location(rec))
	_, err = os.Stat(expected)
	require.NoError(t, err)

	data, err := store.Read(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, []byte("pixels"), data)

	// Overwrite replaces the content.
	require.NoError(t, store.Write(ctx, rec, []byte("newer")))
	data, err = store.Read(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, []byte("newer"), data)

	require.NoError(t, store.Delete(ctx, rec))
	exists, err = store.Exists(ctx, rec)
	require.NoError(t, err)
	assert.False(t, exists)

	// Empty date directories are pruned, the root stays.
	_, err = os.Stat(filepath.Join(cfg.Directory, "2007"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(cfg.Directory)
	assert.NoError(t, err)
}

func TestFilesystemBackend_DeleteMissingIsNoop(t *testing.T) {
	store := NewFilesystemBackend(fsConfig(t))
	assert.NoError(t, store.Delete(context.Background(), &Record{ID: "404"}))
}

func TestFilesystemBackend_RequiresID(t *testing.T) {
	store := NewFilesystemBackend(fsConfig(t))
	err := store.Write(context.Background(), &Record{}, []byte("x"))
	assert.Error(t, err)
	assert.Contains(t, store.Location(&Record{}), "<unassigned>")
}

func TestBlobBackend(t *testing.T) {
	store := NewBlobBackend()
	ctx := context.Background()
	rec := &Record{ID: "9"}

	_, err := store.Read(ctx, rec)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Write(ctx, rec, []byte("blob")))
	assert.Equal(t, []byte("blob"), rec.Blob)

	data, err := store.Read(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), data)

	exists, err := store.Exists(ctx, rec)
	require.NoError(t, err)
	assert.True(t, exists)

	// Delete leaves the blob to the record layer.
	require.NoError(t, store.Delete(ctx, rec))
	assert.Equal(t, []byte("blob"), rec.Blob)
	assert.Equal(t, "blob:9", store.Location(rec))
}
