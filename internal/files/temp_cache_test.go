package files

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *TempCache {
	t.Helper()
	cache, err := NewTempCache(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return cache
}

func TestTempCache_SaveLoadDelete(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	data := []byte("\x89PNG fake payload")

	token, err := cache.Save(ctx, data, "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", token.OriginalFilename)
	assert.True(t, strings.HasSuffix(token.Token, "/photo.jpg"))

	loaded, err := cache.Load(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, data, loaded)

	require.NoError(t, cache.Delete(ctx, token.Token))

	_, err = cache.Load(ctx, token.Token)
	assert.ErrorIs(t, err, ErrTempNotFound)

	// Deleting twice is fine.
	assert.NoError(t, cache.Delete(ctx, token.Token))
}

func TestTempCache_UsesBasename(t *testing.T) {
	cache := newTestCache(t)

	token, err := cache.Save(context.Background(), []byte("x"), `C:\Users\me\My Photo.png`)
	require.NoError(t, err)
	assert.Equal(t, "My Photo.png", token.OriginalFilename)
	assert.True(t, strings.HasSuffix(token.Token, "/My_Photo.png"), token.Token)

	data, err := cache.Load(context.Background(), token.Token)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)

	token, err = cache.Save(context.Background(), []byte("x"), "")
	require.NoError(t, err)
	assert.Empty(t, token.OriginalFilename)
	assert.True(t, strings.HasSuffix(token.Token, "/upload"), token.Token)
}

func TestTempCache_SameFilenameDoesNotCollide(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	tokens := make([]TempToken, 20)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := cache.Save(ctx, []byte{byte(i)}, "photo.jpg")
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, tok := range tokens {
		assert.False(t, seen[tok.Token], "duplicate token %s", tok.Token)
		seen[tok.Token] = true

		data, err := cache.Load(ctx, tok.Token)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i)}, data)
	}
}

func TestTempCache_RejectsForeignTokens(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	for _, token := range []string{"", "photo.jpg", "../../etc/passwd", "not-a-uuid/photo.jpg"} {
		_, err := cache.Load(ctx, token)
		assert.ErrorIs(t, err, ErrTempNotFound, token)
	}
}

func TestTempCache_Sweep(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	stale, err := cache.Save(ctx, []byte("old"), "old.png")
	require.NoError(t, err)
	fresh, err := cache.Save(ctx, []byte("new"), "new.png")
	require.NoError(t, err)

	staleDir := filepath.Join(cache.Root(), strings.Split(stale.Token, "/")[0])
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(staleDir, past, past))

	removed, err := cache.Sweep(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = cache.Load(ctx, stale.Token)
	assert.ErrorIs(t, err, ErrTempNotFound)
	_, err = cache.Load(ctx, fresh.Token)
	assert.NoError(t, err)
}
