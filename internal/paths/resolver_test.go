package paths

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"masterimage/internal/config"
	"masterimage/internal/image"
)

func testConfig(dateDirs bool) *config.StorageConfig {
	cfg := config.DefaultStorage()
	cfg.Directory = "/img"
	cfg.UseDateDirectories = dateDirs
	cfg.StorageFormat = image.FormatPNG
	return &cfg
}

func TestResolveFilePath_DateDirectories(t *testing.T) {
	createdAt := time.Date(2007, time.November, 24, 10, 30, 0, 0, time.UTC)

	got, err := ResolveFilePath(testConfig(true), "123", createdAt)
	require.NoError(t, err)
	assert.Equal(t, "/img/2007/11/24/123.png", got)
}

func TestResolveFilePath_FlatDirectory(t *testing.T) {
	createdAt := time.Date(2007, time.November, 24, 10, 30, 0, 0, time.UTC)

	got, err := ResolveFilePath(testConfig(false), "123", createdAt)
	require.NoError(t, err)
	assert.Equal(t, "/img/123.png", got)
}

func TestResolveDirectory_MissingTimestamp(t *testing.T) {
	assert.Equal(t, "/img", ResolveDirectory(testConfig(true), time.Time{}))
}

func TestResolveDirectory_UnpaddedSegments(t *testing.T) {
	createdAt := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "/img/2024/1/5", ResolveDirectory(testConfig(true), createdAt))
}

func TestResolveDirectory_BasePath(t *testing.T) {
	cfg := testConfig(false)
	cfg.Directory = "public/images"
	cfg.BasePath = "/srv/app"
	assert.Equal(t, "/srv/app/public/images", ResolveDirectory(cfg, time.Time{}))

	cfg.Directory = "/abs/images"
	assert.Equal(t, "/abs/images", ResolveDirectory(cfg, time.Time{}))
}

func TestResolveFilePath_Deterministic(t *testing.T) {
	cfg := testConfig(true)
	createdAt := time.Date(2020, time.March, 3, 1, 2, 3, 0, time.UTC)

	first, err := ResolveFilePath(cfg, "42", createdAt)
	require.NoError(t, err)
	second, err := ResolveFilePath(cfg, "42", createdAt)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveFilePath_JPGExtension(t *testing.T) {
	cfg := testConfig(false)
	cfg.StorageFormat = image.FormatJPG

	got, err := ResolveFilePath(cfg, "7", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "/img/7.jpg", got)
}

func TestResolveFilePath_Errors(t *testing.T) {
	cfg := testConfig(false)

	_, err := ResolveFilePath(cfg, "", time.Time{})
	assert.ErrorIs(t, err, ErrMissingID)

	cfg.Directory = ""
	_, err = ResolveFilePath(cfg, "1", time.Time{})
	var cfgErr *config.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "directory", cfgErr.Field)
}
