// Package paths computes where a record's master image lives on disk. Every
// function here is pure: the same config, id and timestamp always give the
// same path.
package paths

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"masterimage/internal/config"
)

var ErrMissingID = errors.New("record id is not assigned")

// ResolveDirectory returns the storage directory for a record created at
// createdAt. A zero createdAt means the timestamp is absent.
func ResolveDirectory(cfg *config.StorageConfig, createdAt time.Time) string {
	dir := cfg.Directory
	if cfg.BasePath != "" && !filepath.IsAbs(dir) {
		dir = filepath.Join(cfg.BasePath, dir)
	}
	if !cfg.UseDateDirectories || createdAt.IsZero() {
		return dir
	}
	return filepath.Join(dir,
		strconv.Itoa(createdAt.Year()),
		strconv.Itoa(int(createdAt.Month())),
		strconv.Itoa(createdAt.Day()),
	)
}

func ResolveFilePath(cfg *config.StorageConfig, id string, createdAt time.Time) (string, error) {
	if strings.TrimSpace(cfg.Directory) == "" {
		return "", &config.ConfigError{Field: "directory", Reason: "required for filesystem storage"}
	}
	if id == "" {
		return "", ErrMissingID
	}
	name := filepath.Base(id) + "." + cfg.StorageFormat.Extension()
	return filepath.Join(ResolveDirectory(cfg, createdAt), name), nil
}
