package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"masterimage/internal/config"
	"masterimage/internal/paths"
)

var _ MasterStore = (*FilesystemBackend)(nil)

// FilesystemBackend stores one file per record at the resolved path.
type FilesystemBackend struct {
	cfg *config.StorageConfig
}

func NewFilesystemBackend(cfg *config.StorageConfig) *FilesystemBackend {
	return &FilesystemBackend{cfg: cfg}
}

func (b *FilesystemBackend) Path(rec *Record) (string, error) {
	return paths.ResolveFilePath(b.cfg, rec.ID, rec.CreatedAt)
}

func (b *FilesystemBackend) Location(rec *Record) string {
	path, err := b.Path(rec)
	if err != nil {
		return filepath.Join(paths.ResolveDirectory(b.cfg, rec.CreatedAt), "<unassigned>."+b.cfg.StorageFormat.Extension())
	}
	return path
}

func (b *FilesystemBackend) Write(ctx context.Context, rec *Record, data []byte) error {
	path, err := b.Path(rec)
	if err != nil {
		return err
	}
	return b.WriteFile(ctx, path, data)
}

func (b *FilesystemBackend) Read(ctx context.Context, rec *Record) ([]byte, error) {
	path, err := b.Path(rec)
	if err != nil {
		return nil, err
	}
	return b.ReadFile(ctx, path)
}

func (b *FilesystemBackend) Delete(ctx context.Context, rec *Record) error {
	path, err := b.Path(rec)
	if err != nil {
		return err
	}
	return b.DeleteFile(ctx, path)
}

func (b *FilesystemBackend) Exists(ctx context.Context, rec *Record) (bool, error) {
	path, err := b.Path(rec)
	if err != nil {
		return false, err
	}
	return b.FileExists(ctx, path)
}

// WriteFile creates parent directories and replaces path atomically.
func (b *FilesystemBackend) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write image file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write image file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write image file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move image file into place: %w", err)
	}
	return nil
}

func (b *FilesystemBackend) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

// DeleteFile removes path if present and prunes date directories left empty,
// stopping at the configured storage directory.
func (b *FilesystemBackend) DeleteFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image file: %w", err)
	}

	root := filepath.Clean(paths.ResolveDirectory(b.cfg, time.Time{}))
	for dir := filepath.Dir(path); dir != root && len(dir) > len(root); dir = filepath.Dir(dir) {
		if err := os.Remove(dir); err != nil {
			break
		}
	}
	return nil
}

func (b *FilesystemBackend) FileExists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
