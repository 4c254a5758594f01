package storage

import (
	"context"
	"errors"
	"time"

	"masterimage/internal/config"
)

var ErrNotFound = errors.New("master image not found")

// Record is the caller-owned row a master image is attached to. ID and
// CreatedAt are read-only here; the remaining fields are computed columns the
// record-persistence layer writes.
type Record struct {
	ID        string
	CreatedAt time.Time

	Width    int
	Height   int
	Filename string
	Blob     []byte
}

func (r *Record) HasID() bool {
	return r != nil && r.ID != ""
}

// MasterStore is where the master image bytes live.
type MasterStore interface {
	Write(ctx context.Context, rec *Record, data []byte) error
	Read(ctx context.Context, rec *Record) ([]byte, error)
	Delete(ctx context.Context, rec *Record) error
	Exists(ctx context.Context, rec *Record) (bool, error)
	// Location describes where the image is expected, for diagnostics.
	Location(rec *Record) string
}

// New picks the backend from the column capability flags.
func New(cfg *config.StorageConfig) MasterStore {
	if cfg.Columns.Blob {
		return NewBlobBackend()
	}
	return NewFilesystemBackend(cfg)
}
