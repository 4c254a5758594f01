package storage

import (
	"context"
	"fmt"
)

var _ MasterStore = (*BlobBackend)(nil)

// BlobBackend keeps the image bytes in the record's blob column. Persisting
// and deleting the row is the record layer's job, so Delete never does I/O.
type BlobBackend struct{}

func NewBlobBackend() *BlobBackend {
	return &BlobBackend{}
}

func (b *BlobBackend) Write(ctx context.Context, rec *Record, data []byte) error {
	if rec == nil {
		return fmt.Errorf("blob write: record cannot be nil")
	}
	rec.Blob = data
	return nil
}

func (b *BlobBackend) Read(ctx context.Context, rec *Record) ([]byte, error) {
	if rec == nil || len(rec.Blob) == 0 {
		return nil, ErrNotFound
	}
	return rec.Blob, nil
}

func (b *BlobBackend) Delete(ctx context.Context, rec *Record) error {
	return nil
}

func (b *BlobBackend) Exists(ctx context.Context, rec *Record) (bool, error) {
	return rec != nil && len(rec.Blob) > 0, nil
}

func (b *BlobBackend) Location(rec *Record) string {
	if rec.HasID() {
		return "blob:" + rec.ID
	}
	return "blob:<unassigned>"
}
