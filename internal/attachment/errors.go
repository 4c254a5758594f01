package attachment

import (
	"errors"
	"fmt"
	"strings"

	"masterimage/internal/storage"
)

const (
	FieldImage    = "image_file"
	FieldImageURL = "image_file_url"
)

var ErrDeleted = errors.New("record image was deleted")

// ValidationError is reported to the caller's error collection, never raised.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// ValidationErrors lets a record layer return validation failures as an error.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// MasterImageNotFoundError means there is no stored image and no default.
type MasterImageNotFoundError struct {
	RecordID string
	Path     string
}

func (e *MasterImageNotFoundError) Error() string {
	return fmt.Sprintf("master image not found for record %q, expected at %s", e.RecordID, e.Path)
}

func (e *MasterImageNotFoundError) Unwrap() error {
	return storage.ErrNotFound
}
