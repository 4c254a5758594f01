package ingest

import (
	"compress/flate"
	"compress/zlib"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

type Status int

const (
	Valid Status = iota
	Invalid
	TransportFailure
)

func (s Status) String() string {
	switch s {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case TransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Classification tags the outcome of one ingestion attempt.
type Classification struct {
	Status Status
	Reason string
}

func (c Classification) OK() bool {
	return c.Status == Valid
}

// Codecs without exported error types are recognized by message prefix.
var badInputPrefixes = []string{"gif: ", "webp: ", "vp8: ", "vp8l: ", "riff: "}

// IsBadInput reports whether a decode error is a known bad-input signature.
// Anything else is an engine failure and must not be swallowed.
func IsBadInput(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, image.ErrFormat) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, bmp.ErrUnsupported) ||
		errors.Is(err, zlib.ErrHeader) ||
		errors.Is(err, zlib.ErrChecksum) {
		return true
	}

	var (
		pngFormat   png.FormatError
		pngUnsup    png.UnsupportedError
		jpegFormat  jpeg.FormatError
		jpegUnsup   jpeg.UnsupportedError
		tiffFormat  tiff.FormatError
		tiffUnsup   tiff.UnsupportedError
		flateCorrup flate.CorruptInputError
	)
	if errors.As(err, &pngFormat) || errors.As(err, &pngUnsup) ||
		errors.As(err, &jpegFormat) || errors.As(err, &jpegUnsup) ||
		errors.As(err, &tiffFormat) || errors.As(err, &tiffUnsup) ||
		errors.As(err, &flateCorrup) {
		return true
	}

	msg := err.Error()
	for _, prefix := range badInputPrefixes {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
