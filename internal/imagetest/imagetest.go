// Package imagetest builds small encoded images for tests.
package imagetest

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// RGBA returns a w x h image filled with a horizontal gradient.
func RGBA(w, h int) *image.RGBA {
	m := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.Set(x, y, color.RGBA{R: uint8(x * 255 / max(1, w)), G: uint8(y * 255 / max(1, h)), B: 128, A: 255})
		}
	}
	return m
}

func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, RGBA(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, RGBA(w, h), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// Truncated returns the first n bytes of a valid PNG: a good header with no body.
func Truncated(t testing.TB) []byte {
	t.Helper()
	return PNG(t, 8, 8)[:40]
}

// JPEGWithOrientation returns a w x h JPEG carrying an EXIF APP1 segment with
// the given orientation tag (1..8). Orientation 6 displays as h x w.
func JPEGWithOrientation(t testing.TB, w, h int, orientation uint16) []byte {
	t.Helper()
	raw := JPEG(t, w, h)

	// Big-endian TIFF header, one IFD with a single SHORT entry, no next IFD.
	tiff := []byte{
		'M', 'M', 0x00, 0x2a, 0x00, 0x00, 0x00, 0x08,
		0x00, 0x01,
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01,
		byte(orientation >> 8), byte(orientation), 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	payload := append([]byte("Exif\x00\x00"), tiff...)
	size := len(payload) + 2

	var buf bytes.Buffer
	buf.Write(raw[:2]) // SOI
	buf.Write([]byte{0xff, 0xe1, byte(size >> 8), byte(size)})
	buf.Write(payload)
	buf.Write(raw[2:])
	return buf.Bytes()
}
