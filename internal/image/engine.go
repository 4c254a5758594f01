package image

import (
	img "image"
)

type Format string

const (
	FormatPNG  Format = "png"
	FormatJPG  Format = "jpg"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
	FormatWEBP Format = "webp"
)

// Lossy reports whether a quality setting means anything for the format.
func (f Format) Lossy() bool {
	return f == FormatJPG
}

func (f Format) Extension() string {
	return string(f)
}

func (f Format) ContentType() string {
	switch f {
	case FormatJPG:
		return "image/jpeg"
	case "":
		return "application/octet-stream"
	default:
		return "image/" + string(f)
	}
}

func formatFromDecoder(name string) Format {
	if name == "jpeg" {
		return FormatJPG
	}
	return Format(name)
}

// Engine is the pixel capability. Nothing outside this package touches pixels.
type Engine interface {
	Decode(data []byte) (img.Image, Format, error)
	Encode(src img.Image, format Format, quality int) ([]byte, error)
	Metadata(src img.Image) (width, height int)
	Apply(src img.Image, op Op) (img.Image, error)
}

// MasterImage is a decoded handle plus the metadata recorded at decode time.
// It belongs to one orchestrator cycle and is released when that cycle has
// produced its bytes.
type MasterImage struct {
	Image  img.Image
	Width  int
	Height int
	Format Format
}

func NewMasterImage(e Engine, src img.Image, format Format) *MasterImage {
	w, h := e.Metadata(src)
	return &MasterImage{Image: src, Width: w, Height: h, Format: format}
}

// Release drops the pixel buffer so it can be collected.
func (m *MasterImage) Release() {
	if m == nil {
		return
	}
	m.Image = nil
}

func (m *MasterImage) Released() bool {
	return m == nil || m.Image == nil
}
