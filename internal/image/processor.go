package image

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Processor is the Engine backed by the Go image packages.
type Processor struct {
	text *TextRenderer
}

var _ Engine = (*Processor)(nil)

func NewProcessor() *Processor {
	return &Processor{text: &TextRenderer{}}
}

// Decode applies the EXIF orientation tag, so the returned image and its
// dimensions are upright. Re-encoding drops the tag.
func (p *Processor) Decode(data []byte) (image.Image, Format, error) {
	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", err
	}
	return src, formatFromDecoder(name), nil
}

func (p *Processor) Encode(src image.Image, format Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatJPG:
		options := &jpeg.Options{
			Quality: quality,
		}
		if err := jpeg.Encode(&buf, flatten(src, color.White), options); err != nil {
			return nil, err
		}
	case FormatPNG:
		if err := png.Encode(&buf, src); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("encode: unsupported format %q", format)
	}
	return buf.Bytes(), nil
}

func (p *Processor) Metadata(src image.Image) (int, int) {
	b := src.Bounds()
	return b.Dx(), b.Dy()
}

func (p *Processor) Apply(src image.Image, op Op) (image.Image, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	switch op.Kind {
	case OpResize:
		return p.Resize(src, op.Width, op.Height), nil
	case OpThumbnail:
		return resize.Thumbnail(uint(op.Width), uint(op.Height), src, resize.Lanczos3), nil
	case OpFit:
		return p.Fit(src, op.Width, op.Height), nil
	case OpCropSquare:
		return p.CropToSquare(src), nil
	case OpRotate:
		return p.Rotate(src, op.Degrees), nil
	case OpCaption:
		dc := gg.NewContextForImage(src)
		if err := p.text.DrawCentered(dc, op.Text, op.FontPath, op.FontSize); err != nil {
			return nil, fmt.Errorf("caption: %w", err)
		}
		return dc.Image(), nil
	case OpWatermark:
		overlay, err := openImage(op.Path)
		if err != nil {
			return nil, fmt.Errorf("watermark: %w", err)
		}
		alpha := op.Alpha
		if alpha == 0 {
			alpha = 1
		}
		return p.OverlayCentered(src, overlay, alpha), nil
	case OpGrayscale:
		b := src.Bounds()
		gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
		return gray, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOp, op.Kind)
}

func (p *Processor) CropToSquare(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	if w == h {
		return src
	}

	side := min(w, h)
	offset := image.Pt((w-side)/2, (h-side)/2)

	rgba := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min.Add(offset), draw.Src)
	return rgba
}

// Resize scales to width x height; a zero dimension keeps the aspect ratio.
func (p *Processor) Resize(src image.Image, width, height int) image.Image {
	return resize.Resize(uint(width), uint(height), src, resize.Lanczos3)
}

// Fit scales src to the largest size that fits inside the box.
func (p *Processor) Fit(src image.Image, width, height int) image.Image {
	b := src.Bounds()
	scale := min(float64(width)/float64(b.Dx()), float64(height)/float64(b.Dy()))
	dw := max(1, int(float64(b.Dx())*scale+0.5))
	dh := max(1, int(float64(b.Dy())*scale+0.5))

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

func (p *Processor) Rotate(src image.Image, degrees int) image.Image {
	degrees = ((degrees % 360) + 360) % 360
	if degrees == 0 {
		return src
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if degrees == 90 || degrees == 270 {
		w, h = h, w
	}

	dc := gg.NewContext(w, h)
	dc.Translate(float64(w)/2, float64(h)/2)
	dc.Rotate(gg.Radians(float64(degrees)))
	dc.DrawImageAnchored(src, 0, 0, 0.5, 0.5)
	return dc.Image()
}

func (p *Processor) OverlayCentered(base image.Image, overlay image.Image, alpha float64) image.Image {
	baseRGBA := image.NewRGBA(image.Rect(0, 0, base.Bounds().Dx(), base.Bounds().Dy()))
	draw.Draw(baseRGBA, baseRGBA.Bounds(), base, base.Bounds().Min, draw.Src)

	ob := overlay.Bounds()
	overlayRGBA := image.NewNRGBA(image.Rect(0, 0, ob.Dx(), ob.Dy()))
	for y := 0; y < ob.Dy(); y++ {
		for x := 0; x < ob.Dx(); x++ {
			c := color.NRGBAModel.Convert(overlay.At(ob.Min.X+x, ob.Min.Y+y)).(color.NRGBA)
			c.A = uint8(float64(c.A) * alpha)
			overlayRGBA.SetNRGBA(x, y, c)
		}
	}

	centerX := (baseRGBA.Bounds().Dx() - ob.Dx()) / 2
	centerY := (baseRGBA.Bounds().Dy() - ob.Dy()) / 2

	draw.Draw(
		baseRGBA,
		overlayRGBA.Bounds().Add(image.Pt(centerX, centerY)),
		overlayRGBA,
		image.Point{},
		draw.Over,
	)

	return baseRGBA
}

// flatten composes src over a solid background; jpeg has no alpha channel.
func flatten(src image.Image, bg color.Color) image.Image {
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), src, b.Min, draw.Over)
	return out
}

func openImage(path string) (image.Image, error) {
	return imaging.Open(path, imaging.AutoOrientation(true))
}
