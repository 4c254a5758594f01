package image

import (
	"errors"
	"fmt"
)

type OpKind string

const (
	OpResize     OpKind = "resize"
	OpThumbnail  OpKind = "thumbnail"
	OpFit        OpKind = "fit"
	OpCropSquare OpKind = "crop_square"
	OpRotate     OpKind = "rotate"
	OpCaption    OpKind = "caption"
	OpWatermark  OpKind = "watermark"
	OpGrayscale  OpKind = "grayscale"
)

// Op is one engine operation. It is plain data so that preprocess pipelines
// can be declared in YAML.
type Op struct {
	Kind     OpKind  `yaml:"op"`
	Width    int     `yaml:"width,omitempty"`
	Height   int     `yaml:"height,omitempty"`
	Degrees  int     `yaml:"degrees,omitempty"`
	Text     string  `yaml:"text,omitempty"`
	FontPath string  `yaml:"font,omitempty"`
	FontSize float64 `yaml:"font_size,omitempty"`
	Path     string  `yaml:"path,omitempty"`
	Alpha    float64 `yaml:"alpha,omitempty"`
}

func Resize(width, height int) Op    { return Op{Kind: OpResize, Width: width, Height: height} }
func Thumbnail(width, height int) Op { return Op{Kind: OpThumbnail, Width: width, Height: height} }
func Fit(width, height int) Op       { return Op{Kind: OpFit, Width: width, Height: height} }
func CropSquare() Op                 { return Op{Kind: OpCropSquare} }
func Rotate(degrees int) Op          { return Op{Kind: OpRotate, Degrees: degrees} }
func Caption(text string) Op         { return Op{Kind: OpCaption, Text: text} }
func Grayscale() Op                  { return Op{Kind: OpGrayscale} }

func Watermark(path string, alpha float64) Op {
	return Op{Kind: OpWatermark, Path: path, Alpha: alpha}
}

var ErrUnknownOp = errors.New("unknown image operation")

func (o Op) Validate() error {
	switch o.Kind {
	case OpResize:
		if o.Width < 0 || o.Height < 0 || (o.Width == 0 && o.Height == 0) {
			return fmt.Errorf("resize needs a positive width or height, got %dx%d", o.Width, o.Height)
		}
	case OpThumbnail, OpFit:
		if o.Width <= 0 || o.Height <= 0 {
			return fmt.Errorf("%s needs a positive box, got %dx%d", o.Kind, o.Width, o.Height)
		}
	case OpRotate:
		if o.Degrees%90 != 0 {
			return fmt.Errorf("rotate supports multiples of 90 degrees, got %d", o.Degrees)
		}
	case OpCaption:
		if o.Text == "" {
			return errors.New("caption needs text")
		}
	case OpWatermark:
		if o.Path == "" {
			return errors.New("watermark needs a path")
		}
		if o.Alpha < 0 || o.Alpha > 1 {
			return fmt.Errorf("watermark alpha %.2f is outside 0..1", o.Alpha)
		}
	case OpCropSquare, OpGrayscale:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, o.Kind)
	}
	return nil
}
