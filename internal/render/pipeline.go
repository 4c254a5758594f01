package render

import (
	"context"
	"errors"
	"fmt"
	img "image"

	"masterimage/internal/image"
)

var ErrReleased = errors.New("image buffer already released")

// Transform is a caller-supplied sequence of engine operations.
type Transform func(e image.Engine, src img.Image) (img.Image, error)

// Ops builds a Transform that applies ops in order.
func Ops(ops ...image.Op) Transform {
	return func(e image.Engine, src img.Image) (img.Image, error) {
		cur := src
		for _, op := range ops {
			next, err := e.Apply(cur, op)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op.Kind, err)
			}
			cur = next
		}
		return cur, nil
	}
}

type Pipeline struct {
	engine         image.Engine
	defaultQuality int
}

func NewPipeline(engine image.Engine, defaultQuality int) *Pipeline {
	return &Pipeline{engine: engine, defaultQuality: defaultQuality}
}

func (p *Pipeline) Engine() image.Engine {
	return p.engine
}

// Apply runs t against src and returns a new handle with fresh metadata. src
// is left to the caller to release.
func (p *Pipeline) Apply(ctx context.Context, src *image.MasterImage, t Transform) (*image.MasterImage, error) {
	if src.Released() {
		return nil, ErrReleased
	}
	if t == nil {
		return src, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := t(p.engine, src.Image)
	if err != nil {
		return nil, fmt.Errorf("apply transform: %w", err)
	}
	return image.NewMasterImage(p.engine, out, src.Format), nil
}

// Export encodes src. Quality is only meaningful for jpg; an out-of-range
// value falls back to the pipeline default. An empty format keeps the
// source format when it is exportable and otherwise uses png.
func (p *Pipeline) Export(src *image.MasterImage, format image.Format, quality int) ([]byte, error) {
	if src.Released() {
		return nil, ErrReleased
	}
	if format == "" {
		format = src.Format
		if format != image.FormatJPG {
			format = image.FormatPNG
		}
	}

	if format.Lossy() {
		if quality < 0 || quality > 100 {
			quality = p.defaultQuality
		}
	} else {
		quality = 0
	}

	data, err := p.engine.Encode(src.Image, format, quality)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", format, err)
	}
	return data, nil
}
