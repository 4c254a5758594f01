package image

import (
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

type TextRenderer struct{}

// DrawCentered writes text near the bottom of the canvas. Without a font file
// the fixed 7x13 face is used and size is ignored.
func (tr *TextRenderer) DrawCentered(dc *gg.Context, text, fontPath string, size float64) error {
	if fontPath != "" {
		if size <= 0 {
			size = float64(max(dc.Width(), dc.Height())) / 1000.0 * 85
		}
		if err := dc.LoadFontFace(fontPath, size); err != nil {
			return err
		}
	} else {
		dc.SetFontFace(basicfont.Face7x13)
	}

	dc.SetRGB(0.13, 0.14, 0.2)
	dc.DrawStringAnchored(text,
		float64(dc.Width())/2,
		float64(dc.Height())*0.86,
		0.5, 0.5,
	)
	return nil
}
