package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"masterimage/internal/image"
	"masterimage/internal/render"
)

func newRenderCmd() *cobra.Command {
	var (
		ops     []string
		format  string
		quality int
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "render <record-id>",
		Short: "Render a derived output from a record's master image",
		Example: `  masterimage render 12 --op crop_square --op resize:128x128 -o thumb.png
  masterimage render 12 --op caption:Hello --format jpg --quality 70 -o out.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseOps(ops)
			if err != nil {
				return err
			}
			var t render.Transform
			if len(parsed) > 0 {
				t = render.Ops(parsed...)
			}

			a := appFrom(cmd)
			data, err := a.service.Render(cmd.Context(), args[0], t, image.Format(strings.ToLower(format)), quality)
			if err != nil {
				return err
			}

			if outPath == "" || outPath == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes to %s\n", len(data), outPath)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&ops, "op", nil, "Operation to apply, repeatable (resize:WxH, thumbnail:WxH, fit:WxH, crop_square, rotate:DEG, caption:TEXT, grayscale, watermark:PATH@ALPHA)")
	cmd.Flags().StringVar(&format, "format", "", "Output format, png or jpg (default: storage format)")
	cmd.Flags().IntVarP(&quality, "quality", "q", -1, "JPEG quality 0-100, -1 for the configured quality")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file, - for stdout")
	return cmd
}

func parseOps(specs []string) ([]image.Op, error) {
	ops := make([]image.Op, 0, len(specs))
	for _, s := range specs {
		op, err := parseOp(s)
		if err != nil {
			return nil, fmt.Errorf("--op %q: %w", s, err)
		}
		if err := op.Validate(); err != nil {
			return nil, fmt.Errorf("--op %q: %w", s, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func parseOp(s string) (image.Op, error) {
	kind, arg, _ := strings.Cut(s, ":")
	switch image.OpKind(kind) {
	case image.OpResize, image.OpThumbnail, image.OpFit:
		w, h, err := parseSize(arg)
		if err != nil {
			return image.Op{}, err
		}
		return image.Op{Kind: image.OpKind(kind), Width: w, Height: h}, nil
	case image.OpCropSquare:
		return image.CropSquare(), nil
	case image.OpGrayscale:
		return image.Grayscale(), nil
	case image.OpRotate:
		deg, err := strconv.Atoi(arg)
		if err != nil {
			return image.Op{}, fmt.Errorf("bad degrees: %w", err)
		}
		return image.Rotate(deg), nil
	case image.OpCaption:
		return image.Caption(arg), nil
	case image.OpWatermark:
		path, alphaStr, ok := strings.Cut(arg, "@")
		alpha := 1.0
		if ok {
			var err error
			if alpha, err = strconv.ParseFloat(alphaStr, 64); err != nil {
				return image.Op{}, fmt.Errorf("bad alpha: %w", err)
			}
		}
		return image.Watermark(path, alpha), nil
	}
	return image.Op{}, fmt.Errorf("%w: %s", image.ErrUnknownOp, kind)
}

// parseSize reads "WxH"; either side may be 0 to keep the aspect ratio.
func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q must be WxH", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("bad width: %w", err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("bad height: %w", err)
	}
	return w, h, nil
}
