package convert

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"fileconv/internal/deps"
	"fileconv/internal/runner"
)

const defaultSVGSize = 1024

func (tk *Toolkit) convertSVG(ctx context.Context, in Input, outputDir string) ([]string, error) {
	dest := filepath.Join(outputDir, in.Base()+".png")
	if err := tk.rasterizeSVG(ctx, in.Recipe.Pair(), in.Path, dest); err != nil {
		return nil, err
	}
	return []string{dest}, nil
}

// rasterizeSVG renders src to a PNG at dest with rsvg-convert or Inkscape,
// falling back to the built-in rasterizer.
func (tk *Toolkit) rasterizeSVG(ctx context.Context, pair, src, dest string) error {
	tool, ok, err := tk.optional(ctx, deps.SVGRasterize)
	if err != nil {
		return err
	}
	if ok {
		args := []string{"-f", "png", "-o", dest, src}
		if strings.Contains(filepath.Base(tool.Path), "inkscape") {
			args = []string{"--export-type=png", "--export-filename=" + dest, src}
		}
		if _, err := tool.Run(ctx, args, runner.Options{}); err != nil {
			return err
		}
		return requireOutput(pair, dest)
	}

	tk.fallingBack(ctx, deps.SVGRasterize, "oksvg")
	img, err := renderSVG(src)
	if err != nil {
		return invalid(pair, "The SVG could not be rendered.", err)
	}
	if err := encodeImage(img, dest, "png"); err != nil {
		return storageErr(pair, "encode png", err)
	}
	return nil
}

func renderSVG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	icon, err := oksvg.ReadIconStream(f, oksvg.WarnErrorMode)
	if err != nil {
		return nil, err
	}
	w, h := int(icon.ViewBox.W), int(icon.ViewBox.H)
	if w <= 0 || h <= 0 {
		w, h = defaultSVGSize, defaultSVGSize
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return rgba, nil
}
