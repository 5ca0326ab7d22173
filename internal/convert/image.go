package convert

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"fileconv/internal/deps"
	"fileconv/internal/runner"
)

const jpegQuality = 92

// decodable lists the formats the built-in converter can read.
var decodable = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "jfif": true, "gif": true,
	"bmp": true, "tif": true, "tiff": true, "webp": true,
}

func (tk *Toolkit) convertImage(ctx context.Context, in Input, outputDir string) ([]string, error) {
	pair := in.Recipe.Pair()
	format := in.Recipe.OutputFormat
	dest := filepath.Join(outputDir, in.Base()+"."+format)

	if in.Ext() == "heic" || in.Ext() == "heif" {
		if err := tk.convertHEIC(ctx, pair, in.Path, dest, format); err != nil {
			return nil, err
		}
		return []string{dest}, nil
	}
	if err := tk.transcode(ctx, pair, in.Path, in.Ext(), dest, format); err != nil {
		return nil, err
	}
	return []string{dest}, nil
}

// transcode converts src into dest with ImageMagick, or the built-in codecs
// when ImageMagick is not installed.
func (tk *Toolkit) transcode(ctx context.Context, pair, src, srcExt, dest, format string) error {
	tool, ok, err := tk.optional(ctx, deps.ImageConvert)
	if err != nil {
		return err
	}
	if ok {
		return magick(ctx, tool, pair, src, dest, format)
	}

	if !decodable[srcExt] {
		return missing(pair, deps.ImageConvert, fmt.Sprintf("The built-in converter cannot read %s files.", srcExt), nil)
	}
	tk.fallingBack(ctx, deps.ImageConvert, "built-in image codecs")
	img, err := decodeImage(src)
	if err != nil {
		return invalid(pair, "The image could not be decoded.", err)
	}
	if err := encodeImage(img, dest, format); err != nil {
		return storageErr(pair, "encode image", err)
	}
	return nil
}

// convertHEIC prefers ImageMagick and falls back to libheif's decoder. The
// built-in codecs cannot read HEIC.
func (tk *Toolkit) convertHEIC(ctx context.Context, pair, src, dest, format string) error {
	tool, ok, err := tk.optional(ctx, deps.ImageConvert)
	if err != nil {
		return err
	}
	if ok {
		return magick(ctx, tool, pair, src, dest, format)
	}

	decoder, ok, err := tk.optional(ctx, deps.HEICDecode)
	if err != nil {
		return err
	}
	if !ok {
		return missingEither(pair, deps.ImageConvert, deps.HEICDecode)
	}
	tk.fallingBack(ctx, deps.ImageConvert, string(deps.HEICDecode))
	args := []string{src, dest}
	if format == "jpg" || format == "jpeg" {
		args = []string{"-q", fmt.Sprint(jpegQuality), src, dest}
	}
	if _, err := decoder.Run(ctx, args, runner.Options{}); err != nil {
		return err
	}
	return requireOutput(pair, dest)
}

func magick(ctx context.Context, tool deps.Tool, pair, src, dest, format string) error {
	args := []string{src + "[0]"}
	if format == "jpg" || format == "jpeg" {
		args = append(args, "-background", "white", "-alpha", "remove", "-alpha", "off",
			"-quality", fmt.Sprint(jpegQuality))
	}
	args = append(args, dest)
	if _, err := tool.Run(ctx, args, runner.Options{}); err != nil {
		return err
	}
	return requireOutput(pair, dest)
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func encodeImage(img image.Image, dest, format string) (retErr error) {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); retErr == nil {
			retErr = cerr
		}
		if retErr != nil {
			_ = os.Remove(dest)
		}
	}()

	switch format {
	case "jpg", "jpeg":
		return jpeg.Encode(f, flatten(img), &jpeg.Options{Quality: jpegQuality})
	case "png":
		return png.Encode(f, img)
	case "gif":
		return gif.Encode(f, img, nil)
	case "bmp":
		return bmp.Encode(f, img)
	case "tif", "tiff":
		return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("no built-in encoder for %s", format)
	}
}

// flatten composites img onto an opaque white background.
func flatten(img image.Image) image.Image {
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Over)
	return canvas
}
