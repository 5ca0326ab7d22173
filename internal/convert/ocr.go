package convert

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"fileconv/internal/deps"
	"fileconv/internal/ocr"
	"fileconv/internal/runner"
	"fileconv/internal/services"
)

// recognize turns an uploaded image into text, converting formats the OCR
// engine cannot read first.
func (tk *Toolkit) recognize(ctx context.Context, in Input, outputDir string) (string, error) {
	pair := in.Recipe.Pair()
	if tk.OCR == nil {
		return "", missing(pair, deps.OCR, "or configure ocr.cloud_url.", nil)
	}
	scratch, cleanup, err := scratchDir(outputDir, "ocr")
	if err != nil {
		return "", err
	}
	defer cleanup()

	src, err := tk.prepareForOCR(ctx, pair, in, scratch)
	if err != nil {
		return "", err
	}
	text, err := tk.OCR.Recognize(ctx, src)
	if errors.Is(err, services.ErrToolUnavailable) {
		return "", missing(pair, deps.OCR, "or configure ocr.cloud_url.", err)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ocr.NoText()
	}
	return text, nil
}

func (tk *Toolkit) prepareForOCR(ctx context.Context, pair string, in Input, scratch string) (string, error) {
	dest := filepath.Join(scratch, "ocr-input.png")
	switch in.Ext() {
	case "heic", "heif":
		return dest, tk.convertHEIC(ctx, pair, in.Path, dest, "png")
	case "svg":
		return dest, tk.rasterizeSVG(ctx, pair, in.Path, dest)
	case "avif":
		tool, err := tk.require(ctx, deps.ImageConvert, pair)
		if err != nil {
			return "", err
		}
		if _, err := tool.Run(ctx, []string{in.Path + "[0]", dest}, runner.Options{}); err != nil {
			return "", err
		}
		return dest, requireOutput(pair, dest)
	default:
		return in.Path, nil
	}
}

func (tk *Toolkit) convertImageToText(ctx context.Context, in Input, outputDir string) ([]string, error) {
	text, err := tk.recognize(ctx, in, outputDir)
	if err != nil {
		return nil, err
	}
	dest := filepath.Join(outputDir, in.Base()+".txt")
	if err := writeText(in.Recipe.Pair(), dest, text); err != nil {
		return nil, err
	}
	return []string{dest}, nil
}

func (tk *Toolkit) translateImage(ctx context.Context, in Input, outputDir string) ([]string, error) {
	pair := in.Recipe.Pair()
	if tk.Translator == nil {
		return nil, services.Wrap(services.ErrToolUnavailable, "convert", pair,
			fmt.Sprintf("%s needs a translation service: configure translate.url.", pair), nil)
	}
	text, err := tk.recognize(ctx, in, outputDir)
	if err != nil {
		return nil, err
	}
	target := tk.TargetLanguage
	if target == "" {
		target = "en"
	}
	translated, err := tk.Translator.Translate(ctx, text, target)
	if err != nil {
		return nil, err
	}
	dest := filepath.Join(outputDir, in.Base()+"-"+target+".txt")
	if err := writeText(pair, dest, translated); err != nil {
		return nil, err
	}
	return []string{dest}, nil
}

func (tk *Toolkit) convertImageToDocx(ctx context.Context, in Input, outputDir string) ([]string, error) {
	text, err := tk.recognize(ctx, in, outputDir)
	if err != nil {
		return nil, err
	}
	dest := filepath.Join(outputDir, in.Base()+".docx")
	if err := writeDocx(dest, strings.Split(strings.TrimRight(text, "\n"), "\n")); err != nil {
		return nil, storageErr(in.Recipe.Pair(), "write docx", err)
	}
	return []string{dest}, nil
}

func (tk *Toolkit) convertImageToSheet(ctx context.Context, in Input, outputDir string) ([]string, error) {
	text, err := tk.recognize(ctx, in, outputDir)
	if err != nil {
		return nil, err
	}
	dest := filepath.Join(outputDir, in.Base()+".xlsx")
	if err := writeTable(dest, "xlsx", splitColumns(text)); err != nil {
		return nil, storageErr(in.Recipe.Pair(), "write xlsx", err)
	}
	return []string{dest}, nil
}
