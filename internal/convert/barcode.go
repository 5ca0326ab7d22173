package convert

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"fileconv/internal/deps"
	"fileconv/internal/runner"
)

// zbarimg exits with this status when the image holds no symbol.
const exitNoSymbol = 4

func (tk *Toolkit) decodeBarcode(ctx context.Context, in Input, outputDir string) ([]string, error) {
	pair := in.Recipe.Pair()
	tool, err := tk.require(ctx, deps.BarcodeDecode, pair)
	if err != nil {
		return nil, err
	}

	src := in.Path
	if ext := in.Ext(); ext == "heic" || ext == "heif" || ext == "svg" {
		scratch, cleanup, err := scratchDir(outputDir, "barcode")
		if err != nil {
			return nil, err
		}
		defer cleanup()
		if src, err = tk.prepareForOCR(ctx, pair, in, scratch); err != nil {
			return nil, err
		}
	}

	res, err := tool.Run(ctx, []string{"--quiet", "--raw", src}, runner.Options{})
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == exitNoSymbol {
		return nil, invalid(pair, "No QR code detected.", nil)
	}
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(res.Stdout))
	if text == "" {
		return nil, invalid(pair, "No QR code detected.", nil)
	}
	dest := filepath.Join(outputDir, in.Base()+".txt")
	if err := writeText(pair, dest, text); err != nil {
		return nil, err
	}
	return []string{dest}, nil
}

func (tk *Toolkit) encodeBarcode(ctx context.Context, in Input, outputDir string) ([]string, error) {
	pair := in.Recipe.Pair()
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, storageErr(pair, "read input", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, invalid(pair, "The text file is empty.", nil)
	}
	tool, err := tk.require(ctx, deps.BarcodeEncode, pair)
	if err != nil {
		return nil, err
	}
	dest := filepath.Join(outputDir, in.Base()+".png")
	args := []string{"-t", "PNG", "-s", "8", "-m", "2", "-o", dest}
	if _, err := tool.Run(ctx, args, runner.Options{Stdin: strings.NewReader(text)}); err != nil {
		return nil, err
	}
	if err := requireOutput(pair, dest); err != nil {
		return nil, err
	}
	return []string{dest}, nil
}
