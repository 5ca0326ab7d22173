package ocr

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"fileconv/internal/deps"
	"fileconv/internal/logging"
	"fileconv/internal/runner"
	"fileconv/internal/services"
)

// NoTextMessage is the failure text for an image without recognizable text.
const NoTextMessage = "No text detected."

// NoText reports that recognition produced nothing usable.
func NoText() error {
	return services.Wrap(services.ErrValidation, "ocr", "recognize", NoTextMessage, nil)
}

// Resolver is the part of deps.Resolver the engine needs.
type Resolver interface {
	Resolve(ctx context.Context, c deps.Capability) (deps.Tool, error)
}

// Options configures Tesseract.
type Options struct {
	Language    string
	TessdataDir string
}

// Engine recognizes text with Tesseract, falling back to a cloud service.
type Engine struct {
	resolver Resolver
	opts     Options
	cloud    *CloudClient
	logger   *slog.Logger
}

// NewEngine constructs an Engine. cloud may be nil.
func NewEngine(resolver Resolver, opts Options, cloud *CloudClient, logger *slog.Logger) *Engine {
	if strings.TrimSpace(opts.Language) == "" {
		opts.Language = "eng"
	}
	return &Engine{resolver: resolver, opts: opts, cloud: cloud, logger: logging.NewComponentLogger(logger, "ocr")}
}

// Available reports whether any recognizer can run.
func (e *Engine) Available(ctx context.Context) bool {
	if _, err := e.resolver.Resolve(ctx, deps.OCR); err == nil {
		return true
	}
	return e.cloud != nil
}

// Recognize returns the normalized text of a single image. Empty text is
// not an error here; callers decide whether a document as a whole is empty.
func (e *Engine) Recognize(ctx context.Context, imagePath string) (string, error) {
	tool, err := e.resolver.Resolve(ctx, deps.OCR)
	switch {
	case err == nil:
		args := []string{imagePath, "stdout", "-l", e.opts.Language}
		if e.opts.TessdataDir != "" {
			args = append(args, "--tessdata-dir", e.opts.TessdataDir)
		}
		res, err := tool.Run(ctx, args, runner.Options{})
		if err != nil {
			return "", err
		}
		return Normalize(string(res.Stdout)), nil
	case errors.Is(err, services.ErrToolUnavailable) && e.cloud != nil:
		logging.WithContext(ctx, e.logger).Info("tesseract unavailable; using cloud OCR",
			logging.String(logging.FieldEventType, "ocr_cloud_fallback"),
		)
		text, cloudErr := e.cloud.Recognize(ctx, imagePath)
		if cloudErr != nil {
			return "", cloudErr
		}
		return Normalize(text), nil
	case errors.Is(err, services.ErrToolUnavailable):
		return "", services.Wrap(services.ErrToolUnavailable, "ocr", "recognize",
			"text recognition needs "+deps.InstallHint(deps.OCR)+" or a cloud OCR endpoint (OCR_CLOUD_URL)", err)
	default:
		return "", err
	}
}

// RecognizePages recognizes each page in order and joins the results with
// blank lines. It fails with NoText when every page is empty.
func (e *Engine) RecognizePages(ctx context.Context, pages []string) (string, error) {
	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		text, err := e.Recognize(ctx, page)
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", NoText()
	}
	return strings.Join(parts, "\n\n"), nil
}
