package convert

import (
	"log/slog"
	"strings"

	"fileconv/internal/archive"
	"fileconv/internal/config"
	"fileconv/internal/deps"
	"fileconv/internal/language"
	"fileconv/internal/ocr"
	"fileconv/internal/translate"
)

// NewToolkit wires the OCR engine, the translation client and the archive
// bundler from cfg around a shared resolver.
func NewToolkit(cfg *config.Config, resolver *deps.Resolver, logger *slog.Logger) *Toolkit {
	cloud := ocr.NewCloudClient(ocr.CloudConfig{
		URL:            cfg.OCR.CloudURL,
		APIKey:         cfg.OCR.CloudAPIKey,
		TimeoutSeconds: cfg.OCR.CloudTimeout,
	})
	tk := &Toolkit{
		Resolver: resolver,
		OCR: ocr.NewEngine(resolver, ocr.Options{
			Language:    language.Tesseract(cfg.OCR.Language),
			TessdataDir: cfg.OCR.TessdataDir,
		}, cloud, logger),
		TargetLanguage: translationTarget(cfg.Translate.TargetLanguage),
		Archive:        archive.New(resolver, logger),
		DPI:            cfg.OCR.DPI,
		Logger:         logger,
	}
	if strings.TrimSpace(cfg.Translate.URL) != "" {
		tk.Translator = translate.NewClient(translate.Config{
			URL:            cfg.Translate.URL,
			APIKey:         cfg.Translate.APIKey,
			TimeoutSeconds: cfg.Translate.TimeoutSeconds,
		})
	}
	return tk
}

func translationTarget(configured string) string {
	if code := language.Translation(configured); code != "" {
		return code
	}
	return strings.ToLower(strings.TrimSpace(configured))
}
