package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fileconv/internal/deps"
	"fileconv/internal/fileutil"
	"fileconv/internal/logging"
	"fileconv/internal/recipes"
	"fileconv/internal/services"
)

// Input is one downloaded upload.
type Input struct {
	Path        string
	Name        string
	ContentType string
	Recipe      recipes.Recipe
}

// Base returns the input name without its extension.
func (in Input) Base() string {
	base, _ := fileutil.SplitExt(in.Name)
	if base == "" {
		return "file"
	}
	return base
}

// Ext returns the lowercase input extension without the dot.
func (in Input) Ext() string {
	_, ext := fileutil.SplitExt(in.Name)
	if ext == "" {
		_, ext = fileutil.SplitExt(in.Path)
	}
	return ext
}

// Handler converts one input into one or more files inside outputDir.
type Handler interface {
	Convert(ctx context.Context, in Input, outputDir string) ([]string, error)
}

// BatchHandler consumes every input of a job in a single call.
type BatchHandler interface {
	ConvertAll(ctx context.Context, inputs []Input, outputDir string) ([]string, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, in Input, outputDir string) ([]string, error)

// Convert calls f.
func (f HandlerFunc) Convert(ctx context.Context, in Input, outputDir string) ([]string, error) {
	return f(ctx, in, outputDir)
}

// BatchHandlerFunc adapts a function to BatchHandler.
type BatchHandlerFunc func(ctx context.Context, inputs []Input, outputDir string) ([]string, error)

// ConvertAll calls f.
func (f BatchHandlerFunc) ConvertAll(ctx context.Context, inputs []Input, outputDir string) ([]string, error) {
	return f(ctx, inputs, outputDir)
}

// Resolver is the part of deps.Resolver the handlers use.
type Resolver interface {
	Resolve(ctx context.Context, c deps.Capability) (deps.Tool, error)
}

// Recognizer extracts text from images.
type Recognizer interface {
	Available(ctx context.Context) bool
	Recognize(ctx context.Context, imagePath string) (string, error)
	RecognizePages(ctx context.Context, pages []string) (string, error)
}

// Translator translates recognized text.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// Bundler packs several files into one zip.
type Bundler interface {
	Bundle(ctx context.Context, files []string, dest string) error
}

// Toolkit carries the process-scoped collaborators shared by all handlers.
type Toolkit struct {
	Resolver       Resolver
	OCR            Recognizer
	Translator     Translator
	TargetLanguage string
	Archive        Bundler
	DPI            int
	Logger         *slog.Logger
}

func (tk *Toolkit) dpi() int {
	if tk.DPI <= 0 {
		return 150
	}
	return tk.DPI
}

func (tk *Toolkit) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, logging.NewComponentLogger(tk.Logger, "convert"))
}

// optional resolves c and reports (tool, false, nil) when it is simply not
// installed. Broken tools are returned as errors.
func (tk *Toolkit) optional(ctx context.Context, c deps.Capability) (deps.Tool, bool, error) {
	tool, err := tk.Resolver.Resolve(ctx, c)
	switch {
	case err == nil:
		return tool, true, nil
	case errors.Is(err, services.ErrToolUnavailable):
		return deps.Tool{}, false, nil
	default:
		return deps.Tool{}, false, err
	}
}

// require resolves c or fails with an install hint naming the pair.
func (tk *Toolkit) require(ctx context.Context, c deps.Capability, pair string) (deps.Tool, error) {
	tool, err := tk.Resolver.Resolve(ctx, c)
	if errors.Is(err, services.ErrToolUnavailable) {
		return deps.Tool{}, missing(pair, c, "", err)
	}
	return tool, err
}

func (tk *Toolkit) fallingBack(ctx context.Context, c deps.Capability, fallback string) {
	tk.log(ctx).Info("tool unavailable; using fallback",
		logging.String(logging.FieldEventType, "tool_fallback"),
		logging.String(logging.FieldCapability, string(c)),
		logging.String("fallback", fallback),
	)
}

// missing builds the ToolUnavailable error for a conversion that cannot run.
func missing(pair string, c deps.Capability, reason string, cause error) error {
	msg := fmt.Sprintf("%s needs %s: install %s.", pair, c, deps.InstallHint(c))
	if reason != "" {
		msg += " " + reason
	}
	return services.Wrap(services.ErrToolUnavailable, "convert", pair, msg, cause)
}

func missingEither(pair string, primary, secondary deps.Capability) error {
	msg := fmt.Sprintf("%s needs %s or %s: install %s, or %s.",
		pair, primary, secondary, deps.InstallHint(primary), deps.InstallHint(secondary))
	return services.Wrap(services.ErrToolUnavailable, "convert", pair, msg, nil)
}

func invalid(pair, message string, cause error) error {
	return services.Wrap(services.ErrValidation, "convert", pair, message, cause)
}

func storageErr(pair, op string, cause error) error {
	return services.Wrap(services.ErrStorage, "convert", pair, op, cause)
}

func scratchDir(outputDir, prefix string) (string, func(), error) {
	dir, err := os.MkdirTemp(filepath.Dir(outputDir), prefix+"-")
	if err != nil {
		return "", nil, services.Wrap(services.ErrStorage, "convert", "scratch", prefix, err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

// collect applies the multi-output policy: nothing produced is an error, a
// single file becomes <base>.<ext>, several files become <base>.zip holding
// <base>-page-<n>.<ext> entries.
func (tk *Toolkit) collect(ctx context.Context, pair string, files []string, outputDir, base, ext string) ([]string, error) {
	switch len(files) {
	case 0:
		return nil, invalid(pair, "The conversion produced no output.", nil)
	case 1:
		dest := filepath.Join(outputDir, base+"."+ext)
		if err := moveFile(files[0], dest); err != nil {
			return nil, storageErr(pair, "move output", err)
		}
		return []string{dest}, nil
	}

	width := len(fmt.Sprint(len(files)))
	named := make([]string, 0, len(files))
	for i, file := range files {
		target := filepath.Join(filepath.Dir(file), fmt.Sprintf("%s-page-%0*d.%s", base, width, i+1, ext))
		if target != file {
			if err := os.Rename(file, target); err != nil {
				return nil, storageErr(pair, "name page", err)
			}
		}
		named = append(named, target)
	}
	dest := filepath.Join(outputDir, base+".zip")
	if err := tk.Archive.Bundle(ctx, named, dest); err != nil {
		return nil, err
	}
	return []string{dest}, nil
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := fileutil.CopyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func writeText(pair, path, text string) error {
	if err := os.WriteFile(path, []byte(strings.TrimRight(text, "\n")+"\n"), 0o644); err != nil {
		return storageErr(pair, "write output", err)
	}
	return nil
}

func requireOutput(pair, path string) error {
	if err := fileutil.RequireNonEmpty(path); err != nil {
		return services.Wrap(services.ErrToolFailed, "convert", pair, "The converter did not produce an output file.", err)
	}
	return nil
}
