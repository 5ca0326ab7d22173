package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"fileconv/internal/deps"
	"fileconv/internal/logging"
	"fileconv/internal/runner"
	"fileconv/internal/services"
)

// Resolver is the part of deps.Resolver the bundler needs.
type Resolver interface {
	Resolve(ctx context.Context, c deps.Capability) (deps.Tool, error)
}

// Bundler writes zip archives.
type Bundler struct {
	resolver Resolver
	logger   *slog.Logger
}

// New constructs a Bundler. A nil resolver always writes in-process.
func New(resolver Resolver, logger *slog.Logger) *Bundler {
	return &Bundler{resolver: resolver, logger: logging.NewComponentLogger(logger, "archive")}
}

// Bundle writes files into dest using their base names as entry names.
func (b *Bundler) Bundle(ctx context.Context, files []string, dest string) error {
	if len(files) == 0 {
		return services.Wrap(services.ErrValidation, "archive", "bundle", "nothing to archive", nil)
	}
	if err := checkUniqueNames(files); err != nil {
		return err
	}
	_ = os.Remove(dest)

	if b.resolver != nil {
		tool, err := b.resolver.Resolve(ctx, deps.Zip)
		switch {
		case err == nil:
			args := append([]string{"-j", "-q", dest}, files...)
			if _, err := tool.Run(ctx, args, runner.Options{}); err != nil {
				return err
			}
			return nil
		case errors.Is(err, services.ErrToolUnavailable):
			logging.WithContext(ctx, b.logger).Debug("zip tool unavailable; writing archive in-process")
		default:
			return err
		}
	}
	return WriteZip(files, dest)
}

// WriteZip writes files into a new deflate-compressed archive at dest.
func WriteZip(files []string, dest string) (retErr error) {
	out, err := os.Create(dest)
	if err != nil {
		return services.Wrap(services.ErrStorage, "archive", "create", filepath.Base(dest), err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && retErr == nil {
			retErr = services.Wrap(services.ErrStorage, "archive", "close", filepath.Base(dest), cerr)
		}
		if retErr != nil {
			_ = os.Remove(dest)
		}
	}()

	zw := zip.NewWriter(out)
	for _, file := range files {
		if err := addFile(zw, file); err != nil {
			_ = zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return services.Wrap(services.ErrStorage, "archive", "finish", filepath.Base(dest), err)
	}
	return nil
}

func addFile(zw *zip.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrStorage, "archive", "open", filepath.Base(path), err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return services.Wrap(services.ErrStorage, "archive", "stat", filepath.Base(path), err)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header for %s: %w", path, err)
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return services.Wrap(services.ErrStorage, "archive", "add", header.Name, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return services.Wrap(services.ErrStorage, "archive", "add", header.Name, err)
	}
	return nil
}

func checkUniqueNames(files []string) error {
	seen := make(map[string]struct{}, len(files))
	for _, file := range files {
		name := filepath.Base(file)
		if _, dup := seen[name]; dup {
			return services.Wrap(services.ErrValidation, "archive", "bundle", fmt.Sprintf("duplicate entry name %q", name), nil)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Entries lists the entry names of the archive at path.
func Entries(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names, nil
}
