package archive_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"fileconv/internal/archive"
	"fileconv/internal/deps"
	"fileconv/internal/logging"
	"fileconv/internal/runner"
	"fileconv/internal/services"
)

func writeFiles(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("content of "+name), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		paths = append(paths, path)
	}
	return paths
}

func TestBundleFallsBackToInProcessZip(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	t.Setenv("FILECONV_ZIP", "")
	resolver := deps.NewResolver(runner.New(time.Minute, logging.NewNop()))
	files := writeFiles(t, "page-1.jpg", "page-2.jpg", "page-3.jpg")
	dest := filepath.Join(t.TempDir(), "pages.zip")

	if err := archive.New(resolver, logging.NewNop()).Bundle(context.Background(), files, dest); err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	names, err := archive.Entries(dest)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	want := []string{"page-1.jpg", "page-2.jpg", "page-3.jpg"}
	if !slices.Equal(names, want) {
		t.Fatalf("unexpected entries %v", names)
	}
}

func TestBundleRejectsDuplicateNames(t *testing.T) {
	a := writeFiles(t, "same.txt")
	b := writeFiles(t, "same.txt")
	err := archive.New(nil, logging.NewNop()).Bundle(context.Background(), append(a, b...), filepath.Join(t.TempDir(), "x.zip"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBundleRequiresFiles(t *testing.T) {
	err := archive.New(nil, logging.NewNop()).Bundle(context.Background(), nil, filepath.Join(t.TempDir(), "x.zip"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWriteZipRemovesPartialArchive(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "broken.zip")
	err := archive.WriteZip([]string{filepath.Join(t.TempDir(), "missing.txt")}, dest)
	if err == nil {
		t.Fatal("expected error for missing input")
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatalf("expected partial archive removed, stat err=%v", statErr)
	}
}
