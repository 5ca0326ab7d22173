package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"fileconv/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The queue defaults to the in-memory backend with a short block timeout.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Storage.Backend = config.StorageFS
	cfgVal.Storage.Root = filepath.Join(base, "objects")
	cfgVal.Storage.DBPath = filepath.Join(base, "objects.db")
	cfgVal.Queue.Backend = config.QueueMemory
	cfgVal.Queue.BlockTimeoutSeconds = 1
	cfgVal.Worker.Concurrency = 1
	cfgVal.Worker.ErrorRetryInterval = 1
	cfgVal.Worker.MinFreeDiskMiB = 0
	cfgVal.Translate.URL = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithSQLiteStorage switches the object store to the SQLite backend.
func WithSQLiteStorage() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Backend = config.StorageSQLite
	}
}

// WithConcurrency sets the number of worker goroutines.
func WithConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Worker.Concurrency = n
	}
}

// WithToolOverride points a capability at a specific executable.
func WithToolOverride(capability, path string) ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.Tools == nil {
			b.cfg.Tools = map[string]string{}
		}
		b.cfg.Tools[capability] = path
	}
}

// WithIsolatedPath replaces PATH with an empty directory so no external
// converter is found.
func WithIsolatedPath() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		setPath(b.t, binDir)
	}
}

// WithStubbedBinaries writes stub executables that print a version and exit 0
// and prepends them to PATH.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "stubs")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\necho \"$(basename \"$0\") 1.0\"\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		setPath(b.t, binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

func setPath(t testing.TB, value string) {
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", value); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
