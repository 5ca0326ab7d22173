package blobstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fileconv/internal/blobstore"
	"fileconv/internal/config"
	"fileconv/internal/services"
)

func backends(t *testing.T) map[string]blobstore.Store {
	t.Helper()
	fsStore, err := blobstore.NewFS(filepath.Join(t.TempDir(), "objects"))
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	sqliteStore, err := blobstore.OpenSQLite(filepath.Join(t.TempDir(), "objects.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = sqliteStore.Close() })
	return map[string]blobstore.Store{"fs": fsStore, "sqlite": sqliteStore}
}

func TestPutOpenRoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := blobstore.PutBytes(ctx, store, "temp/job-1/job.json", []byte(`{"id":"job-1"}`), "application/json"); err != nil {
				t.Fatalf("PutBytes: %v", err)
			}
			data, err := blobstore.ReadAll(ctx, store, "temp/job-1/job.json")
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if string(data) != `{"id":"job-1"}` {
				t.Fatalf("unexpected content %q", data)
			}

			if err := blobstore.PutBytes(ctx, store, "temp/job-1/job.json", []byte(`{}`), "application/json"); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			data, _ = blobstore.ReadAll(ctx, store, "temp/job-1/job.json")
			if string(data) != `{}` {
				t.Fatalf("expected overwrite, got %q", data)
			}
		})
	}
}

func TestOpenMissingIsNotFound(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Open(context.Background(), "temp/none/job.json")
			if !errors.Is(err, services.ErrNotFound) {
				t.Fatalf("expected not found, got %v", err)
			}
		})
	}
}

func TestDeleteByPrefixScopesToJob(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			keys := []string{
				"temp/job-1/job.json",
				"temp/job-1/uploads/a.png",
				"temp/job-1/artifacts/a.jpg",
				"temp/job-10/job.json",
			}
			for _, key := range keys {
				if err := blobstore.PutBytes(ctx, store, key, []byte("x"), ""); err != nil {
					t.Fatalf("put %s: %v", key, err)
				}
			}
			removed, err := store.DeleteByPrefix(ctx, "temp/job-1/")
			if err != nil {
				t.Fatalf("DeleteByPrefix: %v", err)
			}
			if removed != 3 {
				t.Fatalf("expected 3 removed, got %d", removed)
			}
			remaining, err := store.List(ctx, "temp/")
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(remaining) != 1 || remaining[0].Key != "temp/job-10/job.json" {
				t.Fatalf("unexpected remaining objects: %#v", remaining)
			}
		})
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := blobstore.PutBytes(context.Background(), store, "../outside", []byte("x"), "")
			if !errors.Is(err, services.ErrStorage) {
				t.Fatalf("expected storage error, got %v", err)
			}
		})
	}
}

func TestDownloadAndUpload(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			src := filepath.Join(t.TempDir(), "in.txt")
			if err := os.WriteFile(src, []byte("hello"), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if err := blobstore.Upload(ctx, store, "temp/j/uploads/in.txt", src, "text/plain"); err != nil {
				t.Fatalf("Upload: %v", err)
			}
			dest := filepath.Join(t.TempDir(), "nested", "out.txt")
			n, err := blobstore.Download(ctx, store, "temp/j/uploads/in.txt", dest)
			if err != nil {
				t.Fatalf("Download: %v", err)
			}
			if n != 5 {
				t.Fatalf("expected 5 bytes, got %d", n)
			}
			if _, err := blobstore.Download(ctx, store, "temp/j/uploads/missing.txt", dest+".2"); !errors.Is(err, services.ErrNotFound) {
				t.Fatalf("expected not found, got %v", err)
			}
		})
	}
}

func TestOpenSelectsBackendFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = config.StorageSQLite
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "db", "objects.db")
	store, err := blobstore.Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*blobstore.SQLiteStore); !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}

	cfg.Storage.Backend = "s3"
	if _, err := blobstore.Open(&cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objects.db")
	store, err := blobstore.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := blobstore.PutBytes(context.Background(), store, "k", []byte("v"), ""); err != nil {
		t.Fatalf("put: %v", err)
	}
	_ = store.Close()

	reopened, err := blobstore.OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	data, err := blobstore.ReadAll(context.Background(), reopened, "k")
	if err != nil || string(data) != "v" {
		t.Fatalf("unexpected data after reopen: %q %v", data, err)
	}
}
