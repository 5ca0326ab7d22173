package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fileconv/internal/config"
	"fileconv/internal/services"
)

// Object describes a stored blob.
type Object struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
}

// Store is the object store surface the pipeline depends on. Missing keys
// yield errors matching services.ErrNotFound; every other failure matches
// services.ErrStorage.
type Store interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Close() error
}

// Open returns the backend selected by configuration.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case config.StorageSQLite:
		return OpenSQLite(cfg.Storage.DBPath)
	case config.StorageFS, "":
		return NewFS(cfg.Storage.Root)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "blobstore", "open",
			fmt.Sprintf("unsupported storage backend %q", cfg.Storage.Backend), nil)
	}
}

// ReadAll loads an object fully into memory.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, storageErr("read", key, err)
	}
	return data, nil
}

// PutBytes stores data under key.
func PutBytes(ctx context.Context, s Store, key string, data []byte, contentType string) error {
	return s.Put(ctx, key, bytes.NewReader(data), contentType)
}

// Download copies an object into a local file, creating parent directories.
func Download(ctx context.Context, s Store, key, dest string) (int64, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, storageErr("download", key, err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return 0, storageErr("download", key, err)
	}
	written, err := io.Copy(out, rc)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dest)
		return 0, storageErr("download", key, err)
	}
	return written, nil
}

// Upload stores a local file under key.
func Upload(ctx context.Context, s Store, key, src, contentType string) error {
	in, err := os.Open(src)
	if err != nil {
		return storageErr("upload", key, err)
	}
	defer in.Close()
	return s.Put(ctx, key, in, contentType)
}

// ValidateKey rejects keys that could escape the store namespace.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("empty key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("key %q must be relative and slash-separated", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return fmt.Errorf("key %q contains a relative segment", key)
		}
	}
	return nil
}

func notFound(op, key string) error {
	return services.Wrap(services.ErrNotFound, "blobstore", op, "object "+key+" not found", nil)
}

func storageErr(op, key string, err error) error {
	return services.Wrap(services.ErrStorage, "blobstore", op, key, err)
}
