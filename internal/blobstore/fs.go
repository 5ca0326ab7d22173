package blobstore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore keeps objects as plain files below a root directory. Content types
// are not persisted.
type FSStore struct {
	root string
}

// NewFS returns a filesystem store rooted at root, creating it if needed.
func NewFS(root string) (*FSStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, storageErr("open", root, errors.New("root directory not configured"))
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, storageErr("open", root, err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Open returns a reader for key.
func (s *FSStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, storageErr("open", key, err)
	}
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound("open", key)
	}
	if err != nil {
		return nil, storageErr("open", key, err)
	}
	return file, nil
}

// Put writes r to key through a temp file so readers never see partial data.
func (s *FSStore) Put(ctx context.Context, key string, r io.Reader, _ string) error {
	path, err := s.path(key)
	if err != nil {
		return storageErr("put", key, err)
	}
	if err := ctx.Err(); err != nil {
		return storageErr("put", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return storageErr("put", key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return storageErr("put", key, err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return storageErr("put", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return storageErr("put", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return storageErr("put", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *FSStore) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return storageErr("delete", key, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storageErr("delete", key, err)
	}
	return nil
}

// DeleteByPrefix removes every object whose key starts with prefix and
// reports how many were removed.
func (s *FSStore) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	objects, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, obj := range objects {
		if err := s.Delete(ctx, obj.Key); err != nil {
			return removed, err
		}
		removed++
	}
	if strings.HasSuffix(prefix, "/") {
		if dir, err := s.path(strings.TrimSuffix(prefix, "/")); err == nil {
			_ = os.RemoveAll(dir)
		}
	}
	return removed, nil
}

// List returns objects whose key starts with prefix, sorted by key.
func (s *FSStore) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".put-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{Key: key, Size: info.Size(), UpdatedAt: info.ModTime().UTC()})
		return nil
	})
	if err != nil {
		return nil, storageErr("list", prefix, err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Close is a no-op for the filesystem backend.
func (s *FSStore) Close() error { return nil }
