package blobstore

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// SQLiteStore keeps objects as rows in a single SQLite database, which suits
// single-host deployments that want one file to back up.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite initializes or connects to the object database.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, storageErr("open", dbPath, err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, storageErr("open", dbPath, fmt.Errorf("open sqlite db: %w", err))
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, storageErr("open", dbPath, fmt.Errorf("apply pragma %q: %w", pragma, execErr))
		}
	}

	store := &SQLiteStore{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database %s has version %d, expected %d",
			ErrSchemaMismatch, s.path, version, schemaVersion)
	}
	return nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Open loads the object into memory and returns a reader over it.
func (s *SQLiteStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, storageErr("open", key, err)
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM objects WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("open", key)
	}
	if err != nil {
		return nil, storageErr("open", key, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Put inserts or replaces key.
func (s *SQLiteStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return storageErr("put", key, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return storageErr("put", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO objects (key, content_type, size, data, updated_at) VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET
             content_type = excluded.content_type,
             size = excluded.size,
             data = excluded.data,
             updated_at = excluded.updated_at`,
		key, contentType, len(data), data, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return storageErr("put", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM objects WHERE key = ?`, key); err != nil {
		return storageErr("delete", key, err)
	}
	return nil
}

// DeleteByPrefix removes every object whose key starts with prefix.
func (s *SQLiteStore) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM objects WHERE substr(key, 1, ?) = ?`, len(prefix), prefix)
	if err != nil {
		return 0, storageErr("delete-prefix", prefix, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("delete-prefix", prefix, err)
	}
	return int(n), nil
}

// List returns objects whose key starts with prefix, sorted by key.
func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]Object, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, size, content_type, updated_at FROM objects WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix,
	)
	if err != nil {
		return nil, storageErr("list", prefix, err)
	}
	defer rows.Close()

	var objects []Object
	for rows.Next() {
		var (
			obj     Object
			updated string
		)
		if err := rows.Scan(&obj.Key, &obj.Size, &obj.ContentType, &updated); err != nil {
			return nil, storageErr("list", prefix, err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			obj.UpdatedAt = ts
		}
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list", prefix, err)
	}
	return objects, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
