// Package sqlitestore persists state snapshots in a SQLite database using the
// pure Go modernc.org/sqlite driver.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goliatone/go-factory/pkg/state"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	key         TEXT PRIMARY KEY,
	data        BLOB NOT NULL,
	snapshot_id TEXT NOT NULL DEFAULT '',
	etag        TEXT NOT NULL DEFAULT '',
	version     INTEGER NOT NULL DEFAULT 0,
	updated_at  INTEGER NOT NULL DEFAULT 0,
	extra       TEXT NOT NULL DEFAULT ''
);`

// Store implements state.Store[T] on top of a single SQLite table. Writes are
// conditional statements, so several processes may share one database file.
type Store[T any] struct {
	db    *sql.DB
	codec state.Codec[T]
}

var _ state.Store[struct{}] = (*Store[struct{}])(nil)

// Open creates the database file and schema when missing.
func Open[T any](path string, codec state.Codec[T]) (*Store[T], error) {
	if codec == nil {
		return nil, fmt.Errorf("sqlitestore: codec is required")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlitestore: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: create schema: %w", err)
	}
	return &Store[T]{db: db, codec: codec}, nil
}

// Close releases the database handle.
func (s *Store[T]) Close() error {
	return s.db.Close()
}

func (s *Store[T]) Load(ctx context.Context, key string) (T, state.Meta, bool, error) {
	var zero T
	var (
		data      []byte
		meta      state.Meta
		version   int64
		updatedAt int64
		extra     string
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT data, snapshot_id, etag, version, updated_at, extra FROM records WHERE key = ?`, key)
	if err := row.Scan(&data, &meta.SnapshotID, &meta.ETag, &version, &updatedAt, &extra); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, state.Meta{}, false, nil
		}
		return zero, state.Meta{}, false, fmt.Errorf("sqlitestore: load %q: %w", key, err)
	}

	snapshot, err := s.codec.Decode(data)
	if err != nil {
		return zero, state.Meta{}, false, fmt.Errorf("sqlitestore: decode %q: %w", key, err)
	}
	meta.Version = uint64(version)
	if updatedAt != 0 {
		meta.UpdatedAt = time.Unix(0, updatedAt).UTC()
	}
	if extra != "" {
		if err := json.Unmarshal([]byte(extra), &meta.Extra); err != nil {
			return zero, state.Meta{}, false, fmt.Errorf("sqlitestore: decode meta for %q: %w", key, err)
		}
	}
	return snapshot, meta, true, nil
}

func (s *Store[T]) Create(ctx context.Context, key string, snapshot T, meta state.Meta) (state.Meta, error) {
	data, extra, err := s.encode(snapshot, meta)
	if err != nil {
		return state.Meta{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO records (key, data, snapshot_id, etag, version, updated_at, extra)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO NOTHING`,
		key, data, meta.SnapshotID, meta.ETag, int64(meta.Version), unixNano(meta.UpdatedAt), extra)
	if err != nil {
		return state.Meta{}, fmt.Errorf("sqlitestore: create %q: %w", key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return state.Meta{}, fmt.Errorf("sqlitestore: create %q: %w", key, err)
	}
	if affected == 0 {
		return state.Meta{}, fmt.Errorf("%w: %s", state.ErrExists, key)
	}
	return state.CloneMeta(meta), nil
}

func (s *Store[T]) Save(ctx context.Context, key string, snapshot T, meta state.Meta, ifMatch string) (state.Meta, error) {
	data, extra, err := s.encode(snapshot, meta)
	if err != nil {
		return state.Meta{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE records
		 SET data = ?, snapshot_id = ?, etag = ?, version = ?, updated_at = ?, extra = ?
		 WHERE key = ? AND (? = '' OR etag = ?)`,
		data, meta.SnapshotID, meta.ETag, int64(meta.Version), unixNano(meta.UpdatedAt), extra,
		key, ifMatch, ifMatch)
	if err != nil {
		return state.Meta{}, fmt.Errorf("sqlitestore: save %q: %w", key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return state.Meta{}, fmt.Errorf("sqlitestore: save %q: %w", key, err)
	}
	if affected == 1 {
		return state.CloneMeta(meta), nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT etag FROM records WHERE key = ?`, key).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return state.Meta{}, fmt.Errorf("%w: %s", state.ErrNotFound, key)
	}
	if err != nil {
		return state.Meta{}, fmt.Errorf("sqlitestore: save %q: %w", key, err)
	}
	return state.Meta{}, fmt.Errorf("%w: expected %q, got %q", state.ErrETagMismatch, ifMatch, current)
}

func (s *Store[T]) encode(snapshot T, meta state.Meta) ([]byte, string, error) {
	data, err := s.codec.Encode(snapshot)
	if err != nil {
		return nil, "", fmt.Errorf("sqlitestore: encode: %w", err)
	}
	if len(meta.Extra) == 0 {
		return data, "", nil
	}
	extra, err := json.Marshal(meta.Extra)
	if err != nil {
		return nil, "", fmt.Errorf("sqlitestore: encode meta: %w", err)
	}
	return data, string(extra), nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
