package state

import (
	"context"
	"errors"
	"time"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

var ErrExists = errors.New("state: record already exists")

var ErrNotFound = errors.New("state: record not found")

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	Version    uint64            `json:"version,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store persists one snapshot per deterministic key.
//
// Create allocates the key and fails with ErrExists when it is taken. Save
// replaces an existing snapshot in place; when ifMatch is not empty the write
// only happens if the stored ETag still equals it, otherwise ErrETagMismatch.
// Save never creates: a missing key yields ErrNotFound.
type Store[T any] interface {
	Load(ctx context.Context, key string) (snapshot T, meta Meta, ok bool, err error)
	Create(ctx context.Context, key string, snapshot T, meta Meta) (Meta, error)
	Save(ctx context.Context, key string, snapshot T, meta Meta, ifMatch string) (Meta, error)
}

// Codec converts snapshots to and from their persisted bytes.
type Codec[T any] interface {
	Encode(snapshot T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// CloneMeta returns meta with a detached Extra map.
func CloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
