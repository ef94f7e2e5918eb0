// Package storetest holds the behavioural contract every state.Store
// implementation must satisfy.
package storetest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/goliatone/go-factory/pkg/state"
)

// Factory builds a fresh, empty store for one subtest.
type Factory[T any] func(t *testing.T) state.Store[T]

// Run exercises Load/Create/Save semantics. first and second must differ.
func Run[T any](t *testing.T, newStore Factory[T], first, second T) {
	t.Helper()

	t.Run("load missing", func(t *testing.T) {
		store := newStore(t)
		_, _, ok, err := store.Load(context.Background(), "missing")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if ok {
			t.Fatalf("expected ok=false for missing key")
		}
	})

	t.Run("create then load", func(t *testing.T) {
		store := newStore(t)
		meta := state.Meta{SnapshotID: "snap-1", ETag: "e1", Version: 1, UpdatedAt: time.Unix(1700000000, 0).UTC()}
		if _, err := store.Create(context.Background(), "k", first, meta); err != nil {
			t.Fatalf("create: %v", err)
		}
		got, gotMeta, ok, err := store.Load(context.Background(), "k")
		if err != nil || !ok {
			t.Fatalf("load: ok=%t err=%v", ok, err)
		}
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("expected %+v, got %+v", first, got)
		}
		if gotMeta.SnapshotID != "snap-1" || gotMeta.ETag != "e1" || gotMeta.Version != 1 {
			t.Fatalf("unexpected meta: %+v", gotMeta)
		}
		if !gotMeta.UpdatedAt.Equal(meta.UpdatedAt) {
			t.Fatalf("expected updated_at %v, got %v", meta.UpdatedAt, gotMeta.UpdatedAt)
		}
	})

	t.Run("create twice fails and keeps original", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.Create(context.Background(), "k", first, state.Meta{ETag: "e1"}); err != nil {
			t.Fatalf("create: %v", err)
		}
		_, err := store.Create(context.Background(), "k", second, state.Meta{ETag: "e2"})
		if !errors.Is(err, state.ErrExists) {
			t.Fatalf("expected ErrExists, got %v", err)
		}
		got, meta, _, _ := store.Load(context.Background(), "k")
		if !reflect.DeepEqual(got, first) || meta.ETag != "e1" {
			t.Fatalf("original record changed: %+v %+v", got, meta)
		}
	})

	t.Run("save missing fails", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Save(context.Background(), "k", first, state.Meta{ETag: "e1"}, "")
		if !errors.Is(err, state.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("save with matching etag", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.Create(context.Background(), "k", first, state.Meta{ETag: "e1", Version: 1}); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := store.Save(context.Background(), "k", second, state.Meta{ETag: "e2", Version: 2}, "e1"); err != nil {
			t.Fatalf("save: %v", err)
		}
		got, meta, _, _ := store.Load(context.Background(), "k")
		if !reflect.DeepEqual(got, second) || meta.ETag != "e2" || meta.Version != 2 {
			t.Fatalf("expected second snapshot, got %+v %+v", got, meta)
		}
	})

	t.Run("save with stale etag leaves record untouched", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.Create(context.Background(), "k", first, state.Meta{ETag: "e1"}); err != nil {
			t.Fatalf("create: %v", err)
		}
		_, err := store.Save(context.Background(), "k", second, state.Meta{ETag: "e3"}, "stale")
		if !errors.Is(err, state.ErrETagMismatch) {
			t.Fatalf("expected ErrETagMismatch, got %v", err)
		}
		got, meta, _, _ := store.Load(context.Background(), "k")
		if !reflect.DeepEqual(got, first) || meta.ETag != "e1" {
			t.Fatalf("record changed after failed save: %+v %+v", got, meta)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		store := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := store.Create(ctx, "k", first, state.Meta{}); err == nil {
			t.Fatalf("expected error for cancelled context")
		}
	})
}
