package state

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store intended for tests, examples and single
// process deployments.
type MemoryStore[T any] struct {
	mu      sync.RWMutex
	records map[string]memoryRecord[T]
}

type memoryRecord[T any] struct {
	snapshot T
	meta     Meta
}

func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{records: map[string]memoryRecord[T]{}}
}

func (s *MemoryStore[T]) Load(ctx context.Context, key string) (T, Meta, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return zero, Meta{}, false, nil
	}
	return record.snapshot, CloneMeta(record.meta), true, nil
}

func (s *MemoryStore[T]) Create(ctx context.Context, key string, snapshot T, meta Meta) (Meta, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; ok {
		return Meta{}, fmt.Errorf("%w: %s", ErrExists, key)
	}
	s.records[key] = memoryRecord[T]{snapshot: snapshot, meta: CloneMeta(meta)}
	return CloneMeta(meta), nil
}

func (s *MemoryStore[T]) Save(ctx context.Context, key string, snapshot T, meta Meta, ifMatch string) (Meta, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[key]
	if !ok {
		return Meta{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if ifMatch != "" && current.meta.ETag != ifMatch {
		return Meta{}, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, ifMatch, current.meta.ETag)
	}
	s.records[key] = memoryRecord[T]{snapshot: snapshot, meta: CloneMeta(meta)}
	return CloneMeta(meta), nil
}
