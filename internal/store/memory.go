package store

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/pitabwire/irrbot/model"
)

// MemoryTable is an in-memory Table. Suitable for testing. Records are kept
// in encoded form so callers never share state with the table.
type MemoryTable[T any] struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// NewMemoryTable creates an empty in-memory table.
func NewMemoryTable[T any]() *MemoryTable[T] {
	return &MemoryTable[T]{data: make(map[string]json.RawMessage)}
}

func (t *MemoryTable[T]) Get(_ context.Context, key any) (T, bool, error) {
	t.mu.RLock()
	raw, ok := t.data[NormalizeKey(key)]
	t.mu.RUnlock()

	if !ok {
		var zero T
		return zero, false, nil
	}
	v, err := decodeValue[T](raw)
	return v, err == nil, err
}

func (t *MemoryTable[T]) Put(_ context.Context, key any, value T) error {
	raw, err := encodeValue(value)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data[NormalizeKey(key)] = raw
	return nil
}

func (t *MemoryTable[T]) Remove(_ context.Context, key any) error {
	k := NormalizeKey(key)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.data[k]; !ok {
		return model.NewNotFoundError(fmt.Sprintf("record %q not found", k))
	}
	delete(t.data, k)
	return nil
}

func (t *MemoryTable[T]) Keys(_ context.Context) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.data)), nil
}

func (t *MemoryTable[T]) Len(_ context.Context) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.data), nil
}

// HealthCheck always succeeds.
func (t *MemoryTable[T]) HealthCheck(_ context.Context) error {
	return nil
}
