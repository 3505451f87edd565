package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/pitabwire/irrbot/model"
)

// FileTable stores one logical table as a single JSON object file. Every
// mutation rewrites the whole file to a temporary sibling, fsyncs it and
// renames it over the canonical path, so readers of the path only ever see a
// complete table. All operations are serialized by one mutex.
type FileTable[T any] struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage

	// rename is os.Rename outside tests.
	rename func(oldpath, newpath string) error
}

// NewFileTable opens the table at path, creating its directory if needed. A
// missing file is an empty table.
func NewFileTable[T any](path string) (*FileTable[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create table directory: %w", err)
	}
	t := &FileTable[T]{path: path, rename: os.Rename}
	data, err := t.load()
	if err != nil {
		return nil, err
	}
	t.data = data
	return t, nil
}

// Path returns the canonical file path.
func (t *FileTable[T]) Path() string {
	return t.path
}

// Get returns a fresh copy of the record for key.
func (t *FileTable[T]) Get(_ context.Context, key any) (T, bool, error) {
	t.mu.Lock()
	raw, ok := t.data[NormalizeKey(key)]
	t.mu.Unlock()

	if !ok {
		var zero T
		return zero, false, nil
	}
	v, err := decodeValue[T](raw)
	if err != nil {
		return v, false, err
	}
	return v, true, nil
}

// Put writes the record and persists the table before returning.
func (t *FileTable[T]) Put(ctx context.Context, key any, value T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := encodeValue(value)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next := maps.Clone(t.data)
	next[NormalizeKey(key)] = raw
	return t.commit(next)
}

// Remove deletes the record and persists the table before returning.
func (t *FileTable[T]) Remove(ctx context.Context, key any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := NormalizeKey(key)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.data[k]; !ok {
		return model.NewNotFoundError(fmt.Sprintf("record %q not found", k))
	}
	next := maps.Clone(t.data)
	delete(next, k)
	return t.commit(next)
}

// Keys returns every key in ascending order.
func (t *FileTable[T]) Keys(_ context.Context) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Sorted(maps.Keys(t.data)), nil
}

// Len returns the number of records.
func (t *FileTable[T]) Len(_ context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.data), nil
}

// Reload replaces the in-memory table with the file contents.
func (t *FileTable[T]) Reload(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := t.load()
	if err != nil {
		return err
	}
	t.data = data
	return nil
}

// HealthCheck verifies the table directory is still writable.
func (t *FileTable[T]) HealthCheck(_ context.Context) error {
	f, err := os.CreateTemp(filepath.Dir(t.path), ".health-*")
	if err != nil {
		return fmt.Errorf("table directory not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// commit persists next and installs it as the current table. On failure the
// in-memory table and the canonical file are left as they were. Callers hold
// t.mu.
func (t *FileTable[T]) commit(next map[string]json.RawMessage) error {
	if err := t.persist(next); err != nil {
		return err
	}
	t.data = next
	return nil
}

func (t *FileTable[T]) persist(data map[string]json.RawMessage) (err error) {
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal table: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(t.path), filepath.Base(t.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(buf); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = t.rename(tmpName, t.path); err != nil {
		return fmt.Errorf("replace %s: %w", t.path, err)
	}
	return nil
}

func (t *FileTable[T]) load() (map[string]json.RawMessage, error) {
	buf, err := os.ReadFile(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.path, err)
	}
	if len(buf) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	data := map[string]json.RawMessage{}
	if err := json.Unmarshal(buf, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", t.path, err)
	}
	if data == nil {
		data = map[string]json.RawMessage{}
	}
	return data, nil
}
