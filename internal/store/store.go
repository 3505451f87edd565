// Package store persists keyed JSON records. Every backend exposes the same
// Table contract; the file backend is the default single-process deployment.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Table is a durable key-value table of JSON-serializable records. Keys of any
// type are normalized to strings, so 42 and "42" address the same record.
// Values returned by Get never alias the stored copy.
type Table[T any] interface {
	// Get returns the record for key and whether it exists.
	Get(ctx context.Context, key any) (T, bool, error)

	// Put inserts or replaces the record for key. The write is durable when
	// Put returns nil.
	Put(ctx context.Context, key any, value T) error

	// Remove deletes the record for key. A missing key is a NOT_FOUND error
	// and leaves the table unchanged.
	Remove(ctx context.Context, key any) error

	// Keys returns every key in ascending order.
	Keys(ctx context.Context) ([]string, error)

	// Len returns the number of records.
	Len(ctx context.Context) (int, error)
}

// HealthChecker is implemented by backends that can report readiness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NormalizeKey converts a key to its canonical string form.
func NormalizeKey(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case int:
		return strconv.Itoa(k)
	case int64:
		return strconv.FormatInt(k, 10)
	case uint64:
		return strconv.FormatUint(k, 10)
	case fmt.Stringer:
		return k.String()
	default:
		return fmt.Sprint(k)
	}
}

func encodeValue[T any](v T) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return data, nil
}

func decodeValue[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("unmarshal record: %w", err)
	}
	return v, nil
}
