package store

import (
	"context"
	"fmt"
	"sync"
)

// Counter is a named, monotonically increasing integer persisted in a table.
// Next is serialized by the counter's own mutex so a value is never handed
// out twice within the process.
type Counter struct {
	mu    sync.Mutex
	table Table[int64]
	name  string
}

// NewCounter creates a counter stored under name in table.
func NewCounter(table Table[int64], name string) *Counter {
	return &Counter{table: table, name: name}
}

// Next increments the counter, persists the new value and returns it. The
// value is consumed even if the caller's later work fails.
func (c *Counter) Next(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, _, err := c.table.Get(ctx, c.name)
	if err != nil {
		return 0, fmt.Errorf("read counter %q: %w", c.name, err)
	}
	next := cur + 1
	if err := c.table.Put(ctx, c.name, next); err != nil {
		return 0, fmt.Errorf("persist counter %q: %w", c.name, err)
	}
	return next, nil
}

// Current returns the last value handed out, or 0.
func (c *Counter) Current(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, _, err := c.table.Get(ctx, c.name)
	if err != nil {
		return 0, fmt.Errorf("read counter %q: %w", c.name, err)
	}
	return cur, nil
}
