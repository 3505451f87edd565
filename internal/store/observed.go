package store

import "context"

// Observer receives one call per table operation.
type Observer interface {
	ObserveStoreOp(table, op string, err error)
}

// observedTable reports every operation of the wrapped table to an Observer.
type observedTable[T any] struct {
	Table[T]
	name     string
	observer Observer
}

// WithObserver wraps t so that obs sees every operation. A nil observer
// returns t unchanged.
func WithObserver[T any](t Table[T], name string, obs Observer) Table[T] {
	if obs == nil {
		return t
	}
	return &observedTable[T]{Table: t, name: name, observer: obs}
}

func (o *observedTable[T]) Get(ctx context.Context, key any) (T, bool, error) {
	v, ok, err := o.Table.Get(ctx, key)
	o.observer.ObserveStoreOp(o.name, "get", err)
	return v, ok, err
}

func (o *observedTable[T]) Put(ctx context.Context, key any, value T) error {
	err := o.Table.Put(ctx, key, value)
	o.observer.ObserveStoreOp(o.name, "put", err)
	return err
}

func (o *observedTable[T]) Remove(ctx context.Context, key any) error {
	err := o.Table.Remove(ctx, key)
	o.observer.ObserveStoreOp(o.name, "remove", err)
	return err
}

func (o *observedTable[T]) Keys(ctx context.Context) ([]string, error) {
	keys, err := o.Table.Keys(ctx)
	o.observer.ObserveStoreOp(o.name, "keys", err)
	return keys, err
}

// HealthCheck forwards to the wrapped table when it supports health checks.
func (o *observedTable[T]) HealthCheck(ctx context.Context) error {
	if hc, ok := o.Table.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
