package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/pitabwire/irrbot/model"
)

// RedisTable stores a table as one Redis hash. The hash key is
// "{prefix}:{table}".
type RedisTable[T any] struct {
	client redis.Cmdable
	key    string
}

// NewRedisTable creates a Redis-backed table.
func NewRedisTable[T any](client redis.Cmdable, prefix, name string) *RedisTable[T] {
	return &RedisTable[T]{client: client, key: FormatRedisKey(prefix, name)}
}

// FormatRedisKey builds the hash key of a table.
func FormatRedisKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return fmt.Sprintf("%s:%s", prefix, name)
}

func (t *RedisTable[T]) Get(ctx context.Context, key any) (T, bool, error) {
	var zero T
	field := NormalizeKey(key)

	raw, err := t.client.HGet(ctx, t.key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("redis hget %s %q: %w", t.key, field, err)
	}

	v, err := decodeValue[T](raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (t *RedisTable[T]) Put(ctx context.Context, key any, value T) error {
	raw, err := encodeValue(value)
	if err != nil {
		return err
	}
	field := NormalizeKey(key)
	if err := t.client.HSet(ctx, t.key, field, []byte(raw)).Err(); err != nil {
		return fmt.Errorf("redis hset %s %q: %w", t.key, field, err)
	}
	return nil
}

func (t *RedisTable[T]) Remove(ctx context.Context, key any) error {
	field := NormalizeKey(key)
	n, err := t.client.HDel(ctx, t.key, field).Result()
	if err != nil {
		return fmt.Errorf("redis hdel %s %q: %w", t.key, field, err)
	}
	if n == 0 {
		return model.NewNotFoundError(fmt.Sprintf("record %q not found", field))
	}
	return nil
}

func (t *RedisTable[T]) Keys(ctx context.Context) ([]string, error) {
	keys, err := t.client.HKeys(ctx, t.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hkeys %s: %w", t.key, err)
	}
	slices.Sort(keys)
	return keys, nil
}

func (t *RedisTable[T]) Len(ctx context.Context) (int, error) {
	n, err := t.client.HLen(ctx, t.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis hlen %s: %w", t.key, err)
	}
	return int(n), nil
}

// HealthCheck pings the server.
func (t *RedisTable[T]) HealthCheck(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}
