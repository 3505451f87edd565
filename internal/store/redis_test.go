package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitabwire/irrbot/model"
)

func newRedisTable(t *testing.T) (*RedisTable[record], *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTable[record](client, "irrbot", "answers"), mr
}

func TestRedisTable_CRUD(t *testing.T) {
	table, mr := newRedisTable(t)
	ctx := context.Background()

	_, ok, err := table.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, table.Put(ctx, "b", record{Name: "B"}))
	require.NoError(t, table.Put(ctx, "a", record{Name: "A", Items: []string{"1"}}))

	got, ok, err := table.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, record{Name: "A", Items: []string{"1"}}, got)

	keys, err := table.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	n, err := table.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.True(t, mr.Exists("irrbot:answers"), "table must live in one hash")

	require.NoError(t, table.Remove(ctx, "a"))
	assert.True(t, model.IsNotFound(table.Remove(ctx, "a")))
}

func TestRedisTable_KeyNormalization(t *testing.T) {
	table, _ := newRedisTable(t)
	ctx := context.Background()

	require.NoError(t, table.Put(ctx, 7, record{Name: "int"}))
	got, ok, err := table.Get(ctx, "7")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "int", got.Name)
}

func TestRedisTable_HealthCheck(t *testing.T) {
	table, mr := newRedisTable(t)

	assert.NoError(t, table.HealthCheck(context.Background()))
	mr.SetError("ERR server unavailable")
	assert.Error(t, table.HealthCheck(context.Background()))
}

func TestFormatRedisKey(t *testing.T) {
	assert.Equal(t, "irrbot:counter", FormatRedisKey("irrbot", "counter"))
	assert.Equal(t, "counter", FormatRedisKey("", "counter"))
}
