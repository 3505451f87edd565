package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pitabwire/irrbot/model"
)

// Schema creates the shared records table used by PgTable.
const Schema = `
CREATE TABLE IF NOT EXISTS irrbot_records (
	table_name  TEXT        NOT NULL,
	record_key  TEXT        NOT NULL,
	value       JSONB       NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (table_name, record_key)
)`

// PgTable is a PostgreSQL-backed Table using pgx/v5. All tables share the
// irrbot_records relation and are distinguished by table_name.
type PgTable[T any] struct {
	pool *pgxpool.Pool
	name string
}

// NewPgTable creates a PostgreSQL table view named name.
func NewPgTable[T any](pool *pgxpool.Pool, name string) *PgTable[T] {
	return &PgTable[T]{pool: pool, name: name}
}

// EnsureSchema creates the records relation if it does not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create irrbot_records: %w", err)
	}
	return nil
}

func (t *PgTable[T]) Get(ctx context.Context, key any) (T, bool, error) {
	var zero T
	k := NormalizeKey(key)

	var raw []byte
	err := t.pool.QueryRow(ctx, `
		SELECT value FROM irrbot_records
		WHERE table_name = $1 AND record_key = $2`,
		t.name, k,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("query record %q: %w", k, err)
	}

	v, err := decodeValue[T](raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (t *PgTable[T]) Put(ctx context.Context, key any, value T) error {
	raw, err := encodeValue(value)
	if err != nil {
		return err
	}
	k := NormalizeKey(key)

	_, err = t.pool.Exec(ctx, `
		INSERT INTO irrbot_records (table_name, record_key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (table_name, record_key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		t.name, k, []byte(raw),
	)
	if err != nil {
		return fmt.Errorf("upsert record %q: %w", k, err)
	}
	return nil
}

func (t *PgTable[T]) Remove(ctx context.Context, key any) error {
	k := NormalizeKey(key)
	tag, err := t.pool.Exec(ctx, `
		DELETE FROM irrbot_records
		WHERE table_name = $1 AND record_key = $2`,
		t.name, k,
	)
	if err != nil {
		return fmt.Errorf("delete record %q: %w", k, err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(fmt.Sprintf("record %q not found", k))
	}
	return nil
}

func (t *PgTable[T]) Keys(ctx context.Context) ([]string, error) {
	rows, err := t.pool.Query(ctx, `
		SELECT record_key FROM irrbot_records
		WHERE table_name = $1
		ORDER BY record_key`,
		t.name,
	)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan keys: %w", err)
	}
	return keys, nil
}

func (t *PgTable[T]) Len(ctx context.Context) (int, error) {
	var n int
	err := t.pool.QueryRow(ctx, `
		SELECT count(*) FROM irrbot_records WHERE table_name = $1`,
		t.name,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// HealthCheck pings the database.
func (t *PgTable[T]) HealthCheck(ctx context.Context) error {
	return t.pool.Ping(ctx)
}
