package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pitabwire/irrbot/internal/config"
)

// Backend owns the connection (or directory) shared by every table of one
// process. Open it once at startup and Close it at shutdown.
type Backend struct {
	cfg      config.StoreConfig
	logger   *zap.Logger
	observer Observer

	redis *redis.Client
	pool  *pgxpool.Pool

	mu       sync.Mutex
	tables   map[string]any
	counters map[string]*Counter
	checks   []HealthChecker
}

// Open connects the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig, obs Observer, logger *zap.Logger) (*Backend, error) {
	b := &Backend{
		cfg:      cfg,
		logger:   logger,
		observer: obs,
		tables:   make(map[string]any),
		counters: make(map[string]*Counter),
	}

	switch cfg.Driver {
	case config.DriverMemory:
		logger.Info("using in-memory store")
	case config.DriverFile, "":
		if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
		logger.Info("using file store", zap.String("directory", cfg.Directory))
	case config.DriverRedis:
		addr := os.Getenv(cfg.AddrEnv)
		if addr == "" {
			return nil, fmt.Errorf("store: %s environment variable not set", cfg.AddrEnv)
		}
		b.redis = redis.NewClient(&redis.Options{Addr: addr, DB: cfg.DB})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			_ = b.redis.Close()
			return nil, fmt.Errorf("store: redis ping: %w", err)
		}
		logger.Info("using redis store", zap.String("addr", addr), zap.Int("db", cfg.DB))
	case config.DriverPostgres:
		dsn := os.Getenv(cfg.DSNEnv)
		if dsn == "" {
			return nil, fmt.Errorf("store: %s environment variable not set", cfg.DSNEnv)
		}
		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("store: parse DSN: %w", err)
		}
		if cfg.MaxOpenConns > 0 {
			poolCfg.MaxConns = int32(cfg.MaxOpenConns)
		}
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("store: connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("store: ping: %w", err)
		}
		if err := EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("store: %w", err)
		}
		b.pool = pool
		logger.Info("using postgres store")
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", cfg.Driver)
	}
	return b, nil
}

// NewRedisBackend wraps an existing client. Used when the caller manages the
// connection.
func NewRedisBackend(client *redis.Client, prefix string, obs Observer, logger *zap.Logger) *Backend {
	return &Backend{
		cfg:      config.StoreConfig{Driver: config.DriverRedis, KeyPrefix: prefix},
		logger:   logger,
		observer: obs,
		redis:    client,
		tables:   make(map[string]any),
		counters: make(map[string]*Counter),
	}
}

// Driver returns the configured driver name.
func (b *Backend) Driver() string {
	if b.cfg.Driver == "" {
		return config.DriverFile
	}
	return b.cfg.Driver
}

// OpenTable returns the table called name, creating it on first use. Opening
// the same name twice returns the same table.
func OpenTable[T any](b *Backend, name string) (Table[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.tables[name]; ok {
		t, ok := existing.(Table[T])
		if !ok {
			return nil, fmt.Errorf("store: table %q already opened with a different record type", name)
		}
		return t, nil
	}

	var raw Table[T]
	switch b.Driver() {
	case config.DriverMemory:
		raw = NewMemoryTable[T]()
	case config.DriverFile:
		ft, err := NewFileTable[T](filepath.Join(b.cfg.Directory, name+".json"))
		if err != nil {
			return nil, fmt.Errorf("store: open %s: %w", name, err)
		}
		raw = ft
	case config.DriverRedis:
		raw = NewRedisTable[T](b.redis, b.cfg.KeyPrefix, name)
	case config.DriverPostgres:
		raw = NewPgTable[T](b.pool, name)
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", b.cfg.Driver)
	}

	if hc, ok := raw.(HealthChecker); ok {
		b.checks = append(b.checks, hc)
	}
	t := WithObserver(raw, name, b.observer)
	b.tables[name] = t
	return t, nil
}

// CounterTable is the table holding every named counter.
const CounterTable = "counter"

// OpenCounter returns the counter called name. Repeated calls share one
// Counter so its serialization covers every caller.
func OpenCounter(b *Backend, name string) (*Counter, error) {
	table, err := OpenTable[int64](b, CounterTable)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.counters[name]; ok {
		return c, nil
	}
	c := NewCounter(table, name)
	b.counters[name] = c
	return c, nil
}

// HealthCheck runs the health check of every opened table.
func (b *Backend) HealthCheck(ctx context.Context) error {
	b.mu.Lock()
	checks := append([]HealthChecker(nil), b.checks...)
	b.mu.Unlock()

	var errs []error
	for _, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases the backend connection.
func (b *Backend) Close() {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			b.logger.Warn("closing redis client", zap.Error(err))
		}
	}
	if b.pool != nil {
		b.pool.Close()
	}
}
