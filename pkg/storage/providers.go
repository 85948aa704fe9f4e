package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	bunrepo "github.com/goliatone/go-pageguard/internal/storage/bun"
	"github.com/goliatone/go-pageguard/internal/storage/memory"
	"github.com/goliatone/go-pageguard/pkg/config"
	"github.com/goliatone/go-pageguard/pkg/interfaces/kv"
	"github.com/goliatone/go-pageguard/pkg/retry"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// schemaAttempts covers another process holding the database file briefly.
const schemaAttempts = 4

// MetricsCollector enables downstream observers to record store calls.
type MetricsCollector interface {
	Record(operation string, labels map[string]string)
}

// Providers exposes the key-value store used by the vault and firewall.
type Providers struct {
	Store   kv.Store
	Metrics MetricsCollector

	closer func() error
}

type Option func(*Providers)

// WithMetricsCollector records every store call on collector.
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(p *Providers) {
		p.Metrics = collector
	}
}

// Close releases the backing database, if any.
func (p Providers) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

// NewMemoryProviders returns a store backed by an in-memory map.
func NewMemoryProviders(opts ...Option) Providers {
	return finish(Providers{Store: memory.NewStore()}, opts)
}

// NewBunProviders wires the bun-backed store. The caller owns the *bun.DB
// lifecycle and is expected to have created the schema.
func NewBunProviders(db *bun.DB, opts ...Option) Providers {
	if db == nil {
		panic("storage: bun DB is required")
	}

	// Register models so go-persistence-bun migrations can pick them up.
	persistence.RegisterModel(bunrepo.Models()...)

	return finish(Providers{Store: bunrepo.NewKVStore(db)}, opts)
}

// Open builds providers for the configured driver.
func Open(ctx context.Context, cfg config.PersistenceConfig, opts ...Option) (Providers, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "memory":
		return NewMemoryProviders(opts...), nil
	case "", "sqlite":
		return OpenSQLite(ctx, cfg.DSN, opts...)
	default:
		return Providers{}, fmt.Errorf("storage: unsupported driver %s", cfg.Driver)
	}
}

// OpenSQLite opens dsn through sqliteshim, creates the kv table and returns
// providers that close the database on Close.
func OpenSQLite(ctx context.Context, dsn string, opts ...Option) (Providers, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = config.Defaults().Persistence.DSN
	}
	if err := ensureSQLiteDir(dsn); err != nil {
		return Providers{}, fmt.Errorf("storage: prepare sqlite dir: %w", err)
	}

	sqldb, err := sql.Open(sqliteshim.DriverName(), dsn)
	if err != nil {
		return Providers{}, fmt.Errorf("storage: open sqlite: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())

	store := bunrepo.NewKVStore(db)
	if err := retry.Do(ctx, schemaAttempts, retry.DefaultBackoff(), store.EnsureSchema); err != nil {
		_ = db.Close()
		return Providers{}, fmt.Errorf("storage: ensure schema: %w", err)
	}

	providers := NewBunProviders(db, opts...)
	providers.closer = db.Close
	return providers, nil
}

func finish(p Providers, opts []Option) Providers {
	for _, opt := range opts {
		opt(&p)
	}
	if p.Metrics != nil {
		p.Store = &instrumentedStore{next: p.Store, metrics: p.Metrics}
	}
	return p
}

func ensureSQLiteDir(dsn string) error {
	if !strings.HasPrefix(dsn, "file:") {
		return nil
	}
	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o700)
}

type instrumentedStore struct {
	next    kv.Store
	metrics MetricsCollector
}

func (s *instrumentedStore) Get(ctx context.Context, keys []string) (map[string]string, error) {
	out, err := s.next.Get(ctx, keys)
	s.record("get", len(keys), err)
	return out, err
}

func (s *instrumentedStore) Set(ctx context.Context, values map[string]string) error {
	err := s.next.Set(ctx, values)
	s.record("set", len(values), err)
	return err
}

func (s *instrumentedStore) Remove(ctx context.Context, keys []string) error {
	err := s.next.Remove(ctx, keys)
	s.record("remove", len(keys), err)
	return err
}

// record never sees key names; they can hint at which provider is configured.
func (s *instrumentedStore) record(op string, count int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.Record("kv."+op, map[string]string{
		"outcome": outcome,
		"keys":    fmt.Sprint(count),
	})
}
