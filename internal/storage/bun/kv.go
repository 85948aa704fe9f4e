package bunrepo

import (
	"context"
	"time"

	"github.com/goliatone/go-pageguard/pkg/interfaces/kv"
	"github.com/uptrace/bun"
)

// Models lists the bun models owned by this package.
func Models() []any {
	return []any{(*kvEntry)(nil)}
}

type kvEntry struct {
	bun.BaseModel `bun:"table:kv_entries"`

	Key       string    `bun:",pk"`
	Value     string    `bun:",notnull"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// KVStore persists kv entries in a SQL table through bun.
type KVStore struct {
	db *bun.DB
}

var _ kv.Store = (*KVStore)(nil)

func NewKVStore(db *bun.DB) *KVStore {
	return &KVStore{db: db}
}

// EnsureSchema creates the backing table when missing.
func (s *KVStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*kvEntry)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *KVStore) Get(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	var rows []kvEntry
	err := s.db.NewSelect().
		Model(&rows).
		Where("key IN (?)", bun.In(keys)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

func (s *KVStore) Set(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]kvEntry, 0, len(values))
	for key, val := range values {
		rows = append(rows, kvEntry{Key: key, Value: val, CreatedAt: now, UpdatedAt: now})
	}
	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *KVStore) Remove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.db.NewDelete().
		Model((*kvEntry)(nil)).
		Where("key IN (?)", bun.In(keys)).
		Exec(ctx)
	return err
}
