package recordsvc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/nhle/vibratodo/internal/recordapi"
)

// Table stores the records of every collection keyed by record Id.
type Table interface {
	All(ctx context.Context, collection string) ([]recordapi.Record, error)
	Get(ctx context.Context, collection, id string) (recordapi.Record, bool, error)
	Put(ctx context.Context, collection string, rec recordapi.Record) error
	Delete(ctx context.Context, collection, id string) (bool, error)
}

// MemoryTable keeps records in process memory.
type MemoryTable struct {
	mu          sync.RWMutex
	collections map[string]map[string]recordapi.Record
}

// NewMemoryTable returns an empty in-memory table.
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{collections: make(map[string]map[string]recordapi.Record)}
}

func (m *MemoryTable) All(_ context.Context, collection string) ([]recordapi.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.collections[collection]
	out := make([]recordapi.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, cloneRecord(r))
	}
	return out, nil
}

func (m *MemoryTable) Get(_ context.Context, collection, id string) (recordapi.Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.collections[collection][id]
	if !ok {
		return nil, false, nil
	}
	return cloneRecord(r), true, nil
}

func (m *MemoryTable) Put(_ context.Context, collection string, rec recordapi.Record) error {
	id := rec.ID()
	if id == "" {
		return errors.New("record has no Id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.collections[collection]
	if !ok {
		rows = make(map[string]recordapi.Record)
		m.collections[collection] = rows
	}
	rows[id] = cloneRecord(rec)
	return nil
}

func (m *MemoryTable) Delete(_ context.Context, collection, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection][id]; !ok {
		return false, nil
	}
	delete(m.collections[collection], id)
	return true, nil
}

// RedisTable keeps each collection in a Redis hash of Id to JSON record.
type RedisTable struct {
	client *redis.Client
	prefix string
}

// NewRedisTable returns a table stored under keys "<prefix><collection>".
func NewRedisTable(client *redis.Client, prefix string) *RedisTable {
	if prefix == "" {
		prefix = "recordd:"
	}
	return &RedisTable{client: client, prefix: prefix}
}

func (r *RedisTable) key(collection string) string {
	return r.prefix + collection
}

func (r *RedisTable) All(ctx context.Context, collection string) ([]recordapi.Record, error) {
	rows, err := r.client.HGetAll(ctx, r.key(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", collection, err)
	}
	out := make([]recordapi.Record, 0, len(rows))
	for id, raw := range rows {
		var rec recordapi.Record
		if err := sonic.UnmarshalString(raw, &rec); err != nil {
			return nil, fmt.Errorf("decoding record %s: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *RedisTable) Get(ctx context.Context, collection, id string) (recordapi.Record, bool, error) {
	raw, err := r.client.HGet(ctx, r.key(collection), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading record %s: %w", id, err)
	}
	var rec recordapi.Record
	if err := sonic.UnmarshalString(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("decoding record %s: %w", id, err)
	}
	return rec, true, nil
}

func (r *RedisTable) Put(ctx context.Context, collection string, rec recordapi.Record) error {
	id := rec.ID()
	if id == "" {
		return errors.New("record has no Id")
	}
	raw, err := sonic.MarshalString(rec)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", id, err)
	}
	if err := r.client.HSet(ctx, r.key(collection), id, raw).Err(); err != nil {
		return fmt.Errorf("writing record %s: %w", id, err)
	}
	return nil
}

func (r *RedisTable) Delete(ctx context.Context, collection, id string) (bool, error) {
	n, err := r.client.HDel(ctx, r.key(collection), id).Result()
	if err != nil {
		return false, fmt.Errorf("deleting record %s: %w", id, err)
	}
	return n > 0, nil
}

func cloneRecord(r recordapi.Record) recordapi.Record {
	out := make(recordapi.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
