package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vulntrack/vtrack-backend/model"
)

// MemStore is an in-memory ItemStore with the same key semantics as the
// Arango implementation. It backs the repository, validator and
// aggregator tests without a running database.
type MemStore struct {
	mu    sync.RWMutex
	items map[string]model.Item
	// writeLog records composite keys in apply order so tests can
	// assert write ordering.
	writeLog []model.PrimaryKey
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{items: make(map[string]model.Item)}
}

func memKey(key model.PrimaryKey) string {
	return key.PartitionKey + "\x00" + key.SortKey
}

// Get performs a point read by composite key.
func (m *MemStore) Get(ctx context.Context, key model.PrimaryKey) (model.Item, error) {
	if err := ctx.Err(); err != nil {
		return model.Item{}, fmt.Errorf("get: %w: %v", model.ErrStoreUnavailable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[memKey(key)]
	if !ok {
		return model.Item{}, fmt.Errorf("get %s/%s: %w", key.PartitionKey, key.SortKey, model.ErrItemNotFound)
	}
	return copyItem(item), nil
}

// Query returns partition rows by sort-key prefix, in sort-key order.
func (m *MemStore) Query(ctx context.Context, partitionKey, sortPrefix string) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query: %w: %v", model.ErrStoreUnavailable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Item
	for _, item := range m.items {
		if item.PK == partitionKey && strings.HasPrefix(item.SK, sortPrefix) {
			out = append(out, copyItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SK < out[j].SK })
	return out, nil
}

// QueryInverted returns rows with the exact sort key whose partition
// key starts with the given prefix, in partition-key order.
func (m *MemStore) QueryInverted(ctx context.Context, sortKey, partitionPrefix string) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query: %w: %v", model.ErrStoreUnavailable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Item
	for _, item := range m.items {
		if item.SK == sortKey && strings.HasPrefix(item.PK, partitionPrefix) {
			out = append(out, copyItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PK < out[j].PK })
	return out, nil
}

// Put writes one row under its composite key.
func (m *MemStore) Put(ctx context.Context, item model.Item, mode PutMode) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("put: %w: %v", model.ErrStoreUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := item.Key()
	if mode == PutCreateOnly {
		if _, ok := m.items[memKey(key)]; ok {
			return fmt.Errorf("put %s/%s: %w", item.PK, item.SK, model.ErrAlreadyExists)
		}
	}
	m.items[memKey(key)] = copyItem(item)
	m.writeLog = append(m.writeLog, key)
	return nil
}

// BatchPut applies the writes strictly in order, mirroring the Arango
// implementation's create-only idempotency.
func (m *MemStore) BatchPut(ctx context.Context, writes []Write) error {
	for _, w := range writes {
		err := m.Put(ctx, w.Item, w.Mode)
		if err != nil && !(w.Mode == PutCreateOnly && isAlreadyExists(err)) {
			return err
		}
	}
	return nil
}

// Delete hard-removes a row.
func (m *MemStore) Delete(ctx context.Context, key model.PrimaryKey) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete: %w: %v", model.ErrStoreUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, memKey(key))
	return nil
}

// WriteLog returns the composite keys written so far, in order.
func (m *MemStore) WriteLog() []model.PrimaryKey {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.PrimaryKey, len(m.writeLog))
	copy(out, m.writeLog)
	return out
}

func copyItem(item model.Item) model.Item {
	return model.Item{PK: item.PK, SK: item.SK, Attributes: model.CopyAttributes(item.Attributes)}
}
