package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rajbagri/Jewellery-Loan-App/pkg/models"
	"go.uber.org/zap"
)

// Cache is a key/value cache of JSON-encodable collections.
type Cache interface {
	// Get decodes the cached value into dest. It reports false on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
}

// MemoryCache is an in-process Cache. A zero TTL never expires entries.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	ttl   time.Duration
	now   func() time.Time
}

type memoryItem struct {
	data    []byte
	expires time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{items: map[string]memoryItem{}, ttl: ttl, now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	item, ok := m.items[key]
	if ok && !item.expires.IsZero() && m.now().After(item.expires) {
		delete(m.items, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(item.data, dest)
}

func (m *MemoryCache) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	item := memoryItem{data: data}
	if m.ttl > 0 {
		item.expires = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = item
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

// CachedStore serves Cached reads of entries and sub-entries from a Cache
// and goes to the wrapped Storage for Authoritative reads, refreshing the
// cache on the way back. Writes invalidate the affected collections.
//
// Each key carries a generation bumped by invalidation. A read only fills
// the cache if its key's generation is unchanged since the read began.
type CachedStore struct {
	Storage
	cache  Cache
	logger *zap.Logger

	mu   sync.Mutex // guards gens and orders fills against invalidation
	gens map[string]uint64
}

func NewCachedStore(inner Storage, cache Cache, logger *zap.Logger) *CachedStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedStore{Storage: inner, cache: cache, logger: logger, gens: map[string]uint64{}}
}

func entriesKey(customerID string) string {
	return "entries:" + customerID
}

func subEntriesKey(customerID, entryID string) string {
	return "sub_entries:" + customerID + ":" + entryID
}

func (c *CachedStore) ListEntries(ctx context.Context, customerID string, f Freshness) ([]models.Entry, error) {
	key := entriesKey(customerID)
	var entries []models.Entry
	if f == Cached && c.lookup(ctx, key, &entries) {
		return entries, nil
	}

	gen := c.generation(key)
	entries, err := c.Storage.ListEntries(ctx, customerID, Authoritative)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, gen, entries)
	return entries, nil
}

func (c *CachedStore) ListSubEntries(ctx context.Context, customerID, entryID string, f Freshness) ([]models.SubEntry, error) {
	key := subEntriesKey(customerID, entryID)
	var subEntries []models.SubEntry
	if f == Cached && c.lookup(ctx, key, &subEntries) {
		return subEntries, nil
	}

	gen := c.generation(key)
	subEntries, err := c.Storage.ListSubEntries(ctx, customerID, entryID, Authoritative)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, gen, subEntries)
	return subEntries, nil
}

func (c *CachedStore) DeleteCustomer(ctx context.Context, id string) error {
	keys := []string{entriesKey(id)}
	if entries, err := c.Storage.ListEntries(ctx, id, Authoritative); err == nil {
		for _, e := range entries {
			keys = append(keys, subEntriesKey(id, e.ID))
		}
	}
	if err := c.Storage.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, keys...)
	return nil
}

func (c *CachedStore) UpsertEntry(ctx context.Context, customerID string, e *models.Entry) error {
	if err := c.Storage.UpsertEntry(ctx, customerID, e); err != nil {
		return err
	}
	c.invalidate(ctx, entriesKey(customerID))
	return nil
}

func (c *CachedStore) DeleteEntry(ctx context.Context, customerID, entryID string) error {
	if err := c.Storage.DeleteEntry(ctx, customerID, entryID); err != nil {
		return err
	}
	c.invalidate(ctx, entriesKey(customerID), subEntriesKey(customerID, entryID))
	return nil
}

func (c *CachedStore) UpsertSubEntry(ctx context.Context, customerID, entryID string, se *models.SubEntry) error {
	if err := c.Storage.UpsertSubEntry(ctx, customerID, entryID, se); err != nil {
		return err
	}
	c.invalidate(ctx, subEntriesKey(customerID, entryID))
	return nil
}

func (c *CachedStore) DeleteSubEntry(ctx context.Context, customerID, entryID, subEntryID string) error {
	if err := c.Storage.DeleteSubEntry(ctx, customerID, entryID, subEntryID); err != nil {
		return err
	}
	c.invalidate(ctx, subEntriesKey(customerID, entryID))
	return nil
}

// lookup treats a cache error as a miss.
func (c *CachedStore) lookup(ctx context.Context, key string, dest any) bool {
	ok, err := c.cache.Get(ctx, key, dest)
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

func (c *CachedStore) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key]
}

// store fills key unless it was invalidated after generation gen was read.
func (c *CachedStore) store(ctx context.Context, key string, gen uint64, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		c.logger.Debug("skipping cache fill, key invalidated during read", zap.String("key", key))
		return
	}
	if err := c.cache.Set(ctx, key, value); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedStore) invalidate(ctx context.Context, keys ...string) {
	c.mu.Lock()
	for _, k := range keys {
		c.gens[k]++
	}
	c.mu.Unlock()

	if err := c.cache.Delete(ctx, keys...); err != nil {
		c.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

var _ Storage = (*CachedStore)(nil)
