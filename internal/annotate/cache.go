package annotate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"
)

// Store persists annotation documents across runs. Implementations live
// in internal/store.
type Store interface {
	GetAnnotation(ctx context.Context, key string) (doc []byte, storedAt time.Time, ok bool, err error)
	PutAnnotation(ctx context.Context, key string, doc []byte, storedAt time.Time) error
}

// CacheKey identifies one crop sent to one provider/model pair. The same
// image annotated by a different model is a different entry.
func CacheKey(provider, model string, imageJPEG []byte) string {
	h := sha256.New()
	h.Write([]byte(provider))
	h.Write([]byte{'|'})
	h.Write([]byte(model))
	h.Write([]byte{'|'})
	h.Write(imageJPEG)
	return hex.EncodeToString(h.Sum(nil))
}

type cacheEntry struct {
	doc      []byte
	storedAt time.Time
}

// Cache keeps sanitized annotation documents in memory, optionally backed
// by a Store. Entries older than the TTL are ignored.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	store   Store
	now     func() time.Time
	logger  *slog.Logger
}

// NewCache builds a cache. store may be nil for in-memory only.
func NewCache(ttl time.Duration, store Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries: map[string]cacheEntry{},
		ttl:     ttl,
		store:   store,
		now:     time.Now,
		logger:  logger,
	}
}

func (c *Cache) fresh(storedAt time.Time) bool {
	if c.ttl <= 0 {
		return true
	}
	return c.now().Sub(storedAt) < c.ttl
}

// Get returns the cached document for key, if present and fresh.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok && c.fresh(entry.storedAt) {
		return entry.doc, true
	}

	if c.store == nil {
		return nil, false
	}
	doc, storedAt, ok, err := c.store.GetAnnotation(ctx, key)
	if err != nil {
		c.logger.Warn("vision.cache.get_error", "key", key, "error", err)
		return nil, false
	}
	if !ok || !c.fresh(storedAt) {
		return nil, false
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry{doc: doc, storedAt: storedAt}
	c.mu.Unlock()
	return doc, true
}

// Put stores a document. Store failures are logged, not returned; the
// cache is best effort.
func (c *Cache) Put(ctx context.Context, key string, doc []byte) {
	at := c.now()
	c.mu.Lock()
	c.entries[key] = cacheEntry{doc: doc, storedAt: at}
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.PutAnnotation(ctx, key, doc, at); err != nil {
		c.logger.Warn("vision.cache.put_error", "key", key, "error", err)
	}
}
