package tenants

import (
	"context"
	"sync"
	"time"

	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalize"
)

// ChannelStore loads channel configs from storage
type ChannelStore interface {
	GetByServiceNumber(ctx context.Context, serviceNumber string) (*models.TenantConfig, error)
}

// ConfigCache is a read-through TTL cache in front of the channel store,
// keyed by normalized service number. Entries expire on their own; admin
// mutations invalidate explicitly. Misses are never cached, so a channel
// created a moment ago resolves on the next delivery.
type ConfigCache struct {
	cache   map[string]*cacheEntry
	mu      sync.RWMutex
	store   ChannelStore
	maxSize int
	ttl     time.Duration
	hits    int64
	misses  int64
}

type cacheEntry struct {
	config    *models.TenantConfig
	expiresAt time.Time
}

// ConfigCacheConfig configures the tenant config cache
type ConfigCacheConfig struct {
	MaxSize int
	TTL     time.Duration
}

// DefaultConfigCacheConfig returns sensible defaults
func DefaultConfigCacheConfig() ConfigCacheConfig {
	return ConfigCacheConfig{
		MaxSize: 1000,
		TTL:     5 * time.Minute,
	}
}

// NewConfigCache creates a new tenant config cache
func NewConfigCache(store ChannelStore, config ConfigCacheConfig) *ConfigCache {
	if config.MaxSize < 1 {
		config.MaxSize = DefaultConfigCacheConfig().MaxSize
	}
	if config.TTL <= 0 {
		config.TTL = DefaultConfigCacheConfig().TTL
	}

	return &ConfigCache{
		cache:   make(map[string]*cacheEntry),
		store:   store,
		maxSize: config.MaxSize,
		ttl:     config.TTL,
	}
}

// Get returns the channel config for a service number, reading through to the
// store on a miss. A nil config with nil error means nothing is configured
// for that number.
func (c *ConfigCache) Get(ctx context.Context, serviceNumber string) (*models.TenantConfig, error) {
	key := normalize.Digits(serviceNumber)

	c.mu.RLock()
	entry, exists := c.cache[key]
	c.mu.RUnlock()

	if exists && time.Now().Before(entry.expiresAt) {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		metrics.RecordCacheLookup("hit")
		return entry.config, nil
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	metrics.RecordCacheLookup("miss")

	config, err := c.store.GetByServiceNumber(ctx, serviceNumber)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict if at capacity (simple LRU - just clear half)
	if len(c.cache) >= c.maxSize {
		c.evictHalf()
	}

	c.cache[key] = &cacheEntry{
		config:    config,
		expiresAt: time.Now().Add(c.ttl),
	}

	return config, nil
}

// evictHalf removes half the cache entries (must be called with lock held)
func (c *ConfigCache) evictHalf() {
	count := 0
	target := len(c.cache) / 2
	for key := range c.cache {
		delete(c.cache, key)
		count++
		if count >= target {
			break
		}
	}
}

// Invalidate removes the entry for a service number. The number is normalized
// first, so callers can pass it as entered.
func (c *ConfigCache) Invalidate(serviceNumber string) {
	key := normalize.Digits(serviceNumber)
	c.mu.Lock()
	delete(c.cache, key)
	c.mu.Unlock()
}

// Clear removes all entries from the cache
func (c *ConfigCache) Clear() {
	c.mu.Lock()
	c.cache = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// CacheStats returns cache statistics
type CacheStats struct {
	Size   int
	Hits   int64
	Misses int64
}

func (c *ConfigCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Size:   len(c.cache),
		Hits:   c.hits,
		Misses: c.misses,
	}
}
