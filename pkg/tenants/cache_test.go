package tenants

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalize"
)

type fakeChannelStore struct {
	configs map[string]*models.TenantConfig
	calls   int
	err     error
}

func (f *fakeChannelStore) GetByServiceNumber(ctx context.Context, serviceNumber string) (*models.TenantConfig, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.configs[normalize.Digits(serviceNumber)], nil
}

func TestConfigCache_Get(t *testing.T) {
	config := &models.TenantConfig{
		ID:            "chan-1",
		BusinessID:    "biz-1",
		ConfigID:      "cfg-1",
		ServiceNumber: "15550100",
		Enabled:       true,
	}

	t.Run("should load from store on first lookup and cache after", func(t *testing.T) {
		store := &fakeChannelStore{configs: map[string]*models.TenantConfig{"15550100": config}}
		cache := NewConfigCache(store, DefaultConfigCacheConfig())

		got, err := cache.Get(context.Background(), "15550100")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "biz-1", got.BusinessID)
		assert.Equal(t, 1, store.calls)

		got, err = cache.Get(context.Background(), "15550100")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 1, store.calls, "second lookup should be served from cache")

		stats := cache.Stats()
		assert.Equal(t, 1, stats.Size)
		assert.Equal(t, int64(1), stats.Hits)
		assert.Equal(t, int64(1), stats.Misses)
	})

	t.Run("should normalize the lookup key", func(t *testing.T) {
		store := &fakeChannelStore{configs: map[string]*models.TenantConfig{"15550100": config}}
		cache := NewConfigCache(store, DefaultConfigCacheConfig())

		got, err := cache.Get(context.Background(), "+15550100")
		require.NoError(t, err)
		require.NotNil(t, got)

		got, err = cache.Get(context.Background(), "whatsapp:+1 555 0100")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 1, store.calls, "differently formatted numbers should hit the same entry")
	})

	t.Run("should reload after the entry expires", func(t *testing.T) {
		store := &fakeChannelStore{configs: map[string]*models.TenantConfig{"15550100": config}}
		cache := NewConfigCache(store, ConfigCacheConfig{MaxSize: 10, TTL: 10 * time.Millisecond})

		_, err := cache.Get(context.Background(), "15550100")
		require.NoError(t, err)
		assert.Equal(t, 1, store.calls)

		time.Sleep(20 * time.Millisecond)

		_, err = cache.Get(context.Background(), "15550100")
		require.NoError(t, err)
		assert.Equal(t, 2, store.calls)
	})

	t.Run("should not cache misses", func(t *testing.T) {
		store := &fakeChannelStore{configs: map[string]*models.TenantConfig{}}
		cache := NewConfigCache(store, DefaultConfigCacheConfig())

		got, err := cache.Get(context.Background(), "19990000")
		require.NoError(t, err)
		assert.Nil(t, got)

		store.configs["19990000"] = config

		got, err = cache.Get(context.Background(), "19990000")
		require.NoError(t, err)
		assert.NotNil(t, got, "a channel created after a miss should resolve immediately")
	})

	t.Run("should propagate store errors without caching", func(t *testing.T) {
		store := &fakeChannelStore{err: errors.New("db down")}
		cache := NewConfigCache(store, DefaultConfigCacheConfig())

		_, err := cache.Get(context.Background(), "15550100")
		assert.Error(t, err)
		assert.Equal(t, 0, cache.Stats().Size)
	})

	t.Run("should reload after invalidation", func(t *testing.T) {
		store := &fakeChannelStore{configs: map[string]*models.TenantConfig{"15550100": config}}
		cache := NewConfigCache(store, DefaultConfigCacheConfig())

		_, err := cache.Get(context.Background(), "15550100")
		require.NoError(t, err)

		cache.Invalidate("+1 555 0100")

		_, err = cache.Get(context.Background(), "15550100")
		require.NoError(t, err)
		assert.Equal(t, 2, store.calls)
	})

	t.Run("should drop everything on clear", func(t *testing.T) {
		store := &fakeChannelStore{configs: map[string]*models.TenantConfig{"15550100": config}}
		cache := NewConfigCache(store, DefaultConfigCacheConfig())

		_, err := cache.Get(context.Background(), "15550100")
		require.NoError(t, err)
		require.Equal(t, 1, cache.Stats().Size)

		cache.Clear()
		assert.Equal(t, 0, cache.Stats().Size)
	})

	t.Run("should evict when at capacity", func(t *testing.T) {
		store := &fakeChannelStore{configs: map[string]*models.TenantConfig{}}
		for i := 0; i < 10; i++ {
			number := fmt.Sprintf("1555000%d", i)
			store.configs[number] = &models.TenantConfig{ID: number, ServiceNumber: number, Enabled: true}
		}
		cache := NewConfigCache(store, ConfigCacheConfig{MaxSize: 4, TTL: time.Minute})

		for i := 0; i < 10; i++ {
			_, err := cache.Get(context.Background(), fmt.Sprintf("1555000%d", i))
			require.NoError(t, err)
		}

		assert.LessOrEqual(t, cache.Stats().Size, 4)
	})
}
