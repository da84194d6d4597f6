package tenants

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestResolver_Resolve(t *testing.T) {
	config := &models.TenantConfig{
		ID:            "chan-1",
		BusinessID:    "biz-1",
		ConfigID:      "cfg-1",
		ServiceNumber: "15550100",
		Enabled:       true,
	}

	newResolver := func(store *fakeChannelStore) *Resolver {
		return NewResolver(NewConfigCache(store, DefaultConfigCacheConfig()), testLogger())
	}

	t.Run("should resolve by service number", func(t *testing.T) {
		store := &fakeChannelStore{configs: map[string]*models.TenantConfig{"15550100": config}}
		resolver := newResolver(store)

		got, err := resolver.Resolve(context.Background(), &models.InboundMessage{
			FromNumber: "+19990001",
			ToNumber:   "+15550100",
		})
		require.NoError(t, err)
		assert.Equal(t, "biz-1", got.BusinessID)
	})

	t.Run("should fall back to the sender number", func(t *testing.T) {
		store := &fakeChannelStore{configs: map[string]*models.TenantConfig{"15550100": config}}
		resolver := newResolver(store)

		got, err := resolver.Resolve(context.Background(), &models.InboundMessage{
			FromNumber: "+15550100",
			ToNumber:   "+10000000",
		})
		require.NoError(t, err)
		assert.Equal(t, "biz-1", got.BusinessID)
	})

	t.Run("should return 404 when no strategy matches", func(t *testing.T) {
		store := &fakeChannelStore{configs: map[string]*models.TenantConfig{}}
		resolver := newResolver(store)

		got, err := resolver.Resolve(context.Background(), &models.InboundMessage{
			FromNumber: "+19990001",
			ToNumber:   "+10000000",
		})
		require.Error(t, err)
		assert.Nil(t, got)
		require.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, http.StatusNotFound, httperror.ToHTTPError(err).Code)
	})

	t.Run("should skip the service lookup when the to number is empty", func(t *testing.T) {
		store := &fakeChannelStore{configs: map[string]*models.TenantConfig{"15550100": config}}
		resolver := newResolver(store)

		got, err := resolver.Resolve(context.Background(), &models.InboundMessage{
			FromNumber: "+15550100",
		})
		require.NoError(t, err)
		assert.Equal(t, "biz-1", got.BusinessID)
		assert.Equal(t, 1, store.calls)
	})
}
