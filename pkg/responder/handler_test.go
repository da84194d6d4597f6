package responder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
)

type namedHandler struct {
	category string
}

func (h *namedHandler) Category() string { return h.category }

func (h *namedHandler) Respond(_ context.Context, _ *models.TenantConfig, _ *models.InboundMessage) (*Reply, bool, error) {
	return nil, false, nil
}

func TestRegistry(t *testing.T) {
	template := &namedHandler{category: models.StageTemplate}
	knowledge := &namedHandler{category: models.StageKnowledge}
	fallback := &namedHandler{category: models.StageFallback}
	registry := NewRegistry(fallback, template, knowledge)

	t.Run("should keep handlers in registration order", func(t *testing.T) {
		ordered := registry.Ordered()
		require.Len(t, ordered, 2)
		assert.Same(t, template, ordered[0])
		assert.Same(t, knowledge, ordered[1])
	})

	t.Run("should expose the default handler", func(t *testing.T) {
		assert.Same(t, fallback, registry.Default())
	})

	t.Run("should resolve known categories", func(t *testing.T) {
		assert.Same(t, template, registry.Resolve(models.StageTemplate))
		assert.Same(t, knowledge, registry.Resolve(models.StageKnowledge))
		assert.Same(t, fallback, registry.Resolve(models.StageFallback))
	})

	t.Run("should resolve unknown categories to the default handler", func(t *testing.T) {
		assert.Same(t, fallback, registry.Resolve("DefaultTool"))
		assert.Same(t, fallback, registry.Resolve(""))
	})
}
