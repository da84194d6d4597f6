package responder

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
)

func TestKnowledgeHandler_Respond(t *testing.T) {
	ctx := context.Background()
	tenant := &models.TenantConfig{BusinessID: "biz-1", ConfigID: "cfg-1", Role: "sales"}

	t.Run("should answer with the role script when one exists", func(t *testing.T) {
		store := &stubKnowledge{entries: []models.KnowledgeEntry{
			{
				ID:    "k-1",
				Title: "warranty",
				RoleScripts: database.JSONB[map[string]string]{Data: map[string]string{
					"sales":   "Our sales warranty is 2 years.",
					"support": "Warranty claims go through support.",
				}},
				DefaultScript: "Standard warranty is 1 year.",
			},
		}}
		handler := NewKnowledgeHandler(store, testLogger())

		reply, matched, err := handler.Respond(ctx, tenant, inbound("tell me about the warranty"))

		require.NoError(t, err)
		require.True(t, matched)
		assert.Equal(t, "Our sales warranty is 2 years.", reply.Body)
	})

	t.Run("should fall back to the default script for unknown roles", func(t *testing.T) {
		store := &stubKnowledge{entries: []models.KnowledgeEntry{
			{
				ID:    "k-1",
				Title: "warranty",
				RoleScripts: database.JSONB[map[string]string]{Data: map[string]string{
					"support": "Warranty claims go through support.",
				}},
				DefaultScript: "Standard warranty is 1 year.",
			},
		}}
		handler := NewKnowledgeHandler(store, testLogger())

		reply, matched, err := handler.Respond(ctx, tenant, inbound("warranty?"))

		require.NoError(t, err)
		require.True(t, matched)
		assert.Equal(t, "Standard warranty is 1 year.", reply.Body)
	})

	t.Run("should keep scanning past entries with no usable script", func(t *testing.T) {
		store := &stubKnowledge{entries: []models.KnowledgeEntry{
			{ID: "k-1", Title: "refund"},
			{ID: "k-2", Title: "refund", DefaultScript: "We refund within 7 days."},
		}}
		handler := NewKnowledgeHandler(store, testLogger())

		reply, matched, err := handler.Respond(ctx, tenant, inbound("refund policy please"))

		require.NoError(t, err)
		require.True(t, matched)
		assert.Equal(t, "We refund within 7 days.", reply.Body)
	})

	t.Run("should attach the first image when the entry has attachments", func(t *testing.T) {
		store := &stubKnowledge{entries: []models.KnowledgeEntry{
			{
				ID:            "k-1",
				Title:         "menu",
				DefaultScript: "Here is our menu.",
				ImageURLs:     database.JSONB[[]string]{Data: []string{"https://cdn.example.com/menu-1.jpg", "https://cdn.example.com/menu-2.jpg"}},
			},
		}}
		handler := NewKnowledgeHandler(store, testLogger())

		reply, matched, err := handler.Respond(ctx, tenant, inbound("show me the menu"))

		require.NoError(t, err)
		require.True(t, matched)
		assert.Equal(t, "https://cdn.example.com/menu-1.jpg", reply.ImageURL)
	})

	t.Run("should skip entries without a title", func(t *testing.T) {
		store := &stubKnowledge{entries: []models.KnowledgeEntry{
			{ID: "k-1", Title: "", DefaultScript: "never matches"},
		}}
		handler := NewKnowledgeHandler(store, testLogger())

		_, matched, err := handler.Respond(ctx, tenant, inbound("anything"))

		require.NoError(t, err)
		assert.False(t, matched)
	})

	t.Run("should not match when no title appears in the body", func(t *testing.T) {
		store := &stubKnowledge{entries: []models.KnowledgeEntry{
			{ID: "k-1", Title: "refund", DefaultScript: "refunds"},
		}}
		handler := NewKnowledgeHandler(store, testLogger())

		reply, matched, err := handler.Respond(ctx, tenant, inbound("do you deliver?"))

		require.NoError(t, err)
		assert.False(t, matched)
		assert.Nil(t, reply)
	})

	t.Run("should propagate store failures", func(t *testing.T) {
		store := &stubKnowledge{err: httperror.NewHTTPError(http.StatusInternalServerError, "failed to list knowledge entries")}
		handler := NewKnowledgeHandler(store, testLogger())

		_, matched, err := handler.Respond(ctx, tenant, inbound("refund"))

		require.Error(t, err)
		assert.False(t, matched)
	})

	t.Run("should report the knowledge category", func(t *testing.T) {
		handler := NewKnowledgeHandler(&stubKnowledge{}, testLogger())
		assert.Equal(t, models.StageKnowledge, handler.Category())
	})
}
