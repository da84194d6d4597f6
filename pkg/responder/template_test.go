package responder

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
)

func TestTemplateHandler_Respond(t *testing.T) {
	ctx := context.Background()
	tenant := &models.TenantConfig{BusinessID: "biz-1", ConfigID: "cfg-1", Role: "sales"}

	t.Run("should match a trigger case-insensitively", func(t *testing.T) {
		store := &stubTemplates{entries: []models.TemplateEntry{
			{ID: "t-1", Trigger: "Price", Body: "Our prices start at $10.", ImageURL: "https://cdn.example.com/prices.png"},
		}}
		handler := NewTemplateHandler(store, testLogger())

		reply, matched, err := handler.Respond(ctx, tenant, inbound("what is the PRICE?"))

		require.NoError(t, err)
		require.True(t, matched)
		assert.Equal(t, "Our prices start at $10.", reply.Body)
		assert.Equal(t, "https://cdn.example.com/prices.png", reply.ImageURL)
	})

	t.Run("should skip rows without a trigger", func(t *testing.T) {
		store := &stubTemplates{entries: []models.TemplateEntry{
			{ID: "t-1", Trigger: "", Body: "never a wildcard"},
			{ID: "t-2", Trigger: "hours", Body: "We are open 9 to 5."},
		}}
		handler := NewTemplateHandler(store, testLogger())

		reply, matched, err := handler.Respond(ctx, tenant, inbound("what are your hours?"))

		require.NoError(t, err)
		require.True(t, matched)
		assert.Equal(t, "We are open 9 to 5.", reply.Body)
	})

	t.Run("should return the first match in store order", func(t *testing.T) {
		store := &stubTemplates{entries: []models.TemplateEntry{
			{ID: "t-1", Trigger: "help", Body: "first"},
			{ID: "t-2", Trigger: "help", Body: "second"},
		}}
		handler := NewTemplateHandler(store, testLogger())

		reply, matched, err := handler.Respond(ctx, tenant, inbound("help me"))

		require.NoError(t, err)
		require.True(t, matched)
		assert.Equal(t, "first", reply.Body)
	})

	t.Run("should not match when no trigger appears in the body", func(t *testing.T) {
		store := &stubTemplates{entries: []models.TemplateEntry{
			{ID: "t-1", Trigger: "price", Body: "prices"},
		}}
		handler := NewTemplateHandler(store, testLogger())

		reply, matched, err := handler.Respond(ctx, tenant, inbound("do you deliver?"))

		require.NoError(t, err)
		assert.False(t, matched)
		assert.Nil(t, reply)
	})

	t.Run("should propagate store failures", func(t *testing.T) {
		store := &stubTemplates{err: httperror.NewHTTPError(http.StatusInternalServerError, "failed to list reply templates")}
		handler := NewTemplateHandler(store, testLogger())

		_, matched, err := handler.Respond(ctx, tenant, inbound("price"))

		require.Error(t, err)
		assert.False(t, matched)
	})

	t.Run("should report the template category", func(t *testing.T) {
		handler := NewTemplateHandler(&stubTemplates{}, testLogger())
		assert.Equal(t, models.StageTemplate, handler.Category())
	})
}
