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

func TestGenerativeHandler_Respond(t *testing.T) {
	ctx := context.Background()
	tenant := &models.TenantConfig{
		BusinessID:     "biz-1",
		ConfigID:       "cfg-1",
		Role:           "sales",
		PromptTemplate: "History:\n{history}\nCustomer: {user_message}",
		ModelName:      "gpt-test",
	}

	t.Run("should generate with the recent history window", func(t *testing.T) {
		history := &stubHistory{recent: []models.HistoryRecord{
			{Message: "hi", Response: "hello"},
			{Message: "prices?", Response: "from $10"},
		}}
		generator := &stubGenerator{reply: "We open at 9."}
		handler := NewGenerativeHandler(generator, history, 3, testLogger())

		reply, matched, err := handler.Respond(ctx, tenant, inbound("when do you open?"))

		require.NoError(t, err)
		require.True(t, matched)
		assert.Equal(t, "We open at 9.", reply.Body)
		assert.Empty(t, reply.ImageURL)

		assert.Equal(t, 3, history.lastLimit)
		assert.Equal(t, "15550123", history.lastPhone)
		assert.Equal(t, "when do you open?", generator.lastMessage)
		assert.Equal(t, tenant.PromptTemplate, generator.lastTemplate)
		assert.Equal(t, "gpt-test", generator.lastModel)
		assert.Len(t, generator.lastHistory, 2)
	})

	t.Run("should default the window when none is configured", func(t *testing.T) {
		history := &stubHistory{}
		handler := NewGenerativeHandler(&stubGenerator{reply: "ok"}, history, 0, testLogger())

		_, _, err := handler.Respond(ctx, tenant, inbound("hi"))

		require.NoError(t, err)
		assert.Equal(t, DefaultHistoryWindow, history.lastLimit)
	})

	t.Run("should generate without context when the history read fails", func(t *testing.T) {
		history := &stubHistory{recentErr: httperror.NewHTTPError(http.StatusInternalServerError, "failed to list recent history")}
		generator := &stubGenerator{reply: "still answering"}
		handler := NewGenerativeHandler(generator, history, 5, testLogger())

		reply, matched, err := handler.Respond(ctx, tenant, inbound("hi"))

		require.NoError(t, err)
		require.True(t, matched)
		assert.Equal(t, "still answering", reply.Body)
		assert.Equal(t, 1, generator.calls)
		assert.Nil(t, generator.lastHistory)
	})

	t.Run("should propagate generator failures", func(t *testing.T) {
		generator := &stubGenerator{err: httperror.NewHTTPError(http.StatusBadGateway, "generative backend returned status 500")}
		handler := NewGenerativeHandler(generator, &stubHistory{}, 5, testLogger())

		reply, matched, err := handler.Respond(ctx, tenant, inbound("hi"))

		require.Error(t, err)
		assert.False(t, matched)
		assert.Nil(t, reply)
	})

	t.Run("should report the fallback category", func(t *testing.T) {
		handler := NewGenerativeHandler(&stubGenerator{}, &stubHistory{}, 5, testLogger())
		assert.Equal(t, models.StageFallback, handler.Category())
	})
}
