package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWassengerParser_Parse(t *testing.T) {
	parser := NewWassengerParser()

	t.Run("should parse an inbound message event", func(t *testing.T) {
		payload := `{
			"event": "message:in:new",
			"data": {
				"id": "msg-123",
				"fromNumber": "+15550123",
				"toNumber": "+15550100",
				"body": "hello there",
				"chat": {"id": "15550123@c.us", "type": "chat"}
			}
		}`

		msg, ok := parser.Parse([]byte(payload))
		require.True(t, ok)
		assert.Equal(t, "+15550123", msg.FromNumber)
		assert.Equal(t, "+15550100", msg.ToNumber)
		assert.Equal(t, "hello there", msg.Body)
		assert.Equal(t, "msg-123", msg.MessageID)
		assert.False(t, msg.IsGroup)
	})

	t.Run("should fall back to the JID fields", func(t *testing.T) {
		payload := `{
			"event": "message:in:new",
			"data": {
				"id": "msg-124",
				"from": "15550123@c.us",
				"to": "15550100@c.us",
				"body": "hi"
			}
		}`

		msg, ok := parser.Parse([]byte(payload))
		require.True(t, ok)
		assert.Equal(t, "15550123", msg.FromNumber)
		assert.Equal(t, "15550100", msg.ToNumber)
	})

	t.Run("should flag group chats", func(t *testing.T) {
		byChatType := `{"event": "message:in:new", "data": {"fromNumber": "+15550123", "body": "x", "chat": {"type": "group"}}}`
		byChatID := `{"event": "message:in:new", "data": {"fromNumber": "+15550123", "body": "x", "chat": {"id": "123-456@g.us"}}}`
		byJID := `{"event": "message:in:new", "data": {"from": "123-456@g.us", "body": "x"}}`
		byMeta := `{"event": "message:in:new", "data": {"fromNumber": "+15550123", "body": "x", "meta": {"isGroup": true}}}`

		for _, payload := range []string{byChatType, byChatID, byJID, byMeta} {
			msg, ok := parser.Parse([]byte(payload))
			require.True(t, ok, payload)
			assert.True(t, msg.IsGroup, payload)
		}
	})

	t.Run("should reject status callbacks", func(t *testing.T) {
		payload := `{"event": "message:out:ack", "data": {"id": "msg-125", "fromNumber": "+15550100", "body": ""}}`

		_, ok := parser.Parse([]byte(payload))
		assert.False(t, ok)
	})

	t.Run("should reject payloads without data", func(t *testing.T) {
		_, ok := parser.Parse([]byte(`{"event": "message:in:new"}`))
		assert.False(t, ok)

		_, ok = parser.Parse([]byte(`{}`))
		assert.False(t, ok)

		_, ok = parser.Parse([]byte(`not json`))
		assert.False(t, ok)
	})

	t.Run("should reject messages without a sender", func(t *testing.T) {
		_, ok := parser.Parse([]byte(`{"event": "message:in:new", "data": {"body": "hello"}}`))
		assert.False(t, ok)
	})
}
