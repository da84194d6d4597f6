package webhook

import (
	"encoding/json"

	"github.com/Ramsey-B/sage/pkg/models"
)

// MetaParser parses WhatsApp Business Cloud API webhook payloads
type MetaParser struct{}

// NewMetaParser creates a meta cloud payload parser
func NewMetaParser() *MetaParser {
	return &MetaParser{}
}

func (p *MetaParser) Name() string {
	return "meta"
}

type metaPayload struct {
	Object string      `json:"object"`
	Entry  []metaEntry `json:"entry"`
}

type metaEntry struct {
	Changes []metaChange `json:"changes"`
}

type metaChange struct {
	Field string    `json:"field"`
	Value metaValue `json:"value"`
}

type metaValue struct {
	Metadata metaMetadata  `json:"metadata"`
	Messages []metaMessage `json:"messages"`
}

type metaMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
}

type metaMessage struct {
	ID   string   `json:"id"`
	From string   `json:"from"`
	Type string   `json:"type"`
	Text metaText `json:"text"`
}

type metaText struct {
	Body string `json:"body"`
}

// Parse extracts the first message of the first change that carries any.
// Status-only payloads (delivery receipts) have no messages array and do not
// match. The cloud API only delivers direct conversations, so IsGroup is
// always false here.
func (p *MetaParser) Parse(payload []byte) (*models.InboundMessage, bool) {
	var body metaPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, false
	}
	if body.Object != "whatsapp_business_account" {
		return nil, false
	}

	for _, entry := range body.Entry {
		for _, change := range entry.Changes {
			if len(change.Value.Messages) == 0 {
				continue
			}
			msg := change.Value.Messages[0]
			if msg.From == "" {
				continue
			}
			return &models.InboundMessage{
				FromNumber: msg.From,
				ToNumber:   change.Value.Metadata.DisplayPhoneNumber,
				Body:       msg.Text.Body,
				IsGroup:    false,
				MessageID:  msg.ID,
			}, true
		}
	}

	return nil, false
}
