package webhook

import (
	"encoding/json"
	"strings"

	"github.com/Ramsey-B/sage/pkg/models"
)

// Wassenger inbound message events carry this prefix; everything else on the
// webhook (acks, status updates, session events) is not a customer message.
const wassengerEventPrefix = "message:in"

// WassengerParser parses Wassenger webhook payloads
type WassengerParser struct{}

// NewWassengerParser creates a wassenger payload parser
func NewWassengerParser() *WassengerParser {
	return &WassengerParser{}
}

func (p *WassengerParser) Name() string {
	return "wassenger"
}

type wassengerPayload struct {
	Event string            `json:"event"`
	Data  *wassengerMessage `json:"data"`
}

type wassengerMessage struct {
	ID         string         `json:"id"`
	From       string         `json:"from"`
	FromNumber string         `json:"fromNumber"`
	To         string         `json:"to"`
	ToNumber   string         `json:"toNumber"`
	Body       string         `json:"body"`
	Chat       *wassengerChat `json:"chat"`
	Meta       *wassengerMeta `json:"meta"`
}

type wassengerChat struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type wassengerMeta struct {
	IsGroup bool `json:"isGroup"`
}

func (p *WassengerParser) Parse(payload []byte) (*models.InboundMessage, bool) {
	var body wassengerPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, false
	}
	if body.Data == nil {
		return nil, false
	}
	if body.Event != "" && !strings.HasPrefix(body.Event, wassengerEventPrefix) {
		return nil, false
	}

	from := body.Data.FromNumber
	if from == "" {
		from = stripJID(body.Data.From)
	}
	if from == "" {
		return nil, false
	}

	to := body.Data.ToNumber
	if to == "" {
		to = stripJID(body.Data.To)
	}

	isGroup := strings.HasSuffix(body.Data.From, "@g.us")
	if body.Data.Chat != nil && (body.Data.Chat.Type == "group" || strings.HasSuffix(body.Data.Chat.ID, "@g.us")) {
		isGroup = true
	}
	if body.Data.Meta != nil && body.Data.Meta.IsGroup {
		isGroup = true
	}

	return &models.InboundMessage{
		FromNumber: from,
		ToNumber:   to,
		Body:       body.Data.Body,
		IsGroup:    isGroup,
		MessageID:  body.Data.ID,
	}, true
}

// stripJID drops the WhatsApp JID suffix ("15550100@c.us" -> "15550100")
func stripJID(jid string) string {
	if i := strings.IndexByte(jid, '@'); i >= 0 {
		return jid[:i]
	}
	return jid
}
