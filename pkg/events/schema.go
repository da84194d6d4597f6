package events

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// EventType represents the type of conversation event
type EventType string

const (
	EventConversationReceived  EventType = "conversation.received"
	EventConversationResponded EventType = "conversation.responded"
	EventLeadCreated           EventType = "lead.created"
)

// BaseEvent contains fields common to all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	BusinessID    string    `json:"business_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
}

// ConversationReceivedEvent is emitted when an inbound customer message is
// accepted for processing.
type ConversationReceivedEvent struct {
	BaseEvent
	ConfigID string `json:"config_id"`
	Phone    string `json:"phone"`
	Provider string `json:"provider"`
}

// ConversationRespondedEvent is emitted after the pipeline resolves a reply
// (or decides to ignore the message).
type ConversationRespondedEvent struct {
	BaseEvent
	ConfigID string `json:"config_id"`
	Phone    string `json:"phone"`
	Stage    string `json:"stage"`
	Outcome  string `json:"outcome"`
}

// LeadCreatedEvent is emitted when a booking intent produces a sales lead.
type LeadCreatedEvent struct {
	BaseEvent
	ConfigID string `json:"config_id"`
	Phone    string `json:"phone"`
	LeadID   string `json:"lead_id"`
	Status   string `json:"status"`
}

// NewBaseEvent creates a base event with current timestamp
func NewBaseEvent(eventType EventType, businessID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		BusinessID:    businessID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
