package events

import (
	"context"

	"github.com/Gobusters/ectologger"
	appctx "github.com/Ramsey-B/sage/pkg/context"
	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/models"
)

// Emitter publishes conversation lifecycle events. Emission is best-effort:
// failures are logged and never propagate to the caller, so a Kafka outage
// cannot block customer replies.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates an event emitter. A nil producer disables emission;
// every Emit method becomes a no-op.
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// Enabled reports whether events are actually published
func (e *Emitter) Enabled() bool {
	return e != nil && e.producer != nil
}

// EmitConversationReceived publishes a conversation.received event
func (e *Emitter) EmitConversationReceived(ctx context.Context, businessID, configID, phone, provider string) {
	if !e.Enabled() {
		return
	}

	event := ConversationReceivedEvent{
		BaseEvent: e.newBaseEvent(ctx, EventConversationReceived, businessID),
		ConfigID:  configID,
		Phone:     phone,
		Provider:  provider,
	}

	e.publish(ctx, phone, event.BaseEvent, event)
}

// EmitConversationResponded publishes a conversation.responded event
func (e *Emitter) EmitConversationResponded(ctx context.Context, businessID, configID, phone, stage, outcome string) {
	if !e.Enabled() {
		return
	}

	event := ConversationRespondedEvent{
		BaseEvent: e.newBaseEvent(ctx, EventConversationResponded, businessID),
		ConfigID:  configID,
		Phone:     phone,
		Stage:     stage,
		Outcome:   outcome,
	}

	e.publish(ctx, phone, event.BaseEvent, event)
}

// EmitLeadCreated publishes a lead.created event
func (e *Emitter) EmitLeadCreated(ctx context.Context, lead *models.SalesLead) {
	if !e.Enabled() || lead == nil {
		return
	}

	event := LeadCreatedEvent{
		BaseEvent: e.newBaseEvent(ctx, EventLeadCreated, lead.BusinessID),
		ConfigID:  lead.ConfigID,
		Phone:     lead.Phone,
		LeadID:    lead.ID,
		Status:    lead.Status,
	}

	e.publish(ctx, lead.Phone, event.BaseEvent, event)
}

// newBaseEvent prefers the request ID as correlation ID so events can be
// joined back to webhook request logs.
func (e *Emitter) newBaseEvent(ctx context.Context, eventType EventType, businessID string) BaseEvent {
	base := NewBaseEvent(eventType, businessID)
	if requestID := appctx.GetRequestID(ctx); requestID != "" {
		base.CorrelationID = requestID
	}
	return base
}

func (e *Emitter) publish(ctx context.Context, key string, base BaseEvent, event any) {
	if err := e.producer.Publish(ctx, key, string(base.EventType), base.BusinessID, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": base.EventType,
		}).Warn("Dropped event")
	}
}
