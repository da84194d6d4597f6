// Package webhook turns provider-specific webhook payloads into the one
// InboundMessage shape the pipeline consumes. Every provider quirk stays
// behind a named Parser; nothing outside this package branches on payload
// shape.
package webhook

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/models"
)

// Parser extracts an InboundMessage from one provider's payload shape. It
// reports false when the payload is not something it recognizes as an inbound
// customer message — status callbacks and delivery receipts are not matches.
type Parser interface {
	Name() string
	Parse(payload []byte) (*models.InboundMessage, bool)
}

// Registry tries parsers in priority order and tags the parsed message with
// the winning parser's name.
type Registry struct {
	parsers []Parser
	logger  ectologger.Logger
}

// NewRegistry creates a parser registry. Order is priority order.
func NewRegistry(logger ectologger.Logger, parsers ...Parser) *Registry {
	return &Registry{
		parsers: parsers,
		logger:  logger,
	}
}

// NewDefaultRegistry wires the production parser set: wassenger, then meta
// cloud, then the configuration-driven generic parser.
func NewDefaultRegistry(logger ectologger.Logger, generic GenericConfig) (*Registry, error) {
	genericParser, err := NewGenericParser(generic)
	if err != nil {
		return nil, err
	}
	return NewRegistry(logger, NewWassengerParser(), NewMetaParser(), genericParser), nil
}

// Parse runs the payload through the parsers in order. A false result means
// no parser recognized it.
func (r *Registry) Parse(ctx context.Context, payload []byte) (*models.InboundMessage, bool) {
	for _, parser := range r.parsers {
		msg, ok := parser.Parse(payload)
		if !ok {
			continue
		}
		msg.Provider = parser.Name()
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"provider":   msg.Provider,
			"message_id": msg.MessageID,
			"is_group":   msg.IsGroup,
		}).Debug("parsed webhook payload")
		return msg, true
	}

	return nil, false
}
