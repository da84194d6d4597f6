// Package responder runs the response pipeline for one inbound message:
// template, then knowledge, then the generative fallback, first match wins.
package responder

import (
	"context"

	"github.com/Ramsey-B/sage/pkg/models"
)

// Reply is what a handler wants sent back to the customer. When ImageURL is
// set the image goes out before the text. A non-empty Category names the
// handler that should produce the final reply instead; the responder resolves
// it through the registry.
type Reply struct {
	Body     string
	ImageURL string
	Category string
}

// Handler is one stage of the response pipeline. Respond returns the reply
// and true on a match, false to let the next stage run. Errors abort the
// pipeline for this message.
type Handler interface {
	Category() string
	Respond(ctx context.Context, tenant *models.TenantConfig, msg *models.InboundMessage) (*Reply, bool, error)
}

// Registry is the closed set of pipeline stages. Order is load-bearing:
// handlers run in registration order and the default handler terminates the
// chain when none of them match.
type Registry struct {
	ordered        []Handler
	defaultHandler Handler
	byCategory     map[string]Handler
}

// NewRegistry builds a registry from the ordered non-default handlers and the
// default handler that runs when nothing else matches.
func NewRegistry(defaultHandler Handler, ordered ...Handler) *Registry {
	byCategory := make(map[string]Handler, len(ordered)+1)
	for _, handler := range ordered {
		byCategory[handler.Category()] = handler
	}
	byCategory[defaultHandler.Category()] = defaultHandler

	return &Registry{
		ordered:        ordered,
		defaultHandler: defaultHandler,
		byCategory:     byCategory,
	}
}

// Ordered returns the non-default handlers in execution order.
func (r *Registry) Ordered() []Handler {
	return r.ordered
}

// Default returns the handler that terminates the chain.
func (r *Registry) Default() Handler {
	return r.defaultHandler
}

// Resolve maps a category name to its handler. Unknown categories resolve to
// the default handler rather than an error, so stale category values in
// stored rows degrade to the fallback instead of breaking dispatch.
func (r *Registry) Resolve(category string) Handler {
	if handler, ok := r.byCategory[category]; ok {
		return handler
	}
	return r.defaultHandler
}
