package tenants

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Resolver maps an inbound message to the channel config that should handle
// it. Resolution is read-only.
type Resolver struct {
	cache  *ConfigCache
	logger ectologger.Logger
}

// NewResolver creates a new tenant resolver
func NewResolver(cache *ConfigCache, logger ectologger.Logger) *Resolver {
	return &Resolver{
		cache:  cache,
		logger: logger,
	}
}

// Resolve looks up the channel config for a message: first by the service
// number the message arrived on, then by the customer's own number. Some
// providers put the business number in a field the parser cannot tell apart
// from the sender, so the secondary lookup catches those payloads. Fails with
// a 404 only when no strategy yields a config.
func (r *Resolver) Resolve(ctx context.Context, msg *models.InboundMessage) (*models.TenantConfig, error) {
	ctx, span := tracing.StartSpan(ctx, "Resolver.Resolve")
	defer span.End()

	if msg.ToNumber != "" {
		config, err := r.cache.Get(ctx, msg.ToNumber)
		if err != nil {
			return nil, err
		}
		if config != nil {
			return config, nil
		}
	}

	if msg.FromNumber != "" {
		config, err := r.cache.Get(ctx, msg.FromNumber)
		if err != nil {
			return nil, err
		}
		if config != nil {
			r.logger.WithContext(ctx).WithFields(map[string]any{
				"business_id": config.BusinessID,
			}).Debug("resolved tenant via sender number fallback")
			return config, nil
		}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"to_number":   msg.ToNumber,
		"from_number": msg.FromNumber,
	}).Warn("no channel config for inbound message")

	return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "no channel configured for number %s", msg.ToNumber)
}
