package responder

import (
	"context"
	"strings"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// TemplateStore lists the reply templates for one channel.
type TemplateStore interface {
	ListByConfig(ctx context.Context, businessID, configID string) ([]models.TemplateEntry, error)
}

// TemplateHandler answers with the first pre-authored template whose trigger
// appears in the message body.
type TemplateHandler struct {
	store  TemplateStore
	logger ectologger.Logger
}

// NewTemplateHandler creates the template stage
func NewTemplateHandler(store TemplateStore, logger ectologger.Logger) *TemplateHandler {
	return &TemplateHandler{
		store:  store,
		logger: logger,
	}
}

func (h *TemplateHandler) Category() string {
	return models.StageTemplate
}

// Respond scans templates in store-return order and matches the first row
// whose trigger is a non-empty case-insensitive substring of the body. Rows
// without a trigger are skipped, never treated as wildcards. The matched
// row's category is carried on the reply so rows that name another handler
// route there instead of answering with their own body.
func (h *TemplateHandler) Respond(ctx context.Context, tenant *models.TenantConfig, msg *models.InboundMessage) (*Reply, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "TemplateHandler.Respond")
	defer span.End()

	entries, err := h.store.ListByConfig(ctx, tenant.BusinessID, tenant.ConfigID)
	if err != nil {
		return nil, false, err
	}

	body := strings.ToLower(msg.Body)
	entry := ectolinq.Find(entries, func(entry models.TemplateEntry) bool {
		return entry.Trigger != "" && strings.Contains(body, strings.ToLower(entry.Trigger))
	})
	if ectolinq.IsEmpty(entry) {
		return nil, false, nil
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"template_id": entry.ID,
		"trigger":     entry.Trigger,
	}).Debug("Matched reply template")
	return &Reply{Body: entry.Body, ImageURL: entry.ImageURL, Category: entry.Category}, true, nil
}
