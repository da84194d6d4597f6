package responder

import (
	"context"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// KnowledgeStore lists the knowledge entries for one business.
type KnowledgeStore interface {
	ListByBusiness(ctx context.Context, businessID string) ([]models.KnowledgeEntry, error)
}

// KnowledgeHandler answers with the first scripted knowledge entry whose
// title appears in the message body.
type KnowledgeHandler struct {
	store  KnowledgeStore
	logger ectologger.Logger
}

// NewKnowledgeHandler creates the knowledge stage
func NewKnowledgeHandler(store KnowledgeStore, logger ectologger.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		store:  store,
		logger: logger,
	}
}

func (h *KnowledgeHandler) Category() string {
	return models.StageKnowledge
}

// Respond scans entries in store order for the first whose title is a
// non-empty case-insensitive substring of the body and that has a usable
// script for the tenant's role. Entries with no usable script are passed
// over, not answered with an empty reply.
func (h *KnowledgeHandler) Respond(ctx context.Context, tenant *models.TenantConfig, msg *models.InboundMessage) (*Reply, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "KnowledgeHandler.Respond")
	defer span.End()

	entries, err := h.store.ListByBusiness(ctx, tenant.BusinessID)
	if err != nil {
		return nil, false, err
	}

	body := strings.ToLower(msg.Body)
	for i := range entries {
		entry := &entries[i]
		if entry.Title == "" {
			continue
		}
		if !strings.Contains(body, strings.ToLower(entry.Title)) {
			continue
		}

		script := entry.ScriptFor(tenant.Role)
		if script == "" {
			continue
		}

		imageURL := ""
		if len(entry.ImageURLs.Data) > 0 {
			imageURL = entry.ImageURLs.Data[0]
		}

		h.logger.WithContext(ctx).WithFields(map[string]any{
			"knowledge_id": entry.ID,
			"title":        entry.Title,
		}).Debug("Matched knowledge entry")
		return &Reply{Body: script, ImageURL: imageURL}, true, nil
	}

	return nil, false, nil
}
