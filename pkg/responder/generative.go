package responder

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalize"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// DefaultHistoryWindow is how many recent turns feed the generative prompt
// when no window is configured.
const DefaultHistoryWindow = 5

// Generator produces a free-form reply from the message and recent history.
type Generator interface {
	Generate(ctx context.Context, message string, history []models.HistoryRecord, promptTemplate, modelName string) (string, error)
}

// RecentHistoryStore reads the recent turns for one customer.
type RecentHistoryStore interface {
	ListRecent(ctx context.Context, businessID, phone string, limit int) ([]models.HistoryRecord, error)
}

// GenerativeHandler is the default stage: it always produces a reply or
// errors, terminating the pipeline chain.
type GenerativeHandler struct {
	generator Generator
	history   RecentHistoryStore
	window    int
	logger    ectologger.Logger
}

// NewGenerativeHandler creates the generative fallback stage. window bounds
// how many recent turns are fed into the prompt.
func NewGenerativeHandler(generator Generator, history RecentHistoryStore, window int, logger ectologger.Logger) *GenerativeHandler {
	if window < 1 {
		window = DefaultHistoryWindow
	}
	return &GenerativeHandler{
		generator: generator,
		history:   history,
		window:    window,
		logger:    logger,
	}
}

func (h *GenerativeHandler) Category() string {
	return models.StageFallback
}

// Respond builds a fresh history window and asks the generative backend for a
// reply. A history read failure degrades to an empty window rather than
// failing the request; the current message always reaches the prompt.
func (h *GenerativeHandler) Respond(ctx context.Context, tenant *models.TenantConfig, msg *models.InboundMessage) (*Reply, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "GenerativeHandler.Respond")
	defer span.End()

	phone := normalize.Phone(msg.FromNumber)
	recent, err := h.history.ListRecent(ctx, tenant.BusinessID, phone, h.window)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to load recent history, generating without context")
		recent = nil
	}

	text, err := h.generator.Generate(ctx, msg.Body, recent, tenant.PromptTemplate, tenant.ModelName)
	if err != nil {
		return nil, false, err
	}

	return &Reply{Body: text}, true, nil
}
