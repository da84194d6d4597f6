package responder

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalize"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// DefaultBookingKeywords flag a generated reply as a sales lead.
var DefaultBookingKeywords = []string{"booking", "预约"}

// Resolver maps an inbound message to its tenant channel config.
type Resolver interface {
	Resolve(ctx context.Context, msg *models.InboundMessage) (*models.TenantConfig, error)
}

// Deliverer sends replies back to the customer.
type Deliverer interface {
	SendText(ctx context.Context, credential, to, body string) error
	SendImage(ctx context.Context, credential, to, imageURL string) error
}

// HistoryStore appends resolved conversation turns.
type HistoryStore interface {
	Create(ctx context.Context, record *models.HistoryRecord) error
}

// LeadStore appends sales leads.
type LeadStore interface {
	Create(ctx context.Context, lead *models.SalesLead) error
}

// TxStarter opens or joins a database transaction; satisfied by database.DB.
type TxStarter interface {
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error)
}

// Responder drives the pipeline for one inbound message: group filter, tenant
// resolution, then the handler chain with the default handler last.
type Responder struct {
	db       TxStarter
	resolver Resolver
	registry *Registry
	delivery Deliverer
	history  HistoryStore
	leads    LeadStore
	emitter  *events.Emitter
	keywords []string
	logger   ectologger.Logger
}

// NewResponder creates the pipeline orchestrator. An empty keyword set falls
// back to DefaultBookingKeywords; a nil emitter disables events.
func NewResponder(
	db TxStarter,
	resolver Resolver,
	registry *Registry,
	delivery Deliverer,
	history HistoryStore,
	leads LeadStore,
	emitter *events.Emitter,
	bookingKeywords []string,
	logger ectologger.Logger,
) *Responder {
	if len(bookingKeywords) == 0 {
		bookingKeywords = DefaultBookingKeywords
	}
	return &Responder{
		db:       db,
		resolver: resolver,
		registry: registry,
		delivery: delivery,
		history:  history,
		leads:    leads,
		emitter:  emitter,
		keywords: bookingKeywords,
		logger:   logger,
	}
}

// Respond returns the terminal outcome for the message, or an error when a
// stage, delivery, or write fails. Group messages are ignored before any
// tenant lookup runs.
func (r *Responder) Respond(ctx context.Context, msg *models.InboundMessage) (models.ResolutionOutcome, error) {
	ctx, span := tracing.StartSpan(ctx, "Responder.Respond")
	defer span.End()

	if msg.IsGroup {
		metrics.RecordResolution(models.StageIgnored, models.IgnoredReasonGroup, 0)
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"provider": msg.Provider,
		}).Debug("Ignoring group message")
		return models.Ignored(models.IgnoredReasonGroup), nil
	}

	tenant, err := r.resolver.Resolve(ctx, msg)
	if err != nil {
		return models.ResolutionOutcome{}, err
	}

	phone := normalize.Phone(msg.FromNumber)
	r.emitter.EmitConversationReceived(ctx, tenant.BusinessID, tenant.ConfigID, phone, msg.Provider)

	for _, handler := range r.registry.Ordered() {
		outcome, matched, err := r.runStage(ctx, handler, tenant, msg, phone)
		if err != nil {
			return models.ResolutionOutcome{}, err
		}
		if matched {
			return outcome, nil
		}
	}

	outcome, matched, err := r.runStage(ctx, r.registry.Default(), tenant, msg, phone)
	if err != nil {
		return models.ResolutionOutcome{}, err
	}
	if !matched {
		// The default handler must terminate the chain; a non-match here is a
		// broken handler, not a pipeline state.
		return models.ResolutionOutcome{}, httperror.NewHTTPError(http.StatusInternalServerError, "default handler produced no reply")
	}
	return outcome, nil
}

func (r *Responder) runStage(ctx context.Context, handler Handler, tenant *models.TenantConfig, msg *models.InboundMessage, phone string) (models.ResolutionOutcome, bool, error) {
	stage := handler.Category()
	start := time.Now()

	reply, matched, err := handler.Respond(ctx, tenant, msg)
	if err != nil {
		metrics.RecordResolution(stage, "error", time.Since(start).Seconds())
		return models.ResolutionOutcome{}, false, err
	}
	if !matched {
		return models.ResolutionOutcome{}, false, nil
	}

	// A matched row may name another category. The registry picks the handler
	// that produces the reply, with unknown names landing on the default; a
	// delegate that produces nothing lets the chain continue.
	if reply.Category != "" && reply.Category != stage {
		if delegate := r.registry.Resolve(reply.Category); delegate.Category() != stage {
			stage = delegate.Category()
			r.logger.WithContext(ctx).WithFields(map[string]any{
				"category": reply.Category,
				"stage":    stage,
			}).Debug("Routing matched trigger through category handler")

			reply, matched, err = delegate.Respond(ctx, tenant, msg)
			if err != nil {
				metrics.RecordResolution(stage, "error", time.Since(start).Seconds())
				return models.ResolutionOutcome{}, false, err
			}
			if !matched {
				return models.ResolutionOutcome{}, false, nil
			}
		}
	}

	if err := r.deliver(ctx, tenant, msg.FromNumber, reply); err != nil {
		metrics.RecordResolution(stage, "error", time.Since(start).Seconds())
		return models.ResolutionOutcome{}, false, err
	}

	outcome := outcomeForStage(stage, reply)

	var lead *models.SalesLead
	if outcome.Kind == models.OutcomeGeneratedSent && ContainsBookingIntent(reply.Body, r.keywords) {
		lead = &models.SalesLead{
			BusinessID: tenant.BusinessID,
			ConfigID:   tenant.ConfigID,
			Phone:      phone,
		}
	}

	record := &models.HistoryRecord{
		BusinessID: tenant.BusinessID,
		ConfigID:   tenant.ConfigID,
		Phone:      phone,
		Stage:      stage,
		Message:    msg.Body,
		Response:   reply.Body,
	}
	if err := r.record(ctx, record, lead); err != nil {
		metrics.RecordResolution(stage, "error", time.Since(start).Seconds())
		return models.ResolutionOutcome{}, false, err
	}

	metrics.RecordResolution(stage, "success", time.Since(start).Seconds())
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"business_id": tenant.BusinessID,
		"config_id":   tenant.ConfigID,
		"stage":       stage,
		"outcome":     string(outcome.Kind),
	}).Info("Resolved inbound message")

	r.emitter.EmitConversationResponded(ctx, tenant.BusinessID, tenant.ConfigID, phone, stage, string(outcome.Kind))
	if lead != nil {
		metrics.LeadsCreatedTotal.Inc()
		r.emitter.EmitLeadCreated(ctx, lead)
	}

	return outcome, true, nil
}

// deliver sends the image first when one is present; some providers render
// captions best when the image precedes the text bubble.
func (r *Responder) deliver(ctx context.Context, tenant *models.TenantConfig, to string, reply *Reply) error {
	if reply.ImageURL != "" {
		if err := r.delivery.SendImage(ctx, tenant.DeliveryCredential, to, reply.ImageURL); err != nil {
			return err
		}
	}
	return r.delivery.SendText(ctx, tenant.DeliveryCredential, to, reply.Body)
}

// record writes the history row and, when booking intent was detected, the
// sales lead in one transaction so a crash cannot leave a lead without its
// conversation turn.
func (r *Responder) record(ctx context.Context, record *models.HistoryRecord, lead *models.SalesLead) error {
	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := r.history.Create(ctx, record); err != nil {
		return err
	}
	if lead != nil {
		if err := r.leads.Create(ctx, lead); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func outcomeForStage(stage string, reply *Reply) models.ResolutionOutcome {
	switch stage {
	case models.StageTemplate:
		return models.TemplateSent(reply.Body, reply.ImageURL)
	case models.StageKnowledge:
		return models.KnowledgeSent(reply.Body, reply.ImageURL)
	default:
		return models.GeneratedSent(reply.Body)
	}
}

// ContainsBookingIntent reports whether the text contains any of the booking
// keywords, case-insensitively. Pure: the same text and keyword set always
// give the same answer.
func ContainsBookingIntent(text string, keywords []string) bool {
	lowered := strings.ToLower(text)
	match := ectolinq.Find(keywords, func(keyword string) bool {
		return keyword != "" && strings.Contains(lowered, strings.ToLower(keyword))
	})
	return !ectolinq.IsEmpty(match)
}
