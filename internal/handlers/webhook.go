// Package handlers exposes the HTTP surface: the provider webhook that feeds
// the response pipeline and the tenant-scoped admin CRUD endpoints.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/sage/pkg/context"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalize"
	"github.com/Ramsey-B/sage/pkg/redis"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/Ramsey-B/sage/pkg/webhook"
)

const (
	// DefaultLockTTL caps how long one pipeline execution may hold the
	// per-customer lock before it expires on its own.
	DefaultLockTTL = 30 * time.Second
	// DefaultLockWait bounds how long a delivery waits for the lock before
	// giving up with a 429.
	DefaultLockWait = 10 * time.Second
)

// Pipeline runs the response pipeline for one parsed inbound message.
type Pipeline interface {
	Respond(ctx context.Context, msg *models.InboundMessage) (models.ResolutionOutcome, error)
}

// DedupeChecker reports whether a provider delivery is the first one seen.
type DedupeChecker interface {
	FirstDelivery(ctx context.Context, provider, messageID string) (bool, error)
}

// CustomerLocker serializes executions that share a lock key.
type CustomerLocker interface {
	WithLock(ctx context.Context, key string, ttl, wait time.Duration, fn func() error) error
}

// WebhookConfig holds the lock bounds for webhook processing.
type WebhookConfig struct {
	LockTTL  time.Duration
	LockWait time.Duration
}

// WebhookHandler receives provider callbacks and drives the pipeline.
type WebhookHandler struct {
	registry  *webhook.Registry
	deduper   DedupeChecker
	locker    CustomerLocker
	pipeline  Pipeline
	config    WebhookConfig
	logger    ectologger.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(
	registry *webhook.Registry,
	deduper DedupeChecker,
	locker CustomerLocker,
	pipeline Pipeline,
	config WebhookConfig,
	logger ectologger.Logger,
) *WebhookHandler {
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}
	if config.LockWait <= 0 {
		config.LockWait = DefaultLockWait
	}

	return &WebhookHandler{
		registry: registry,
		deduper:  deduper,
		locker:   locker,
		pipeline: pipeline,
		config:   config,
		logger:   logger,
	}
}

// RegisterRoutes registers the webhook routes. These live at the server root
// because providers are configured with a bare callback URL.
func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Liveness)
	e.GET("/webhook", h.Liveness)
	e.POST("/webhook", h.Receive)
}

// Liveness answers provider URL-verification pings. It never touches the
// pipeline or any dependency.
// GET /webhook
func (h *WebhookHandler) Liveness(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

type webhookAck struct {
	Status string `json:"status"`
}

func ackOK(c echo.Context) error {
	return c.JSON(http.StatusOK, webhookAck{Status: "ok"})
}

// Receive handles one provider delivery: parse, dedupe, lock, then run the
// pipeline. Payloads no parser recognizes (status callbacks, receipts) are
// acknowledged with 200 so the provider stops retrying them.
// POST /webhook
func (h *WebhookHandler) Receive(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "WebhookHandler.Receive")
	defer span.End()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		metrics.RecordWebhook("unknown", "read_error")
		return httperror.WrapError(http.StatusBadRequest, err)
	}

	msg, ok := h.registry.Parse(ctx, body)
	if !ok {
		metrics.RecordWebhook("unknown", models.IgnoredReasonUnrecognized)
		h.logger.WithContext(ctx).Debug("Acknowledging unrecognized webhook payload")
		return ackOK(c)
	}

	ctx = appctx.SetProvider(ctx, msg.Provider)
	ctx = appctx.SetCustomer(ctx, msg.FromNumber)
	c.SetRequest(c.Request().WithContext(ctx))

	if msg.MessageID != "" {
		first, err := h.deduper.FirstDelivery(ctx, msg.Provider, msg.MessageID)
		if err != nil {
			// A dead dedupe store must not drop customer messages; the
			// worst case is a repeated send.
			h.logger.WithContext(ctx).WithError(err).Warn("Dedupe check failed, processing anyway")
		}
		if !first {
			metrics.RecordDuplicate(msg.Provider)
			metrics.RecordWebhook(msg.Provider, models.IgnoredReasonDuplicate)
			return ackOK(c)
		}
	}

	var outcome models.ResolutionOutcome
	err = h.locker.WithLock(ctx, lockKey(msg), h.config.LockTTL, h.config.LockWait, func() error {
		var runErr error
		outcome, runErr = h.pipeline.Respond(ctx, msg)
		return runErr
	})
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			metrics.RecordWebhook(msg.Provider, "contention")
			return httperror.NewHTTPError(http.StatusTooManyRequests, "another message from this customer is still being processed")
		}
		metrics.RecordWebhook(msg.Provider, "error")
		return err
	}

	metrics.RecordWebhook(msg.Provider, string(outcome.Kind))

	return ackOK(c)
}

// lockKey scopes serialization to one customer on one service number. The
// service number stands in for the tenant, which is not resolved yet when the
// lock is taken.
func lockKey(msg *models.InboundMessage) string {
	return normalize.Phone(msg.ToNumber) + ":" + normalize.Phone(msg.FromNumber)
}
