// Package delivery sends WhatsApp replies through a Wassenger-style REST API.
package delivery

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/httpclient"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Config holds delivery provider configuration. APIKey is the service-level
// credential used when a channel has none of its own.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// Client delivers outbound messages to customers
type Client struct {
	httpClient *httpclient.Client
	config     Config
	logger     ectologger.Logger
}

// NewClient creates a new delivery client
func NewClient(httpClient *httpclient.Client, config Config, logger ectologger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		config:     config,
		logger:     logger,
	}
}

type textMessage struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type imageMessage struct {
	Phone string `json:"phone"`
	Media media  `json:"media"`
}

type media struct {
	URL string `json:"url"`
}

// SendText sends a plain text message. The to number is sent exactly as the
// provider gave it to us; normalization is for lookups only.
func (c *Client) SendText(ctx context.Context, credential, to, body string) error {
	ctx, span := tracing.StartSpan(ctx, "DeliveryClient.SendText")
	defer span.End()

	return c.send(ctx, "text", credential, textMessage{Phone: to, Message: body})
}

// SendImage sends an image by URL. The provider fetches the image itself.
func (c *Client) SendImage(ctx context.Context, credential, to, imageURL string) error {
	ctx, span := tracing.StartSpan(ctx, "DeliveryClient.SendImage")
	defer span.End()

	return c.send(ctx, "image", credential, imageMessage{Phone: to, Media: media{URL: imageURL}})
}

func (c *Client) send(ctx context.Context, kind, credential string, payload any) error {
	if credential == "" {
		credential = c.config.APIKey
	}
	if credential == "" {
		return httperror.NewHTTPError(http.StatusBadGateway, "no delivery credential configured")
	}

	retry := httpclient.DefaultRetryConfig
	retry.MaxRetries = c.config.MaxRetries

	start := time.Now()
	resp, err := c.httpClient.DoWithRetry(ctx, retry, "delivery "+kind, func(ctx context.Context) (*httpclient.Response, error) {
		ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
		return c.httpClient.PostJSON(ctx, c.config.BaseURL+"/messages", map[string]string{
			"Token": credential,
		}, payload)
	})
	if err != nil {
		metrics.RecordDelivery(kind, "error", time.Since(start).Seconds())
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"kind": kind,
		}).Error("delivery provider call failed")
		return httperror.WrapError(http.StatusBadGateway, err)
	}
	if !resp.Success() {
		metrics.RecordDelivery(kind, "error", time.Since(start).Seconds())
		c.logger.WithContext(ctx).WithFields(map[string]any{
			"kind":        kind,
			"status_code": resp.StatusCode,
		}).Error("delivery provider returned an error status")
		return httperror.NewHTTPErrorf(http.StatusBadGateway, "delivery provider returned status %d", resp.StatusCode)
	}

	metrics.RecordDelivery(kind, "success", time.Since(start).Seconds())
	c.logger.WithContext(ctx).WithFields(map[string]any{
		"kind": kind,
	}).Debug("Delivered message")
	return nil
}
