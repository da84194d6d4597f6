// Package generative calls an OpenAI-compatible chat completion backend to
// produce the fallback reply when no template or knowledge entry matches.
package generative

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/httpclient"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// defaultPromptTemplate is used when a channel has no prompt template of its
// own. The placeholders match the ones admins use in channel rows.
const defaultPromptTemplate = "You are a helpful customer service assistant. " +
	"Use the conversation so far to answer the customer's message concisely.\n\n" +
	"Conversation so far:\n{history}\n\nCustomer: {user_message}"

// Config holds generative backend configuration
type Config struct {
	BaseURL      string
	APIKey       string
	DefaultModel string
	Timeout      time.Duration
	MaxRetries   int
	Temperature  float64
}

// Client is the generative fallback backend
type Client struct {
	httpClient *httpclient.Client
	config     Config
	logger     ectologger.Logger
}

// NewClient creates a new generative client
func NewClient(httpClient *httpclient.Client, config Config, logger ectologger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		config:     config,
		logger:     logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

// Generate produces a reply for the message. The prompt is the tenant's
// template with {history} and {user_message} substituted. Returns 503 when no
// credential is configured and 502 when the backend fails or answers with
// something unusable, after bounded retries.
func (c *Client) Generate(ctx context.Context, message string, history []models.HistoryRecord, promptTemplate, modelName string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "GenerativeClient.Generate")
	defer span.End()

	if c.config.APIKey == "" {
		return "", httperror.NewHTTPError(http.StatusServiceUnavailable, "generative backend is not configured")
	}

	model := modelName
	if model == "" {
		model = c.config.DefaultModel
	}

	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "user", Content: BuildPrompt(promptTemplate, message, history)},
		},
		Temperature: c.config.Temperature,
	}

	retry := httpclient.DefaultRetryConfig
	retry.MaxRetries = c.config.MaxRetries

	start := time.Now()
	resp, err := c.httpClient.DoWithRetry(ctx, retry, "generative completion", func(ctx context.Context) (*httpclient.Response, error) {
		ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
		return c.httpClient.PostJSON(ctx, c.config.BaseURL+"/chat/completions", map[string]string{
			"Authorization": "Bearer " + c.config.APIKey,
		}, reqBody)
	})
	if err != nil {
		metrics.RecordGenerativeRequest(model, "error", time.Since(start).Seconds())
		c.logger.WithContext(ctx).WithError(err).Error("generative backend call failed")
		return "", httperror.WrapError(http.StatusBadGateway, err)
	}
	if !resp.Success() {
		metrics.RecordGenerativeRequest(model, "error", time.Since(start).Seconds())
		c.logger.WithContext(ctx).WithFields(map[string]any{
			"status_code": resp.StatusCode,
		}).Error("generative backend returned an error status")
		return "", httperror.NewHTTPErrorf(http.StatusBadGateway, "generative backend returned status %d", resp.StatusCode)
	}

	var completion chatResponse
	if err := json.Unmarshal(resp.Body, &completion); err != nil {
		metrics.RecordGenerativeRequest(model, "error", time.Since(start).Seconds())
		c.logger.WithContext(ctx).WithError(err).Error("generative backend returned malformed JSON")
		return "", httperror.NewHTTPError(http.StatusBadGateway, "generative backend returned a malformed response")
	}
	if len(completion.Choices) == 0 {
		metrics.RecordGenerativeRequest(model, "error", time.Since(start).Seconds())
		return "", httperror.NewHTTPError(http.StatusBadGateway, "generative backend returned no choices")
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		metrics.RecordGenerativeRequest(model, "error", time.Since(start).Seconds())
		return "", httperror.NewHTTPError(http.StatusBadGateway, "generative backend returned an empty reply")
	}

	metrics.RecordGenerativeRequest(model, "success", time.Since(start).Seconds())
	return text, nil
}

// BuildPrompt substitutes {history} and {user_message} into the template. An
// empty template falls back to the package default.
func BuildPrompt(template, message string, history []models.HistoryRecord) string {
	if template == "" {
		template = defaultPromptTemplate
	}
	prompt := strings.ReplaceAll(template, "{history}", FormatHistory(history))
	return strings.ReplaceAll(prompt, "{user_message}", message)
}

// FormatHistory renders the bounded transcript window, oldest first, as
// Customer/Assistant line pairs.
func FormatHistory(history []models.HistoryRecord) string {
	if len(history) == 0 {
		return ""
	}

	lines := make([]string, 0, len(history)*2)
	for _, record := range history {
		lines = append(lines, "Customer: "+record.Message, "Assistant: "+record.Response)
	}
	return strings.Join(lines, "\n")
}
