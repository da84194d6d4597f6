package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// RetryConfig defines retry behavior for transient failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig retries twice with power-of-two backoff.
var DefaultRetryConfig = RetryConfig{
	MaxRetries: 2,
	BaseDelay:  500 * time.Millisecond,
	MaxDelay:   5 * time.Second,
}

// Retryable reports whether a response status is worth retrying: request
// timeout, rate limiting, or any server-side failure.
func Retryable(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= 500
}

// DoWithRetry runs call with exponential backoff until it succeeds, returns a
// non-retryable status, or attempts are exhausted. Network errors always
// retry; the caller maps the final failure to its own taxonomy.
func (c *Client) DoWithRetry(ctx context.Context, retry RetryConfig, operation string, call func(context.Context) (*Response, error)) (*Response, error) {
	var lastErr error
	var lastResp *Response

	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		resp, err := call(ctx)
		if err == nil && !Retryable(resp.StatusCode) {
			return resp, nil
		}

		lastErr = err
		lastResp = resp
		if attempt == retry.MaxRetries {
			break
		}

		delay := retry.BaseDelay * time.Duration(1<<attempt)
		if delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}

		c.logger.WithContext(ctx).WithFields(map[string]any{
			"operation": operation,
			"attempt":   attempt + 1,
			"delay":     delay.String(),
		}).Warn("retrying request")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("operation %s cancelled after %d attempts: %w", operation, attempt+1, ctx.Err())
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("operation %s failed after %d attempts: %w", operation, retry.MaxRetries+1, lastErr)
	}
	return lastResp, fmt.Errorf("operation %s failed after %d attempts with status %d", operation, retry.MaxRetries+1, lastResp.StatusCode)
}
