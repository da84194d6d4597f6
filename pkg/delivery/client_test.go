package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/httpclient"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logger := testLogger()
	return NewClient(httpclient.NewClient(httpclient.DefaultConfig(), logger), Config{
		BaseURL:    baseURL,
		APIKey:     "service-token",
		Timeout:    2 * time.Second,
		MaxRetries: 0,
	}, logger)
}

func TestClient_SendText(t *testing.T) {
	ctx := context.Background()

	t.Run("should post the text payload with the channel credential", func(t *testing.T) {
		var gotToken string
		var gotBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/messages", r.URL.Path)
			gotToken = r.Header.Get("Token")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		client := newTestClient(t, srv.URL)
		err := client.SendText(ctx, "channel-token", "+852 5555 0100", "hello there")

		require.NoError(t, err)
		assert.Equal(t, "channel-token", gotToken)
		assert.Equal(t, map[string]any{"phone": "+852 5555 0100", "message": "hello there"}, gotBody)
	})

	t.Run("should fall back to the service credential", func(t *testing.T) {
		var gotToken string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotToken = r.Header.Get("Token")
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		client := newTestClient(t, srv.URL)
		err := client.SendText(ctx, "", "+15550100", "hi")

		require.NoError(t, err)
		assert.Equal(t, "service-token", gotToken)
	})

	t.Run("should return 502 without calling the provider when no credential exists", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))
		defer srv.Close()

		logger := testLogger()
		client := NewClient(httpclient.NewClient(httpclient.DefaultConfig(), logger), Config{
			BaseURL: srv.URL,
			Timeout: time.Second,
		}, logger)

		err := client.SendText(ctx, "", "+15550100", "hi")

		require.Error(t, err)
		require.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, http.StatusBadGateway, httperror.ToHTTPError(err).Code)
		assert.Equal(t, 0, calls)
	})

	t.Run("should return 502 when the provider keeps failing", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := newTestClient(t, srv.URL)
		err := client.SendText(ctx, "tok", "+15550100", "hi")

		require.Error(t, err)
		require.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, http.StatusBadGateway, httperror.ToHTTPError(err).Code)
		assert.Equal(t, 1, calls)
	})

	t.Run("should retry a server error and succeed", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		client := newTestClient(t, srv.URL)
		client.config.MaxRetries = 1

		err := client.SendText(ctx, "tok", "+15550100", "hi")

		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("should return 502 when the provider rejects the message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid phone"}`))
		}))
		defer srv.Close()

		client := newTestClient(t, srv.URL)
		err := client.SendText(ctx, "tok", "not-a-phone", "hi")

		require.Error(t, err)
		require.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, http.StatusBadGateway, httperror.ToHTTPError(err).Code)
	})

	t.Run("should return 502 when the provider is unreachable", func(t *testing.T) {
		logger := testLogger()
		client := NewClient(httpclient.NewClient(httpclient.DefaultConfig(), logger), Config{
			BaseURL: "http://127.0.0.1:1",
			APIKey:  "tok",
			Timeout: 200 * time.Millisecond,
		}, logger)

		err := client.SendText(ctx, "", "+15550100", "hi")

		require.Error(t, err)
		require.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, http.StatusBadGateway, httperror.ToHTTPError(err).Code)
	})
}

func TestClient_SendImage(t *testing.T) {
	ctx := context.Background()

	t.Run("should post the media payload", func(t *testing.T) {
		var gotBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/messages", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		client := newTestClient(t, srv.URL)
		err := client.SendImage(ctx, "tok", "+15550100", "https://cdn.example.com/menu.jpg")

		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"phone": "+15550100",
			"media": map[string]any{"url": "https://cdn.example.com/menu.jpg"},
		}, gotBody)
	})

	t.Run("should return 502 when the provider fails", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client := newTestClient(t, srv.URL)
		err := client.SendImage(ctx, "tok", "+15550100", "https://cdn.example.com/menu.jpg")

		require.Error(t, err)
		require.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, http.StatusBadGateway, httperror.ToHTTPError(err).Code)
	})
}
