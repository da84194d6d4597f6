package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/middleware"
)

const testBusinessID = "biz-1"

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// newAdminTest builds an echo instance with the same context and error
// middleware the server runs, so handlers see the business id and errors
// render with their real status codes.
func newAdminTest(register func(g *echo.Group)) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Context())
	e.HTTPErrorHandler = middleware.Error(testLogger())
	register(e.Group("/api/v1"))
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body any, businessID string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if businessID != "" {
		req.Header.Set(middleware.HeaderTenantID, businessID)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}
