package handlers

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/sage/pkg/context"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ParseID validates a UUID path parameter and returns it as a string. Row ids
// are uuid columns, so rejecting malformed values here turns a database type
// error into a 400.
func ParseID(c echo.Context, param string) (string, error) {
	idStr := c.Param(param)
	if idStr == "" {
		return "", httperror.NewHTTPError(http.StatusBadRequest, "missing "+param)
	}

	if _, err := uuid.Parse(idStr); err != nil {
		return "", httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid %s: must be a valid UUID", param)
	}

	return idStr, nil
}

// GetBusinessID extracts the business ID from context
func GetBusinessID(c echo.Context) (string, error) {
	ctx := c.Request().Context()
	businessID := appctx.GetTenantID(ctx)
	if businessID == "" {
		return "", httperror.NewHTTPError(http.StatusUnauthorized, "business id is required")
	}

	return businessID, nil
}

// ParsePagination reads page and page_size query parameters, clamped to the
// same bounds the repositories apply, so responses echo the effective values.
func ParsePagination(c echo.Context) (int, int) {
	page := 1
	if raw := c.QueryParam("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}

	pageSize := defaultPageSize
	if raw := c.QueryParam("page_size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			pageSize = parsed
		}
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return page, pageSize
}

// SuccessResponse returns a 200 OK with data
func SuccessResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

// CreatedResponse returns a 201 Created with data
func CreatedResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, data)
}

// NoContentResponse returns a 204 No Content
func NoContentResponse(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// BadRequest returns a 400 Bad Request error
func BadRequest(message string) error {
	return httperror.NewHTTPError(http.StatusBadRequest, message)
}
