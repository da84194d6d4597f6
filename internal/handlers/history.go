package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalize"
)

// HistoryStore is the persistence surface the history endpoints need.
type HistoryStore interface {
	List(ctx context.Context, businessID string, phone string, page, pageSize int) ([]models.HistoryRecord, int, error)
}

// HistoryHandler handles conversation history API requests
type HistoryHandler struct {
	repo HistoryStore
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(repo HistoryStore) *HistoryHandler {
	return &HistoryHandler{
		repo: repo,
	}
}

// RegisterRoutes registers the history routes
func (h *HistoryHandler) RegisterRoutes(g *echo.Group) {
	history := g.Group("/history")
	history.GET("", h.List)
}

// List handles GET /history. An optional phone query parameter narrows the
// list to one customer; it is normalized the same way records are keyed, so
// any entry format finds the conversation.
func (h *HistoryHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, err := GetBusinessID(c)
	if err != nil {
		return err
	}

	page, pageSize := ParsePagination(c)

	phone := c.QueryParam("phone")
	if phone != "" {
		phone = normalize.Phone(phone)
	}

	items, total, err := h.repo.List(ctx, businessID, phone, page, pageSize)
	if err != nil {
		return err
	}
	if items == nil {
		items = []models.HistoryRecord{}
	}

	return SuccessResponse(c, models.HistoryListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}
