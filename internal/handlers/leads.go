package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/utils"
)

// LeadStore is the persistence surface the lead endpoints need.
type LeadStore interface {
	GetByID(ctx context.Context, businessID string, id string) (*models.SalesLead, error)
	List(ctx context.Context, businessID string, page, pageSize int) ([]models.SalesLead, int, error)
	UpdateStatus(ctx context.Context, businessID string, id string, status string) (*models.SalesLead, error)
}

// LeadHandler handles sales lead API requests
type LeadHandler struct {
	repo LeadStore
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(repo LeadStore) *LeadHandler {
	return &LeadHandler{
		repo: repo,
	}
}

// RegisterRoutes registers the lead routes
func (h *LeadHandler) RegisterRoutes(g *echo.Group) {
	leads := g.Group("/leads")
	leads.GET("", h.List)
	leads.GET("/:id", h.Get)
	leads.PATCH("/:id/status", h.UpdateStatus)
}

// List handles GET /leads
func (h *LeadHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, err := GetBusinessID(c)
	if err != nil {
		return err
	}

	page, pageSize := ParsePagination(c)

	items, total, err := h.repo.List(ctx, businessID, page, pageSize)
	if err != nil {
		return err
	}
	if items == nil {
		items = []models.SalesLead{}
	}

	return SuccessResponse(c, models.LeadListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Get handles GET /leads/:id
func (h *LeadHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, err := GetBusinessID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	lead, err := h.repo.GetByID(ctx, businessID, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, lead)
}

// UpdateStatus handles PATCH /leads/:id/status
func (h *LeadHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, err := GetBusinessID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[models.UpdateLeadStatusRequest](c)
	if err != nil {
		return err
	}

	lead, err := h.repo.UpdateStatus(ctx, businessID, id, req.Status)
	if err != nil {
		return err
	}

	return SuccessResponse(c, lead)
}
