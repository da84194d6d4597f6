package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/utils"
)

// TemplateStore is the persistence surface the template endpoints need.
type TemplateStore interface {
	Create(ctx context.Context, businessID string, req models.CreateTemplateRequest) (*models.TemplateEntry, error)
	GetByID(ctx context.Context, businessID string, id string) (*models.TemplateEntry, error)
	List(ctx context.Context, businessID string, configID string, page, pageSize int) ([]models.TemplateEntry, int, error)
	Update(ctx context.Context, businessID string, id string, req models.UpdateTemplateRequest) (*models.TemplateEntry, error)
	Delete(ctx context.Context, businessID string, id string) error
}

// TemplateHandler handles reply template API requests
type TemplateHandler struct {
	repo TemplateStore
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(repo TemplateStore) *TemplateHandler {
	return &TemplateHandler{
		repo: repo,
	}
}

// RegisterRoutes registers the template routes
func (h *TemplateHandler) RegisterRoutes(g *echo.Group) {
	templates := g.Group("/templates")
	templates.POST("", h.Create)
	templates.GET("", h.List)
	templates.GET("/:id", h.Get)
	templates.PUT("/:id", h.Update)
	templates.DELETE("/:id", h.Delete)
}

// Create handles POST /templates
func (h *TemplateHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, err := GetBusinessID(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[models.CreateTemplateRequest](c)
	if err != nil {
		return err
	}

	entry, err := h.repo.Create(ctx, businessID, req)
	if err != nil {
		return err
	}

	return CreatedResponse(c, entry)
}

// List handles GET /templates. An optional config_id query parameter narrows
// the list to one channel.
func (h *TemplateHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, err := GetBusinessID(c)
	if err != nil {
		return err
	}

	page, pageSize := ParsePagination(c)
	configID := c.QueryParam("config_id")

	items, total, err := h.repo.List(ctx, businessID, configID, page, pageSize)
	if err != nil {
		return err
	}
	if items == nil {
		items = []models.TemplateEntry{}
	}

	return SuccessResponse(c, models.TemplateListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Get handles GET /templates/:id
func (h *TemplateHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, err := GetBusinessID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	entry, err := h.repo.GetByID(ctx, businessID, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, entry)
}

// Update handles PUT /templates/:id
func (h *TemplateHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, err := GetBusinessID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[models.UpdateTemplateRequest](c)
	if err != nil {
		return err
	}

	entry, err := h.repo.Update(ctx, businessID, id, req)
	if err != nil {
		return err
	}

	return SuccessResponse(c, entry)
}

// Delete handles DELETE /templates/:id
func (h *TemplateHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, err := GetBusinessID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.repo.Delete(ctx, businessID, id); err != nil {
		return err
	}

	return NoContentResponse(c)
}
