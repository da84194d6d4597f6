package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/utils"
)

// KnowledgeStore is the persistence surface the knowledge endpoints need.
type KnowledgeStore interface {
	Create(ctx context.Context, businessID string, req models.CreateKnowledgeRequest) (*models.KnowledgeEntry, error)
	GetByID(ctx context.Context, businessID string, id string) (*models.KnowledgeEntry, error)
	List(ctx context.Context, businessID string, page, pageSize int) ([]models.KnowledgeEntry, int, error)
	Update(ctx context.Context, businessID string, id string, req models.UpdateKnowledgeRequest) (*models.KnowledgeEntry, error)
	Delete(ctx context.Context, businessID string, id string) error
}

// KnowledgeHandler handles knowledge base API requests
type KnowledgeHandler struct {
	repo KnowledgeStore
}

// NewKnowledgeHandler creates a new knowledge handler
func NewKnowledgeHandler(repo KnowledgeStore) *KnowledgeHandler {
	return &KnowledgeHandler{
		repo: repo,
	}
}

// RegisterRoutes registers the knowledge routes
func (h *KnowledgeHandler) RegisterRoutes(g *echo.Group) {
	knowledge := g.Group("/knowledge")
	knowledge.POST("", h.Create)
	knowledge.GET("", h.List)
	knowledge.GET("/:id", h.Get)
	knowledge.PUT("/:id", h.Update)
	knowledge.DELETE("/:id", h.Delete)
}

// Create handles POST /knowledge
func (h *KnowledgeHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, err := GetBusinessID(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[models.CreateKnowledgeRequest](c)
	if err != nil {
		return err
	}

	entry, err := h.repo.Create(ctx, businessID, req)
	if err != nil {
		return err
	}

	return CreatedResponse(c, entry)
}

// List handles GET /knowledge
func (h *KnowledgeHandler) List(c echo.Context) error {
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
		items = []models.KnowledgeEntry{}
	}

	return SuccessResponse(c, models.KnowledgeListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Get handles GET /knowledge/:id
func (h *KnowledgeHandler) Get(c echo.Context) error {
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

// Update handles PUT /knowledge/:id
func (h *KnowledgeHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, err := GetBusinessID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[models.UpdateKnowledgeRequest](c)
	if err != nil {
		return err
	}

	entry, err := h.repo.Update(ctx, businessID, id, req)
	if err != nil {
		return err
	}

	return SuccessResponse(c, entry)
}

// Delete handles DELETE /knowledge/:id
func (h *KnowledgeHandler) Delete(c echo.Context) error {
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
