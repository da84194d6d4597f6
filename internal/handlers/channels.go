package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/utils"
)

// ChannelStore is the persistence surface the channel endpoints need.
type ChannelStore interface {
	Create(ctx context.Context, businessID string, req models.CreateChannelRequest) (*models.TenantConfig, error)
	GetByID(ctx context.Context, businessID string, id string) (*models.TenantConfig, error)
	List(ctx context.Context, businessID string, page, pageSize int) ([]models.TenantConfig, int, error)
	Update(ctx context.Context, businessID string, id string, req models.UpdateChannelRequest) (*models.TenantConfig, error)
	SetEnabled(ctx context.Context, businessID string, id string, enabled bool) (*models.TenantConfig, error)
	Delete(ctx context.Context, businessID string, id string) error
}

// ConfigInvalidator evicts cached tenant configs after channel mutations.
type ConfigInvalidator interface {
	Invalidate(serviceNumber string)
}

// ChannelHandler handles tenant channel config API requests
type ChannelHandler struct {
	repo  ChannelStore
	cache ConfigInvalidator
}

// NewChannelHandler creates a new channel handler
func NewChannelHandler(repo ChannelStore, cache ConfigInvalidator) *ChannelHandler {
	return &ChannelHandler{
		repo:  repo,
		cache: cache,
	}
}

// RegisterRoutes registers the channel routes
func (h *ChannelHandler) RegisterRoutes(g *echo.Group) {
	channels := g.Group("/channels")
	channels.POST("", h.Create)
	channels.GET("", h.List)
	channels.GET("/:id", h.Get)
	channels.PUT("/:id", h.Update)
	channels.DELETE("/:id", h.Delete)
	channels.POST("/:id/enable", h.Enable)
	channels.POST("/:id/disable", h.Disable)
}

// Create handles POST /channels
func (h *ChannelHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, err := GetBusinessID(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[models.CreateChannelRequest](c)
	if err != nil {
		return err
	}

	config, err := h.repo.Create(ctx, businessID, req)
	if err != nil {
		return err
	}

	return CreatedResponse(c, config)
}

// List handles GET /channels
func (h *ChannelHandler) List(c echo.Context) error {
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
		items = []models.TenantConfig{}
	}

	return SuccessResponse(c, models.ChannelListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Get handles GET /channels/:id
func (h *ChannelHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, err := GetBusinessID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	config, err := h.repo.GetByID(ctx, businessID, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, config)
}

// Update handles PUT /channels/:id
func (h *ChannelHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, err := GetBusinessID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[models.UpdateChannelRequest](c)
	if err != nil {
		return err
	}

	// The old number has to drop out of the cache too when the update moves
	// the channel to a new service number.
	existing, err := h.repo.GetByID(ctx, businessID, id)
	if err != nil {
		return err
	}

	config, err := h.repo.Update(ctx, businessID, id, req)
	if err != nil {
		return err
	}

	h.cache.Invalidate(existing.ServiceNumber)
	h.cache.Invalidate(config.ServiceNumber)

	return SuccessResponse(c, config)
}

// Delete handles DELETE /channels/:id
func (h *ChannelHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, err := GetBusinessID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	existing, err := h.repo.GetByID(ctx, businessID, id)
	if err != nil {
		return err
	}

	if err := h.repo.Delete(ctx, businessID, id); err != nil {
		return err
	}

	h.cache.Invalidate(existing.ServiceNumber)

	return NoContentResponse(c)
}

// Enable handles POST /channels/:id/enable
func (h *ChannelHandler) Enable(c echo.Context) error {
	return h.setEnabled(c, true)
}

// Disable handles POST /channels/:id/disable
func (h *ChannelHandler) Disable(c echo.Context) error {
	return h.setEnabled(c, false)
}

func (h *ChannelHandler) setEnabled(c echo.Context, enabled bool) error {
	ctx := c.Request().Context()

	businessID, err := GetBusinessID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	config, err := h.repo.SetEnabled(ctx, businessID, id, enabled)
	if err != nil {
		return err
	}

	h.cache.Invalidate(config.ServiceNumber)

	return SuccessResponse(c, config)
}
