package channel

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalize"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

const tableName = "tenant_configs"

var channelStruct = database.NewStruct(new(models.TenantConfig))

// ChannelRepository defines the interface for tenant channel config operations
type ChannelRepository interface {
	Create(ctx context.Context, businessID string, req models.CreateChannelRequest) (*models.TenantConfig, error)
	GetByID(ctx context.Context, businessID string, id string) (*models.TenantConfig, error)
	GetByServiceNumber(ctx context.Context, serviceNumber string) (*models.TenantConfig, error)
	List(ctx context.Context, businessID string, page, pageSize int) ([]models.TenantConfig, int, error)
	Update(ctx context.Context, businessID string, id string, req models.UpdateChannelRequest) (*models.TenantConfig, error)
	SetEnabled(ctx context.Context, businessID string, id string, enabled bool) (*models.TenantConfig, error)
	Delete(ctx context.Context, businessID string, id string) error
}

// Repository implements ChannelRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new channel repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new channel config. The service number is stored in its
// normalized form so webhook lookups match regardless of how it was entered.
func (r *Repository) Create(ctx context.Context, businessID string, req models.CreateChannelRequest) (*models.TenantConfig, error) {
	ctx, span := tracing.StartSpan(ctx, "ChannelRepository.Create")
	defer span.End()

	channel := &models.TenantConfig{
		ID:                 uuid.New().String(),
		BusinessID:         businessID,
		ConfigID:           req.ConfigID,
		ServiceNumber:      normalize.Digits(req.ServiceNumber),
		Role:               req.Role,
		PromptTemplate:     req.PromptTemplate,
		ModelName:          req.ModelName,
		DeliveryCredential: req.DeliveryCredential,
		Enabled:            true,
	}
	if req.Enabled != nil {
		channel.Enabled = *req.Enabled
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName).
		Cols("id", "business_id", "config_id", "service_number", "role", "prompt_template", "model_name", "delivery_credential", "enabled", "created_at", "updated_at").
		Values(channel.ID, channel.BusinessID, channel.ConfigID, channel.ServiceNumber, channel.Role, channel.PromptTemplate, channel.ModelName, channel.DeliveryCredential, channel.Enabled,
			sqlbuilder.Raw("NOW()"), sqlbuilder.Raw("NOW()")).
		Returning("created_at", "updated_at")

	query, args := ib.Build()
	err := r.db.QueryRowxContext(ctx, query, args...).Scan(&channel.CreatedAt, &channel.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"business_id":    businessID,
			"service_number": channel.ServiceNumber,
		}).Error("failed to create channel")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create channel")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"channel_id":     channel.ID,
		"business_id":    businessID,
		"service_number": channel.ServiceNumber,
	}).Info("created channel")

	return channel, nil
}

// GetByID retrieves a channel config by ID (business-scoped)
func (r *Repository) GetByID(ctx context.Context, businessID string, id string) (*models.TenantConfig, error) {
	ctx, span := tracing.StartSpan(ctx, "ChannelRepository.GetByID")
	defer span.End()

	sb := channelStruct.SelectFrom(tableName)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("business_id", businessID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var channel models.TenantConfig
	err := r.db.GetContext(ctx, &channel, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "channel %s does not exist", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"channel_id": id,
		}).Error("failed to get channel by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get channel by ID")
	}

	return &channel, nil
}

// GetByServiceNumber retrieves the enabled channel config routed by a service
// number. The lookup key is normalized before matching. Returns (nil, nil)
// when nothing matches; the resolver decides what a miss means.
func (r *Repository) GetByServiceNumber(ctx context.Context, serviceNumber string) (*models.TenantConfig, error) {
	ctx, span := tracing.StartSpan(ctx, "ChannelRepository.GetByServiceNumber")
	defer span.End()

	sb := channelStruct.SelectFrom(tableName)
	sb.Where(
		sb.Equal("service_number", normalize.Digits(serviceNumber)),
		sb.Equal("enabled", true),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var channel models.TenantConfig
	err := r.db.GetContext(ctx, &channel, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"service_number": serviceNumber,
		}).Error("failed to get channel by service number")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get channel by service number")
	}

	return &channel, nil
}

// List lists channel configs for a business with pagination
func (r *Repository) List(ctx context.Context, businessID string, page, pageSize int) ([]models.TenantConfig, int, error) {
	ctx, span := tracing.StartSpan(ctx, "ChannelRepository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	countSb := database.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(tableName)
	countSb.Where(
		countSb.Equal("business_id", businessID),
		countSb.IsNull("deleted_at"),
	)
	countQuery, countArgs := countSb.Build()

	var totalCount int
	err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count channels")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count channels")
	}

	sb := channelStruct.SelectFrom(tableName)
	sb.Where(
		sb.Equal("business_id", businessID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("created_at ASC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()
	var items []models.TenantConfig
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list channels")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list channels")
	}

	return items, totalCount, nil
}

// Update applies a partial update to a channel config. Nil request fields are
// left unchanged; a new service number is normalized before storage.
func (r *Repository) Update(ctx context.Context, businessID string, id string, req models.UpdateChannelRequest) (*models.TenantConfig, error) {
	ctx, span := tracing.StartSpan(ctx, "ChannelRepository.Update")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)

	assignments := []string{ub.Assign("updated_at", sqlbuilder.Raw("NOW()"))}
	if req.ServiceNumber != nil {
		assignments = append(assignments, ub.Assign("service_number", normalize.Digits(*req.ServiceNumber)))
	}
	if req.Role != nil {
		assignments = append(assignments, ub.Assign("role", *req.Role))
	}
	if req.PromptTemplate != nil {
		assignments = append(assignments, ub.Assign("prompt_template", *req.PromptTemplate))
	}
	if req.ModelName != nil {
		assignments = append(assignments, ub.Assign("model_name", *req.ModelName))
	}
	if req.DeliveryCredential != nil {
		assignments = append(assignments, ub.Assign("delivery_credential", *req.DeliveryCredential))
	}
	ub.Set(assignments...)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("business_id", businessID),
		ub.IsNull("deleted_at"),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"channel_id": id,
		}).Error("failed to update channel")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update channel")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"channel_id": id,
		}).Error("failed to update channel")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update channel")
	}
	if rows == 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "channel %s does not exist", id)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"channel_id":  id,
		"business_id": businessID,
	}).Info("updated channel")

	return r.GetByID(ctx, businessID, id)
}

// SetEnabled enables or disables a channel config
func (r *Repository) SetEnabled(ctx context.Context, businessID string, id string, enabled bool) (*models.TenantConfig, error) {
	ctx, span := tracing.StartSpan(ctx, "ChannelRepository.SetEnabled")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(
		ub.Assign("enabled", enabled),
		ub.Assign("updated_at", sqlbuilder.Raw("NOW()")),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("business_id", businessID),
		ub.IsNull("deleted_at"),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"channel_id": id,
			"enabled":    enabled,
		}).Error("failed to set channel enabled state")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to set channel enabled state")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "channel %s does not exist", id)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"channel_id": id,
		"enabled":    enabled,
	}).Info("set channel enabled state")

	return r.GetByID(ctx, businessID, id)
}

// Delete soft deletes a channel config
func (r *Repository) Delete(ctx context.Context, businessID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "ChannelRepository.Delete")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(ub.Assign("deleted_at", sqlbuilder.Raw("NOW()")))
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("business_id", businessID),
		ub.IsNull("deleted_at"),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"channel_id": id,
		}).Error("failed to delete channel")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete channel")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "channel %s does not exist", id)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"channel_id":  id,
		"business_id": businessID,
	}).Info("deleted channel")

	return nil
}
