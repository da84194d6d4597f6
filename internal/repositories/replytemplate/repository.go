package replytemplate

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
	"github.com/Ramsey-B/sage/pkg/tracing"
)

const tableName = "reply_templates"

var templateStruct = database.NewStruct(new(models.TemplateEntry))

// TemplateRepository defines the interface for reply template operations
type TemplateRepository interface {
	Create(ctx context.Context, businessID string, req models.CreateTemplateRequest) (*models.TemplateEntry, error)
	GetByID(ctx context.Context, businessID string, id string) (*models.TemplateEntry, error)
	ListByConfig(ctx context.Context, businessID string, configID string) ([]models.TemplateEntry, error)
	List(ctx context.Context, businessID string, configID string, page, pageSize int) ([]models.TemplateEntry, int, error)
	Update(ctx context.Context, businessID string, id string, req models.UpdateTemplateRequest) (*models.TemplateEntry, error)
	Delete(ctx context.Context, businessID string, id string) error
}

// Repository implements TemplateRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new reply template repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new reply template
func (r *Repository) Create(ctx context.Context, businessID string, req models.CreateTemplateRequest) (*models.TemplateEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "TemplateRepository.Create")
	defer span.End()

	template := &models.TemplateEntry{
		ID:         uuid.New().String(),
		BusinessID: businessID,
		ConfigID:   req.ConfigID,
		Trigger:    req.Trigger,
		Category:   req.Category,
		Body:       req.Body,
		ImageURL:   req.ImageURL,
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName).
		Cols("id", "business_id", "config_id", "trigger", "category", "body", "image_url", "created_at", "updated_at").
		Values(template.ID, template.BusinessID, template.ConfigID, template.Trigger, template.Category, template.Body, template.ImageURL,
			sqlbuilder.Raw("NOW()"), sqlbuilder.Raw("NOW()")).
		Returning("created_at", "updated_at")

	query, args := ib.Build()
	err := r.db.QueryRowxContext(ctx, query, args...).Scan(&template.CreatedAt, &template.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"business_id": businessID,
			"config_id":   req.ConfigID,
		}).Error("failed to create template")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create template")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"template_id": template.ID,
		"business_id": businessID,
		"trigger":     template.Trigger,
	}).Info("created template")

	return template, nil
}

// GetByID retrieves a reply template by ID (business-scoped)
func (r *Repository) GetByID(ctx context.Context, businessID string, id string) (*models.TemplateEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "TemplateRepository.GetByID")
	defer span.End()

	sb := templateStruct.SelectFrom(tableName)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("business_id", businessID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var template models.TemplateEntry
	err := r.db.GetContext(ctx, &template, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "template %s does not exist", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"template_id": id,
		}).Error("failed to get template by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get template by ID")
	}

	return &template, nil
}

// ListByConfig returns every template for a (business, config) pair in
// store-return order: (created_at, id) ascending. The matcher depends on this
// order being stable — the first matching row wins.
func (r *Repository) ListByConfig(ctx context.Context, businessID string, configID string) ([]models.TemplateEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "TemplateRepository.ListByConfig")
	defer span.End()

	sb := templateStruct.SelectFrom(tableName)
	sb.Where(
		sb.Equal("business_id", businessID),
		sb.Equal("config_id", configID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("created_at ASC", "id ASC")

	query, args := sb.Build()
	var items []models.TemplateEntry
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"business_id": businessID,
			"config_id":   configID,
		}).Error("failed to list templates by config")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list templates by config")
	}

	return items, nil
}

// List lists reply templates for a business with pagination. An empty configID
// lists across all of the business's configs.
func (r *Repository) List(ctx context.Context, businessID string, configID string, page, pageSize int) ([]models.TemplateEntry, int, error) {
	ctx, span := tracing.StartSpan(ctx, "TemplateRepository.List")
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
	if configID != "" {
		countSb.Where(countSb.Equal("config_id", configID))
	}
	countQuery, countArgs := countSb.Build()

	var totalCount int
	err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count templates")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count templates")
	}

	sb := templateStruct.SelectFrom(tableName)
	sb.Where(
		sb.Equal("business_id", businessID),
		sb.IsNull("deleted_at"),
	)
	if configID != "" {
		sb.Where(sb.Equal("config_id", configID))
	}
	sb.OrderBy("created_at ASC", "id ASC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()
	var items []models.TemplateEntry
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list templates")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list templates")
	}

	return items, totalCount, nil
}

// Update applies a partial update to a reply template
func (r *Repository) Update(ctx context.Context, businessID string, id string, req models.UpdateTemplateRequest) (*models.TemplateEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "TemplateRepository.Update")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)

	assignments := []string{ub.Assign("updated_at", sqlbuilder.Raw("NOW()"))}
	if req.Trigger != nil {
		assignments = append(assignments, ub.Assign("trigger", *req.Trigger))
	}
	if req.Category != nil {
		assignments = append(assignments, ub.Assign("category", *req.Category))
	}
	if req.Body != nil {
		assignments = append(assignments, ub.Assign("body", *req.Body))
	}
	if req.ImageURL != nil {
		assignments = append(assignments, ub.Assign("image_url", *req.ImageURL))
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
			"template_id": id,
		}).Error("failed to update template")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update template")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "template %s does not exist", id)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"template_id": id,
		"business_id": businessID,
	}).Info("updated template")

	return r.GetByID(ctx, businessID, id)
}

// Delete soft deletes a reply template
func (r *Repository) Delete(ctx context.Context, businessID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "TemplateRepository.Delete")
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
			"template_id": id,
		}).Error("failed to delete template")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete template")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "template %s does not exist", id)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"template_id": id,
		"business_id": businessID,
	}).Info("deleted template")

	return nil
}
