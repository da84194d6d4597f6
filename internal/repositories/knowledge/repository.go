package knowledge

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

const tableName = "knowledge_entries"

var knowledgeStruct = database.NewStruct(new(models.KnowledgeEntry))

// KnowledgeRepository defines the interface for knowledge entry operations
type KnowledgeRepository interface {
	Create(ctx context.Context, businessID string, req models.CreateKnowledgeRequest) (*models.KnowledgeEntry, error)
	GetByID(ctx context.Context, businessID string, id string) (*models.KnowledgeEntry, error)
	ListByBusiness(ctx context.Context, businessID string) ([]models.KnowledgeEntry, error)
	List(ctx context.Context, businessID string, page, pageSize int) ([]models.KnowledgeEntry, int, error)
	Update(ctx context.Context, businessID string, id string, req models.UpdateKnowledgeRequest) (*models.KnowledgeEntry, error)
	Delete(ctx context.Context, businessID string, id string) error
}

// Repository implements KnowledgeRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new knowledge repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new knowledge entry
func (r *Repository) Create(ctx context.Context, businessID string, req models.CreateKnowledgeRequest) (*models.KnowledgeEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "KnowledgeRepository.Create")
	defer span.End()

	entry := &models.KnowledgeEntry{
		ID:            uuid.New().String(),
		BusinessID:    businessID,
		Title:         req.Title,
		RoleScripts:   database.JSONB[map[string]string]{Data: req.RoleScripts},
		DefaultScript: req.DefaultScript,
		ImageURLs:     database.JSONB[[]string]{Data: req.ImageURLs},
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName).
		Cols("id", "business_id", "title", "role_scripts", "default_script", "image_urls", "created_at", "updated_at").
		Values(entry.ID, entry.BusinessID, entry.Title, entry.RoleScripts, entry.DefaultScript, entry.ImageURLs,
			sqlbuilder.Raw("NOW()"), sqlbuilder.Raw("NOW()")).
		Returning("created_at", "updated_at")

	query, args := ib.Build()
	err := r.db.QueryRowxContext(ctx, query, args...).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"business_id": businessID,
			"title":       req.Title,
		}).Error("failed to create knowledge entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create knowledge entry")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"knowledge_id": entry.ID,
		"business_id":  businessID,
		"title":        entry.Title,
	}).Info("created knowledge entry")

	return entry, nil
}

// GetByID retrieves a knowledge entry by ID (business-scoped)
func (r *Repository) GetByID(ctx context.Context, businessID string, id string) (*models.KnowledgeEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "KnowledgeRepository.GetByID")
	defer span.End()

	sb := knowledgeStruct.SelectFrom(tableName)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("business_id", businessID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var entry models.KnowledgeEntry
	err := r.db.GetContext(ctx, &entry, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "knowledge entry %s does not exist", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"knowledge_id": id,
		}).Error("failed to get knowledge entry by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get knowledge entry by ID")
	}

	return &entry, nil
}

// ListByBusiness returns every knowledge entry for a business in store-return
// order: (created_at, id) ascending. The matcher scans them in this order.
func (r *Repository) ListByBusiness(ctx context.Context, businessID string) ([]models.KnowledgeEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "KnowledgeRepository.ListByBusiness")
	defer span.End()

	sb := knowledgeStruct.SelectFrom(tableName)
	sb.Where(
		sb.Equal("business_id", businessID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("created_at ASC", "id ASC")

	query, args := sb.Build()
	var items []models.KnowledgeEntry
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"business_id": businessID,
		}).Error("failed to list knowledge entries by business")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list knowledge entries by business")
	}

	return items, nil
}

// List lists knowledge entries for a business with pagination
func (r *Repository) List(ctx context.Context, businessID string, page, pageSize int) ([]models.KnowledgeEntry, int, error) {
	ctx, span := tracing.StartSpan(ctx, "KnowledgeRepository.List")
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
		r.logger.WithContext(ctx).WithError(err).Error("failed to count knowledge entries")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count knowledge entries")
	}

	sb := knowledgeStruct.SelectFrom(tableName)
	sb.Where(
		sb.Equal("business_id", businessID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("created_at ASC", "id ASC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()
	var items []models.KnowledgeEntry
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list knowledge entries")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list knowledge entries")
	}

	return items, totalCount, nil
}

// Update applies a partial update to a knowledge entry
func (r *Repository) Update(ctx context.Context, businessID string, id string, req models.UpdateKnowledgeRequest) (*models.KnowledgeEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "KnowledgeRepository.Update")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)

	assignments := []string{ub.Assign("updated_at", sqlbuilder.Raw("NOW()"))}
	if req.Title != nil {
		assignments = append(assignments, ub.Assign("title", *req.Title))
	}
	if req.RoleScripts != nil {
		assignments = append(assignments, ub.Assign("role_scripts", database.JSONB[map[string]string]{Data: *req.RoleScripts}))
	}
	if req.DefaultScript != nil {
		assignments = append(assignments, ub.Assign("default_script", *req.DefaultScript))
	}
	if req.ImageURLs != nil {
		assignments = append(assignments, ub.Assign("image_urls", database.JSONB[[]string]{Data: *req.ImageURLs}))
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
			"knowledge_id": id,
		}).Error("failed to update knowledge entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update knowledge entry")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "knowledge entry %s does not exist", id)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"knowledge_id": id,
		"business_id":  businessID,
	}).Info("updated knowledge entry")

	return r.GetByID(ctx, businessID, id)
}

// Delete soft deletes a knowledge entry
func (r *Repository) Delete(ctx context.Context, businessID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "KnowledgeRepository.Delete")
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
			"knowledge_id": id,
		}).Error("failed to delete knowledge entry")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete knowledge entry")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "knowledge entry %s does not exist", id)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"knowledge_id": id,
		"business_id":  businessID,
	}).Info("deleted knowledge entry")

	return nil
}
