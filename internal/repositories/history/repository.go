package history

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

const tableName = "conversation_records"

var historyStruct = database.NewStruct(new(models.HistoryRecord))

// HistoryRepository defines the interface for conversation record operations
type HistoryRepository interface {
	Create(ctx context.Context, record *models.HistoryRecord) error
	ListRecent(ctx context.Context, businessID string, phone string, limit int) ([]models.HistoryRecord, error)
	List(ctx context.Context, businessID string, phone string, page, pageSize int) ([]models.HistoryRecord, int, error)
}

// Repository implements HistoryRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new history repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create appends a conversation record. Joins the caller's transaction when
// the context carries one, so a turn's history and lead land atomically.
func (r *Repository) Create(ctx context.Context, record *models.HistoryRecord) error {
	ctx, span := tracing.StartSpan(ctx, "HistoryRepository.Create")
	defer span.End()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Summary == "" {
		record.Summary = models.Summarize(record.Stage, record.Message, record.Response)
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to open transaction for history record")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to record conversation")
	}
	defer tx.Rollback(ctx)

	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName).
		Cols("id", "business_id", "config_id", "phone", "stage", "message", "response", "summary", "created_at").
		Values(record.ID, record.BusinessID, record.ConfigID, record.Phone, record.Stage, record.Message, record.Response, record.Summary,
			sqlbuilder.Raw("NOW()")).
		Returning("created_at")

	query, args := ib.Build()
	err = tx.QueryRowxContext(ctx, query, args...).Scan(&record.CreatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"business_id": record.BusinessID,
			"phone":       record.Phone,
			"stage":       record.Stage,
		}).Error("failed to create history record")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to record conversation")
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to commit history record")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to record conversation")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"record_id":   record.ID,
		"business_id": record.BusinessID,
		"stage":       record.Stage,
	}).Debug("created history record")

	return nil
}

// ListRecent returns the most recent records for a (business, phone) pair in
// prompt order: oldest first, newest last. The limit bounds the transcript
// fed to the generative prompt.
func (r *Repository) ListRecent(ctx context.Context, businessID string, phone string, limit int) ([]models.HistoryRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "HistoryRepository.ListRecent")
	defer span.End()

	if limit < 1 {
		limit = 5
	}

	sb := historyStruct.SelectFrom(tableName)
	sb.Where(
		sb.Equal("business_id", businessID),
		sb.Equal("phone", phone),
	)
	sb.OrderBy("created_at DESC", "id DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var items []models.HistoryRecord
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"business_id": businessID,
			"phone":       phone,
		}).Error("failed to list recent history")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list recent history")
	}

	// Query returns newest first; the prompt wants newest last.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	return items, nil
}

// List lists conversation records for a business with pagination, newest
// first. An empty phone lists across all customers.
func (r *Repository) List(ctx context.Context, businessID string, phone string, page, pageSize int) ([]models.HistoryRecord, int, error) {
	ctx, span := tracing.StartSpan(ctx, "HistoryRepository.List")
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
	countSb.Where(countSb.Equal("business_id", businessID))
	if phone != "" {
		countSb.Where(countSb.Equal("phone", phone))
	}
	countQuery, countArgs := countSb.Build()

	var totalCount int
	err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count history records")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count history records")
	}

	sb := historyStruct.SelectFrom(tableName)
	sb.Where(sb.Equal("business_id", businessID))
	if phone != "" {
		sb.Where(sb.Equal("phone", phone))
	}
	sb.OrderBy("created_at DESC", "id DESC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()
	var items []models.HistoryRecord
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list history records")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list history records")
	}

	return items, totalCount, nil
}
