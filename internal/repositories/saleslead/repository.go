package saleslead

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

const tableName = "sales_leads"

var leadStruct = database.NewStruct(new(models.SalesLead))

// LeadRepository defines the interface for sales lead operations
type LeadRepository interface {
	Create(ctx context.Context, lead *models.SalesLead) error
	GetByID(ctx context.Context, businessID string, id string) (*models.SalesLead, error)
	List(ctx context.Context, businessID string, page, pageSize int) ([]models.SalesLead, int, error)
	UpdateStatus(ctx context.Context, businessID string, id string, status string) (*models.SalesLead, error)
}

// Repository implements LeadRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new sales lead repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create writes a sales lead, filling the placeholder defaults for fields the
// booking heuristic cannot know. Joins the caller's transaction when the
// context carries one.
func (r *Repository) Create(ctx context.Context, lead *models.SalesLead) error {
	ctx, span := tracing.StartSpan(ctx, "LeadRepository.Create")
	defer span.End()

	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.CustomerName == "" {
		lead.CustomerName = models.LeadCustomerNameUnknown
	}
	if lead.ServiceBooked == "" {
		lead.ServiceBooked = models.LeadServiceBookedTBD
	}
	if lead.Status == "" {
		lead.Status = models.LeadStatusPending
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to open transaction for sales lead")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create sales lead")
	}
	defer tx.Rollback(ctx)

	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName).
		Cols("id", "business_id", "config_id", "phone", "customer_name", "service_booked", "status", "created_at", "updated_at").
		Values(lead.ID, lead.BusinessID, lead.ConfigID, lead.Phone, lead.CustomerName, lead.ServiceBooked, lead.Status,
			sqlbuilder.Raw("NOW()"), sqlbuilder.Raw("NOW()")).
		Returning("created_at", "updated_at")

	query, args := ib.Build()
	err = tx.QueryRowxContext(ctx, query, args...).Scan(&lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"business_id": lead.BusinessID,
			"phone":       lead.Phone,
		}).Error("failed to create sales lead")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create sales lead")
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to commit sales lead")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create sales lead")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"lead_id":     lead.ID,
		"business_id": lead.BusinessID,
		"phone":       lead.Phone,
	}).Info("created sales lead")

	return nil
}

// GetByID retrieves a sales lead by ID (business-scoped)
func (r *Repository) GetByID(ctx context.Context, businessID string, id string) (*models.SalesLead, error) {
	ctx, span := tracing.StartSpan(ctx, "LeadRepository.GetByID")
	defer span.End()

	sb := leadStruct.SelectFrom(tableName)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("business_id", businessID),
	)

	query, args := sb.Build()
	var lead models.SalesLead
	err := r.db.GetContext(ctx, &lead, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "lead %s does not exist", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"lead_id": id,
		}).Error("failed to get lead by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get lead by ID")
	}

	return &lead, nil
}

// List lists sales leads for a business with pagination, newest first
func (r *Repository) List(ctx context.Context, businessID string, page, pageSize int) ([]models.SalesLead, int, error) {
	ctx, span := tracing.StartSpan(ctx, "LeadRepository.List")
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
	countQuery, countArgs := countSb.Build()

	var totalCount int
	err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count leads")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count leads")
	}

	sb := leadStruct.SelectFrom(tableName)
	sb.Where(sb.Equal("business_id", businessID))
	sb.OrderBy("created_at DESC", "id DESC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()
	var items []models.SalesLead
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list leads")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list leads")
	}

	return items, totalCount, nil
}

// UpdateStatus updates the status of a sales lead
func (r *Repository) UpdateStatus(ctx context.Context, businessID string, id string, status string) (*models.SalesLead, error) {
	ctx, span := tracing.StartSpan(ctx, "LeadRepository.UpdateStatus")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(
		ub.Assign("status", status),
		ub.Assign("updated_at", sqlbuilder.Raw("NOW()")),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("business_id", businessID),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"lead_id": id,
			"status":  status,
		}).Error("failed to update lead status")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update lead status")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "lead %s does not exist", id)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"lead_id": id,
		"status":  status,
	}).Info("updated lead status")

	return r.GetByID(ctx, businessID, id)
}
