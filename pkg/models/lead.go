package models

import (
	"time"
)

// Defaults for leads created by the booking-intent heuristic; the admin API
// fills in real values later.
const (
	LeadCustomerNameUnknown = "Unknown"
	LeadServiceBookedTBD    = "TBD"
	LeadStatusPending       = "Pending"
)

// SalesLead is recorded when a generated reply shows booking intent.
type SalesLead struct {
	ID         string `json:"id" db:"id"`
	BusinessID string `json:"business_id" db:"business_id"`
	ConfigID   string `json:"config_id" db:"config_id"`
	Phone      string `json:"phone" db:"phone"`

	CustomerName  string `json:"customer_name" db:"customer_name"`
	ServiceBooked string `json:"service_booked" db:"service_booked"`
	Status        string `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (SalesLead) TableName() string {
	return "sales_leads"
}

// UpdateLeadStatusRequest updates the status of a sales lead
type UpdateLeadStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// LeadListResponse is the response for listing sales leads
type LeadListResponse struct {
	Items      []SalesLead `json:"items"`
	TotalCount int         `json:"total_count"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
}
