package models

import (
	"time"
)

// TemplateEntry is a pre-authored deterministic reply. The trigger token is
// matched as a case-insensitive substring of the inbound message body; a row
// with an empty trigger is skipped, never treated as a wildcard.
type TemplateEntry struct {
	ID         string `json:"id" db:"id"`
	BusinessID string `json:"business_id" db:"business_id"`
	ConfigID   string `json:"config_id" db:"config_id"`

	Trigger  string `json:"trigger" db:"trigger"`
	Category string `json:"category" db:"category"` // selects the response handler; unknown values fall through to the default handler
	Body     string `json:"body" db:"body"`
	ImageURL string `json:"image_url,omitempty" db:"image_url"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func (TemplateEntry) TableName() string {
	return "reply_templates"
}

// CreateTemplateRequest creates a reply template
type CreateTemplateRequest struct {
	ConfigID string `json:"config_id" validate:"required"`
	Trigger  string `json:"trigger" validate:"required"`
	Category string `json:"category"`
	Body     string `json:"body" validate:"required"`
	ImageURL string `json:"image_url"`
}

// UpdateTemplateRequest updates a reply template. Nil fields are left
// unchanged.
type UpdateTemplateRequest struct {
	Trigger  *string `json:"trigger,omitempty"`
	Category *string `json:"category,omitempty"`
	Body     *string `json:"body,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}

// TemplateListResponse is the response for listing reply templates
type TemplateListResponse struct {
	Items      []TemplateEntry `json:"items"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}
