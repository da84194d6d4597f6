package models

import (
	"time"
)

// TenantConfig identifies one messaging-enabled business unit and carries the
// settings the response pipeline needs: routing number, knowledge role,
// generative prompt/model, and the delivery credential.
type TenantConfig struct {
	ID            string `json:"id" db:"id"`
	BusinessID    string `json:"business_id" db:"business_id"`
	ConfigID      string `json:"config_id" db:"config_id"`
	ServiceNumber string `json:"service_number" db:"service_number"` // stored normalized: digits only, no leading symbols
	Role          string `json:"role" db:"role"`                     // selects the knowledge script variant

	PromptTemplate     string `json:"prompt_template" db:"prompt_template"` // placeholders {history} and {user_message}
	ModelName          string `json:"model_name" db:"model_name"`
	DeliveryCredential string `json:"delivery_credential,omitempty" db:"delivery_credential"`

	Enabled   bool       `json:"enabled" db:"enabled"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func (TenantConfig) TableName() string {
	return "tenant_configs"
}

// CreateChannelRequest creates a tenant channel config. The business id comes
// from the request context, not the body.
type CreateChannelRequest struct {
	ConfigID           string `json:"config_id" validate:"required"`
	ServiceNumber      string `json:"service_number" validate:"required"`
	Role               string `json:"role"`
	PromptTemplate     string `json:"prompt_template"`
	ModelName          string `json:"model_name"`
	DeliveryCredential string `json:"delivery_credential"`
	Enabled            *bool  `json:"enabled"`
}

// UpdateChannelRequest updates a tenant channel config. Nil fields are left
// unchanged.
type UpdateChannelRequest struct {
	ServiceNumber      *string `json:"service_number,omitempty"`
	Role               *string `json:"role,omitempty"`
	PromptTemplate     *string `json:"prompt_template,omitempty"`
	ModelName          *string `json:"model_name,omitempty"`
	DeliveryCredential *string `json:"delivery_credential,omitempty"`
}

// ChannelListResponse is the response for listing tenant channel configs
type ChannelListResponse struct {
	Items      []TenantConfig `json:"items"`
	TotalCount int            `json:"total_count"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
}
