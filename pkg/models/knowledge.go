package models

import (
	"time"

	"github.com/Ramsey-B/sage/pkg/database"
)

// KnowledgeEntry is a scripted informational reply. The title is the trigger
// token; role_scripts holds per-role reply variants with default_script as
// the fallback when the tenant's role has no script of its own.
type KnowledgeEntry struct {
	ID         string `json:"id" db:"id"`
	BusinessID string `json:"business_id" db:"business_id"`

	Title         string                            `json:"title" db:"title"`
	RoleScripts   database.JSONB[map[string]string] `json:"role_scripts" db:"role_scripts"`
	DefaultScript string                            `json:"default_script" db:"default_script"`
	ImageURLs     database.JSONB[[]string]          `json:"image_urls" db:"image_urls"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func (KnowledgeEntry) TableName() string {
	return "knowledge_entries"
}

// ScriptFor resolves the reply text for a tenant role: the role-specific
// script when present and non-empty, otherwise the default script. An empty
// result means the entry is unusable for that role.
func (k *KnowledgeEntry) ScriptFor(role string) string {
	if script, ok := k.RoleScripts.Data[role]; ok && script != "" {
		return script
	}
	return k.DefaultScript
}

// CreateKnowledgeRequest creates a knowledge entry
type CreateKnowledgeRequest struct {
	Title         string            `json:"title" validate:"required"`
	RoleScripts   map[string]string `json:"role_scripts"`
	DefaultScript string            `json:"default_script"`
	ImageURLs     []string          `json:"image_urls"`
}

// UpdateKnowledgeRequest updates a knowledge entry. Nil fields are left
// unchanged.
type UpdateKnowledgeRequest struct {
	Title         *string            `json:"title,omitempty"`
	RoleScripts   *map[string]string `json:"role_scripts,omitempty"`
	DefaultScript *string            `json:"default_script,omitempty"`
	ImageURLs     *[]string          `json:"image_urls,omitempty"`
}

// KnowledgeListResponse is the response for listing knowledge entries
type KnowledgeListResponse struct {
	Items      []KnowledgeEntry `json:"items"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
}
