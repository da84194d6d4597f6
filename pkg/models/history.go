package models

import (
	"fmt"
	"time"
)

// Pipeline stages as recorded on conversation history rows.
const (
	StageTemplate  = "template"
	StageKnowledge = "knowledge"
	StageFallback  = "fallback"
	StageIgnored   = "ignored"
)

// HistoryRecord is one resolved conversation turn. Append-only; created_at is
// assigned at write time.
type HistoryRecord struct {
	ID         string `json:"id" db:"id"`
	BusinessID string `json:"business_id" db:"business_id"`
	ConfigID   string `json:"config_id" db:"config_id"`
	Phone      string `json:"phone" db:"phone"`

	Stage    string `json:"stage" db:"stage"`
	Message  string `json:"message" db:"message"`
	Response string `json:"response" db:"response"`
	Summary  string `json:"summary" db:"summary"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (HistoryRecord) TableName() string {
	return "conversation_records"
}

// Summarize renders the canonical history line for a resolved turn.
func Summarize(stage, message, response string) string {
	return fmt.Sprintf("Category=%s, Msg=%s, Response=%s", stage, message, response)
}

// HistoryListResponse is the response for listing conversation history
type HistoryListResponse struct {
	Items      []HistoryRecord `json:"items"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}
