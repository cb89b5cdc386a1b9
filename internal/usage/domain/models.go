// Package domain contains the append-only usage ledger models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"

	catalogdomain "github.com/scribehq/scribe/internal/catalog/domain"
)

// UsageRecord is one metered attempt. Rows are never updated: failures are
// written alongside successes but only successes count toward quota.
type UsageRecord struct {
	ID          snowflake.ID            `gorm:"primaryKey" json:"id"`
	OwnerID     string                  `gorm:"type:text;not null;index:idx_usage_owner_service_at,priority:1" json:"owner_id"`
	ServiceType catalogdomain.ServiceType `gorm:"type:text;not null;index:idx_usage_owner_service_at,priority:2" json:"service_type"`

	RequestType string            `gorm:"type:text;not null" json:"request_type"`
	Prompt      string            `gorm:"type:text" json:"prompt"`
	Parameters  datatypes.JSONMap `gorm:"type:jsonb" json:"parameters,omitempty"`
	RequestedAt time.Time         `gorm:"not null;index:idx_usage_owner_service_at,priority:3" json:"requested_at"`

	Success      bool      `gorm:"not null;index" json:"success"`
	ErrorCode    string    `gorm:"type:text" json:"error_code,omitempty"`
	ErrorMessage string    `gorm:"type:text" json:"error_message,omitempty"`
	RespondedAt  time.Time `gorm:"" json:"responded_at"`

	WordsGenerated  int64  `gorm:"not null;default:0" json:"words_generated"`
	ImagesGenerated int64  `gorm:"not null;default:0" json:"images_generated"`
	DurationMs      int64  `gorm:"not null;default:0" json:"duration_ms"`
	Model           string `gorm:"type:text" json:"model,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (UsageRecord) TableName() string { return "usage_records" }
