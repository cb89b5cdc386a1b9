// Package domain contains the metered service catalog models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ServiceType identifies a metered service.
type ServiceType string

const (
	ServiceTextWriter     ServiceType = "ai_text_writer"
	ServiceImageGenerator ServiceType = "ai_image_generator"
)

// ServiceStatus represents availability states for a catalog entry.
type ServiceStatus string

const (
	ServiceStatusActive      ServiceStatus = "active"
	ServiceStatusMaintenance ServiceStatus = "maintenance"
	ServiceStatusDisabled    ServiceStatus = "disabled"
)

// Definition is a registered metered service with running statistics.
type Definition struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	Type        ServiceType       `gorm:"type:text;not null;uniqueIndex" json:"type"`
	Name        string            `gorm:"type:text;not null" json:"name"`
	Description string            `gorm:"type:text" json:"description"`
	Category    string            `gorm:"type:text" json:"category"`
	Status      ServiceStatus     `gorm:"type:text;not null;default:'active'" json:"status"`
	Features    datatypes.JSONMap `gorm:"type:jsonb" json:"features,omitempty"`

	TotalRequests         int64   `gorm:"not null;default:0" json:"total_requests"`
	SuccessfulRequests    int64   `gorm:"not null;default:0" json:"successful_requests"`
	FailedRequests        int64   `gorm:"not null;default:0" json:"failed_requests"`
	TotalUsage            int64   `gorm:"not null;default:0" json:"total_usage"`
	AverageResponseTimeMs float64 `gorm:"not null;default:0" json:"average_response_time_ms"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Definition) TableName() string { return "service_definitions" }
