// Package domain contains the plan catalog models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PlanType identifies a pricing tier.
type PlanType string

const (
	PlanFree       PlanType = "free"
	PlanTrial      PlanType = "trial"
	PlanBasic      PlanType = "basic"
	PlanPro        PlanType = "pro"
	PlanEnterprise PlanType = "enterprise"
)

// PlanStatus represents lifecycle states for a plan.
type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusArchived PlanStatus = "archived"
)

// FeatureLimit is the per-service daily allowance carried by a plan,
// subscription or trial. A zero cap on an enabled feature means the
// entitlement policy default applies.
type FeatureLimit struct {
	Enabled        bool  `json:"enabled"`
	WordsPerDay    int64 `json:"words_per_day,omitempty"`
	ImagesPerDay   int64 `json:"images_per_day,omitempty"`
	RequestsPerDay int64 `json:"requests_per_day,omitempty"`
}

// FeatureSet maps the metered services to their limits.
type FeatureSet struct {
	TextWriter     FeatureLimit `json:"ai_text_writer"`
	ImageGenerator FeatureLimit `json:"ai_image_generator"`
}

// Limit returns the feature limit for a service type key.
func (f FeatureSet) Limit(serviceType string) (FeatureLimit, bool) {
	switch serviceType {
	case "ai_text_writer":
		return f.TextWriter, true
	case "ai_image_generator":
		return f.ImageGenerator, true
	default:
		return FeatureLimit{}, false
	}
}

// TrialSettings describes the trial a plan offers.
type TrialSettings struct {
	Enabled      bool       `json:"enabled"`
	DurationDays int        `json:"duration_days"`
	Limits       FeatureSet `json:"limits"`
}

// Plan is a sellable tier in the catalog.
type Plan struct {
	ID                snowflake.ID                        `gorm:"primaryKey" json:"id"`
	Type              PlanType                            `gorm:"type:text;not null;uniqueIndex" json:"type"`
	Name              string                              `gorm:"type:text;not null" json:"name"`
	Description       string                              `gorm:"type:text" json:"description"`
	MonthlyPriceCents int64                               `gorm:"not null;default:0" json:"monthly_price_cents"`
	YearlyPriceCents  int64                               `gorm:"not null;default:0" json:"yearly_price_cents"`
	Currency          string                              `gorm:"type:text;not null;default:'USD'" json:"currency"`
	Features          datatypes.JSONType[FeatureSet]      `gorm:"type:jsonb" json:"features"`
	Trial             datatypes.JSONType[TrialSettings]   `gorm:"type:jsonb" json:"trial"`
	Status            PlanStatus                          `gorm:"type:text;not null;default:'active';index" json:"status"`
	DisplayOrder      int                                 `gorm:"not null;default:0" json:"display_order"`
	Popular           bool                                `gorm:"not null;default:false" json:"popular"`
	CreatedAt         time.Time                           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time                           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }
