// Package domain contains subscription and trial persistence models.
package domain

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"

	plandomain "github.com/scribehq/scribe/internal/plan/domain"
)

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// BillingCycle is the renewal cadence of a paid subscription.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

// Subscription is an owner's agreement to a plan. Limits snapshot the plan
// features at purchase time so later plan edits do not change live grants.
type Subscription struct {
	ID                 snowflake.ID                              `gorm:"primaryKey" json:"id"`
	OwnerID            string                                    `gorm:"type:text;not null;index" json:"owner_id"`
	PlanID             snowflake.ID                              `gorm:"not null;index" json:"plan_id"`
	PlanType           plandomain.PlanType                       `gorm:"type:text;not null" json:"plan_type"`
	Status             SubscriptionStatus                        `gorm:"type:text;not null;index" json:"status"`
	BillingCycle       BillingCycle                              `gorm:"type:text;not null" json:"billing_cycle"`
	CurrentPeriodStart time.Time                                 `gorm:"not null" json:"current_period_start"`
	CurrentPeriodEnd   time.Time                                 `gorm:"not null" json:"current_period_end"`
	CancelAtPeriodEnd  bool                                      `gorm:"not null;default:false" json:"cancel_at_period_end"`
	AmountCents        int64                                     `gorm:"not null;default:0" json:"amount_cents"`
	Currency           string                                    `gorm:"type:text;not null;default:'USD'" json:"currency"`
	Limits             datatypes.JSONType[plandomain.FeatureSet] `gorm:"type:jsonb" json:"limits"`
	CreatedAt          time.Time                                 `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time                                 `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// IsActive reports whether the subscription grants access at the given time.
func (s Subscription) IsActive(at time.Time) bool {
	return s.Status == SubscriptionStatusActive &&
		!at.Before(s.CurrentPeriodStart) &&
		at.Before(s.CurrentPeriodEnd)
}

// RemainingDays returns whole days left in the current period, rounded up.
func (s Subscription) RemainingDays(at time.Time) int {
	remaining := s.CurrentPeriodEnd.Sub(at)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

// TrialStatus represents lifecycle states for a trial.
type TrialStatus string

const (
	TrialStatusActive    TrialStatus = "active"
	TrialStatusExpired   TrialStatus = "expired"
	TrialStatusConverted TrialStatus = "converted"
	TrialStatusCancelled TrialStatus = "cancelled"
)

// Trial is a one-per-owner evaluation period with its own limits. The
// unique owner index backs the one-trial-ever rule under concurrency.
type Trial struct {
	ID          snowflake.ID                              `gorm:"primaryKey" json:"id"`
	OwnerID     string                                    `gorm:"type:text;not null;uniqueIndex" json:"owner_id"`
	PlanID      snowflake.ID                              `gorm:"index" json:"plan_id"`
	StartTime   time.Time                                 `gorm:"not null" json:"start_time"`
	EndTime     time.Time                                 `gorm:"not null;index" json:"end_time"`
	Status      TrialStatus                               `gorm:"type:text;not null;index" json:"status"`
	Limits      datatypes.JSONType[plandomain.FeatureSet] `gorm:"type:jsonb" json:"limits"`
	ConvertedAt *time.Time                                `gorm:"" json:"converted_at,omitempty"`
	ConvertedTo plandomain.PlanType                       `gorm:"type:text" json:"converted_to,omitempty"`
	CreatedAt   time.Time                                 `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time                                 `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Trial) TableName() string { return "trials" }

// IsActive reports whether the trial grants access at the given time.
// Status rows are lazily expired by readers, so the time bound is
// authoritative even when the row still says active.
func (t Trial) IsActive(at time.Time) bool {
	return t.Status == TrialStatusActive && at.Before(t.EndTime)
}

// RemainingDays returns whole days left on the trial, rounded up.
func (t Trial) RemainingDays(at time.Time) int {
	remaining := t.EndTime.Sub(at)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}
