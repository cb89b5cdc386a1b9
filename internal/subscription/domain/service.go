package domain

import (
	"context"
	"errors"
	"time"

	plandomain "github.com/scribehq/scribe/internal/plan/domain"
)

var (
	ErrInvalidOwner             = errors.New("invalid_owner")
	ErrInvalidBillingCycle      = errors.New("invalid_billing_cycle")
	ErrTrialAlreadyUsed         = errors.New("trial_already_used")
	ErrTrialPlanUnavailable     = errors.New("trial_plan_unavailable")
	ErrPlanNotUpgradable        = errors.New("plan_not_upgradable")
	ErrActiveSubscriptionExists = errors.New("active_subscription_exists")
	ErrSubscriptionNotFound     = errors.New("subscription_not_found")
	ErrSubscriptionNotActive    = errors.New("subscription_not_active")
)

type StartTrialRequest struct {
	OwnerID string `json:"-"`
}

type UpgradeRequest struct {
	OwnerID      string              `json:"-"`
	PlanType     plandomain.PlanType `json:"plan_type"`
	BillingCycle BillingCycle        `json:"billing_cycle"`
}

type CancelRequest struct {
	OwnerID string `json:"-"`
}

// StatusResponse is the owner-facing subscription state.
type StatusResponse struct {
	Subscription          *Subscription `json:"subscription,omitempty"`
	Trial                 *Trial        `json:"trial,omitempty"`
	HasActiveSubscription bool          `json:"has_active_subscription"`
	HasActiveTrial        bool          `json:"has_active_trial"`
	RemainingDays         int           `json:"remaining_days"`
}

type Service interface {
	StartTrial(ctx context.Context, req StartTrialRequest) (Trial, error)
	Upgrade(ctx context.Context, req UpgradeRequest) (Subscription, error)
	Cancel(ctx context.Context, req CancelRequest) (Subscription, error)
	Status(ctx context.Context, ownerID string) (StatusResponse, error)

	// ActiveSubscription returns the owner's subscription when it is active
	// at the given time, nil otherwise.
	ActiveSubscription(ctx context.Context, ownerID string, at time.Time) (*Subscription, error)
	// ActiveTrial returns the owner's trial when it is active at the given
	// time. Trials past their end time are lazily marked expired.
	ActiveTrial(ctx context.Context, ownerID string, at time.Time) (*Trial, error)
}
