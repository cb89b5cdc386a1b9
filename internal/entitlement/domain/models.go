// Package domain contains the resolved entitlement grant model.
package domain

import (
	"context"
	"errors"
	"time"

	plandomain "github.com/scribehq/scribe/internal/plan/domain"
)

// ErrNoActiveGrant is returned only when the policy disables the implicit
// free tier and the owner holds neither an active subscription nor trial.
var ErrNoActiveGrant = errors.New("no_active_grant")

// GrantSource identifies where a grant came from.
type GrantSource string

const (
	GrantSourceSubscription GrantSource = "subscription"
	GrantSourceTrial        GrantSource = "trial"
	GrantSourceFree         GrantSource = "free"
)

// Grant is the owner's effective entitlement at resolution time. Caps are
// already normalized: an enabled feature never carries a zero cap.
type Grant struct {
	OwnerID   string                `json:"owner_id"`
	Source    GrantSource           `json:"source"`
	PlanType  plandomain.PlanType   `json:"plan_type"`
	Limits    plandomain.FeatureSet `json:"limits"`
	PeriodEnd *time.Time            `json:"period_end,omitempty"`
}

// Limit returns the grant's feature limit for a service type key.
func (g Grant) Limit(serviceType string) (plandomain.FeatureLimit, bool) {
	return g.Limits.Limit(serviceType)
}

// Resolver determines the effective grant for an owner. Read-only: it
// never mutates subscription or trial rows beyond lazy trial expiry.
type Resolver interface {
	Resolve(ctx context.Context, ownerID string) (*Grant, error)
}
