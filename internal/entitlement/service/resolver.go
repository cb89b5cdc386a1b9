package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/scribehq/scribe/internal/cache"
	"github.com/scribehq/scribe/internal/clock"
	"github.com/scribehq/scribe/internal/config"
	entitlementdomain "github.com/scribehq/scribe/internal/entitlement/domain"
	plandomain "github.com/scribehq/scribe/internal/plan/domain"
	subscriptiondomain "github.com/scribehq/scribe/internal/subscription/domain"
)

// grantCacheTTL is short on purpose: a cached grant may lag a subscription
// change by at most this long.
const grantCacheTTL = 30 * time.Second

type ResolverParam struct {
	fx.In

	Log    *zap.Logger
	Clock  clock.Clock
	Policy *config.EntitlementPolicyHolder
	SubSvc subscriptiondomain.Service
}

type Resolver struct {
	log    *zap.Logger
	clock  clock.Clock
	policy *config.EntitlementPolicyHolder
	subSvc subscriptiondomain.Service
	grants cache.Cache[string, entitlementdomain.Grant]
}

func NewResolver(p ResolverParam) entitlementdomain.Resolver {
	return &Resolver{
		log:    p.Log.Named("entitlement.resolver"),
		clock:  p.Clock,
		policy: p.Policy,
		subSvc: p.SubSvc,
		grants: cache.NewTTLCache[string, entitlementdomain.Grant](),
	}
}

func (r *Resolver) Resolve(ctx context.Context, ownerID string) (*entitlementdomain.Grant, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, subscriptiondomain.ErrInvalidOwner
	}

	if grant, ok := r.grants.Get(ownerID); ok {
		return &grant, nil
	}

	policy := r.policy.Get()
	now := r.clock.Now()

	sub, err := r.subSvc.ActiveSubscription(ctx, ownerID, now)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		periodEnd := sub.CurrentPeriodEnd
		grant := entitlementdomain.Grant{
			OwnerID:   ownerID,
			Source:    entitlementdomain.GrantSourceSubscription,
			PlanType:  sub.PlanType,
			Limits:    normalizeLimits(sub.Limits.Data(), policy),
			PeriodEnd: &periodEnd,
		}
		r.grants.Set(ownerID, grant, grantCacheTTL)
		return &grant, nil
	}

	if policy.ConsiderTrials {
		trial, err := r.subSvc.ActiveTrial(ctx, ownerID, now)
		if err != nil {
			return nil, err
		}
		if trial != nil {
			endTime := trial.EndTime
			grant := entitlementdomain.Grant{
				OwnerID:   ownerID,
				Source:    entitlementdomain.GrantSourceTrial,
				PlanType:  plandomain.PlanTrial,
				Limits:    normalizeLimits(trial.Limits.Data(), policy),
				PeriodEnd: &endTime,
			}
			r.grants.Set(ownerID, grant, grantCacheTTL)
			return &grant, nil
		}
	}

	if !policy.ImplicitFreeTier {
		return nil, entitlementdomain.ErrNoActiveGrant
	}

	grant := entitlementdomain.Grant{
		OwnerID:  ownerID,
		Source:   entitlementdomain.GrantSourceFree,
		PlanType: plandomain.PlanFree,
		Limits:   freeTierLimits(policy),
	}
	r.grants.Set(ownerID, grant, grantCacheTTL)
	return &grant, nil
}

// normalizeLimits substitutes policy defaults for zero caps on enabled
// features so a misconfigured plan degrades to the free allowance instead
// of locking the owner out.
func normalizeLimits(limits plandomain.FeatureSet, policy config.EntitlementPolicy) plandomain.FeatureSet {
	if limits.TextWriter.Enabled {
		if limits.TextWriter.WordsPerDay <= 0 {
			limits.TextWriter.WordsPerDay = policy.DefaultWordsPerDay
		}
		if limits.TextWriter.RequestsPerDay <= 0 {
			limits.TextWriter.RequestsPerDay = policy.DefaultRequestsPerDay
		}
	}
	if limits.ImageGenerator.Enabled {
		if limits.ImageGenerator.ImagesPerDay <= 0 {
			limits.ImageGenerator.ImagesPerDay = policy.DefaultImagesPerDay
		}
		if limits.ImageGenerator.RequestsPerDay <= 0 {
			limits.ImageGenerator.RequestsPerDay = policy.DefaultRequestsPerDay
		}
	}
	return limits
}

func freeTierLimits(policy config.EntitlementPolicy) plandomain.FeatureSet {
	return plandomain.FeatureSet{
		TextWriter: plandomain.FeatureLimit{
			Enabled:        true,
			WordsPerDay:    policy.DefaultWordsPerDay,
			RequestsPerDay: policy.DefaultRequestsPerDay,
		},
		ImageGenerator: plandomain.FeatureLimit{
			Enabled:        true,
			ImagesPerDay:   policy.DefaultImagesPerDay,
			RequestsPerDay: policy.DefaultRequestsPerDay,
		},
	}
}
