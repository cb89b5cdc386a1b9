// Package quota decides whether a metered attempt may proceed under the
// owner's daily allowance.
package quota

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	catalogdomain "github.com/scribehq/scribe/internal/catalog/domain"
	"github.com/scribehq/scribe/internal/clock"
	entitlementdomain "github.com/scribehq/scribe/internal/entitlement/domain"
	usagedomain "github.com/scribehq/scribe/internal/usage/domain"
)

var (
	ErrFeatureNotEntitled = errors.New("feature_not_entitled")
	ErrMissingGrant       = errors.New("missing_grant")
)

// Decision is the outcome of a quota check.
type Decision string

const (
	DecisionAllowed          Decision = "allowed"
	DecisionLimitReached     Decision = "limit_reached"
	DecisionEstimatedOverage Decision = "estimated_overage"
)

// Warning thresholds, in percent of the daily allowance.
const (
	WarnThresholdPercent     = 80.0
	CriticalThresholdPercent = 95.0
)

// Word estimates per requested length. Unknown lengths fall back to medium.
const (
	EstimateShortWords  = 150
	EstimateMediumWords = 400
	EstimateLongWords   = 500
)

// Assessment carries everything a caller needs to act on a decision.
type Assessment struct {
	Decision      Decision `json:"decision"`
	UsedToday     int64    `json:"used_today"`
	MaxAllowed    int64    `json:"max_allowed"`
	EstimatedCost int64    `json:"estimated_cost,omitempty"`
	Remaining     int64    `json:"remaining"`
	Percent       float64  `json:"percent"`
	Warn          bool     `json:"warn"`
	Critical      bool     `json:"critical"`
}

// Allowed reports whether the attempt may proceed.
func (a Assessment) Allowed() bool { return a.Decision == DecisionAllowed }

// EstimateWords maps a requested length to its word estimate.
func EstimateWords(length string) int64 {
	switch strings.ToLower(strings.TrimSpace(length)) {
	case "short":
		return EstimateShortWords
	case "long":
		return EstimateLongWords
	default:
		return EstimateMediumWords
	}
}

type EnforcerParam struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	UsageSvc usagedomain.Service
}

// Enforcer runs the hard and estimate checks against the usage ledger.
type Enforcer struct {
	log      *zap.Logger
	clock    clock.Clock
	usageSvc usagedomain.Service
}

func NewEnforcer(p EnforcerParam) *Enforcer {
	return &Enforcer{
		log:      p.Log.Named("quota.enforcer"),
		clock:    p.Clock,
		usageSvc: p.UsageSvc,
	}
}

// Check sums today's successful usage and applies, in order, the hard
// check (usedToday >= max) and the estimate check (usedToday + estimate >
// max). The boundary is inclusive: an estimate that lands exactly on the
// allowance is allowed. Pass estimate 0 to run the hard check only.
func (e *Enforcer) Check(
	ctx context.Context,
	grant *entitlementdomain.Grant,
	serviceType catalogdomain.ServiceType,
	metric usagedomain.Metric,
	estimate int64,
) (Assessment, error) {
	if grant == nil {
		return Assessment{}, ErrMissingGrant
	}

	limit, ok := grant.Limit(string(serviceType))
	if !ok || !limit.Enabled {
		return Assessment{}, ErrFeatureNotEntitled
	}

	var maxAllowed int64
	switch metric {
	case usagedomain.MetricWords:
		maxAllowed = limit.WordsPerDay
	case usagedomain.MetricImages:
		maxAllowed = limit.ImagesPerDay
	case usagedomain.MetricRequests:
		maxAllowed = limit.RequestsPerDay
	default:
		return Assessment{}, usagedomain.ErrInvalidMetric
	}
	if maxAllowed <= 0 {
		// Grants are normalized upstream, so this only happens for a
		// feature the resolver never saw. Treat as not entitled.
		return Assessment{}, ErrFeatureNotEntitled
	}

	now := e.clock.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	used, err := e.usageSvc.SumSince(ctx, grant.OwnerID, serviceType, metric, dayStart)
	if err != nil {
		return Assessment{}, err
	}

	assessment := Assessment{
		Decision:      DecisionAllowed,
		UsedToday:     used,
		MaxAllowed:    maxAllowed,
		EstimatedCost: estimate,
		Remaining:     maxAllowed - used,
		Percent:       float64(used) / float64(maxAllowed) * 100,
	}
	if assessment.Remaining < 0 {
		assessment.Remaining = 0
	}
	assessment.Warn = assessment.Percent >= WarnThresholdPercent
	assessment.Critical = assessment.Percent >= CriticalThresholdPercent

	if used >= maxAllowed {
		assessment.Decision = DecisionLimitReached
		return assessment, nil
	}
	if estimate > 0 && used+estimate > maxAllowed {
		assessment.Decision = DecisionEstimatedOverage
		return assessment, nil
	}
	return assessment, nil
}
