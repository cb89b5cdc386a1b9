package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/scribehq/scribe/internal/clock"
	plandomain "github.com/scribehq/scribe/internal/plan/domain"
	"github.com/scribehq/scribe/internal/push"
	subscriptiondomain "github.com/scribehq/scribe/internal/subscription/domain"
	"github.com/scribehq/scribe/pkg/db"
	"github.com/scribehq/scribe/pkg/db/option"
	"github.com/scribehq/scribe/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	PlanSvc plandomain.Service
	Emitter push.Emitter `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	clock     clock.Clock
	planSvc   plandomain.Service
	emitter   push.Emitter
	subrepo   repository.Repository[subscriptiondomain.Subscription]
	trialrepo repository.Repository[subscriptiondomain.Trial]
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	emitter := p.Emitter
	if emitter == nil {
		emitter = push.NopEmitter{}
	}
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		genID:     p.GenID,
		clock:     p.Clock,
		planSvc:   p.PlanSvc,
		emitter:   emitter,
		subrepo:   repository.ProvideStore[subscriptiondomain.Subscription](p.DB),
		trialrepo: repository.ProvideStore[subscriptiondomain.Trial](p.DB),
	}
}

func (s *Service) StartTrial(ctx context.Context, req subscriptiondomain.StartTrialRequest) (subscriptiondomain.Trial, error) {
	ownerID := strings.TrimSpace(req.OwnerID)
	if ownerID == "" {
		return subscriptiondomain.Trial{}, subscriptiondomain.ErrInvalidOwner
	}

	// One trial per owner, ever. Expired and converted trials also count.
	existing, err := s.trialrepo.FindOne(ctx, &subscriptiondomain.Trial{OwnerID: ownerID})
	if err != nil {
		return subscriptiondomain.Trial{}, err
	}
	if existing != nil {
		return subscriptiondomain.Trial{}, subscriptiondomain.ErrTrialAlreadyUsed
	}

	trialPlan, err := s.planSvc.GetByType(ctx, plandomain.PlanTrial)
	if err != nil {
		if errors.Is(err, plandomain.ErrPlanNotFound) {
			return subscriptiondomain.Trial{}, subscriptiondomain.ErrTrialPlanUnavailable
		}
		return subscriptiondomain.Trial{}, err
	}

	settings := trialPlan.Trial.Data()
	if !settings.Enabled || settings.DurationDays <= 0 {
		return subscriptiondomain.Trial{}, subscriptiondomain.ErrTrialPlanUnavailable
	}

	now := s.clock.Now()
	trial := subscriptiondomain.Trial{
		ID:        s.genID.Generate(),
		OwnerID:   ownerID,
		PlanID:    trialPlan.ID,
		StartTime: now,
		EndTime:   now.AddDate(0, 0, settings.DurationDays),
		Status:    subscriptiondomain.TrialStatusActive,
		Limits:    datatypes.NewJSONType(settings.Limits),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.trialrepo.Create(ctx, &trial); err != nil {
		// Concurrent starts race past the existence check; the unique
		// owner index settles it.
		if db.IsDuplicateKeyErr(err) {
			return subscriptiondomain.Trial{}, subscriptiondomain.ErrTrialAlreadyUsed
		}
		return subscriptiondomain.Trial{}, err
	}

	s.emitter.EmitToUser(ownerID, push.EventTrialStarted, map[string]any{
		"trial_id":       trial.ID.String(),
		"start_time":     trial.StartTime,
		"end_time":       trial.EndTime,
		"remaining_days": trial.RemainingDays(now),
		"limits":         settings.Limits,
	})

	s.log.Info("trial started",
		zap.String("owner_id", ownerID),
		zap.Time("end_time", trial.EndTime),
	)
	return trial, nil
}

func (s *Service) Upgrade(ctx context.Context, req subscriptiondomain.UpgradeRequest) (subscriptiondomain.Subscription, error) {
	ownerID := strings.TrimSpace(req.OwnerID)
	if ownerID == "" {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidOwner
	}

	cycle := req.BillingCycle
	if cycle == "" {
		cycle = subscriptiondomain.BillingCycleMonthly
	}
	if cycle != subscriptiondomain.BillingCycleMonthly && cycle != subscriptiondomain.BillingCycleYearly {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidBillingCycle
	}

	plan, err := s.planSvc.GetByType(ctx, req.PlanType)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if plan.Type == plandomain.PlanFree || plan.Type == plandomain.PlanTrial {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrPlanNotUpgradable
	}

	now := s.clock.Now()
	existing, err := s.latestSubscription(ctx, ownerID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if existing != nil && existing.IsActive(now) {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrActiveSubscriptionExists
	}

	amount := plan.MonthlyPriceCents
	periodEnd := now.AddDate(0, 1, 0)
	if cycle == subscriptiondomain.BillingCycleYearly {
		amount = plan.YearlyPriceCents
		periodEnd = now.AddDate(1, 0, 0)
	}

	sub := subscriptiondomain.Subscription{
		ID:                 s.genID.Generate(),
		OwnerID:            ownerID,
		PlanID:             plan.ID,
		PlanType:           plan.Type,
		Status:             subscriptiondomain.SubscriptionStatusActive,
		BillingCycle:       cycle,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   periodEnd,
		AmountCents:        amount,
		Currency:           plan.Currency,
		Limits:             datatypes.NewJSONType(plan.Features.Data()),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if existing != nil {
			sub.ID = existing.ID
			sub.CreatedAt = existing.CreatedAt
			result := tx.Model(&subscriptiondomain.Subscription{}).
				Where("id = ?", existing.ID).
				Updates(map[string]any{
					"plan_id":              sub.PlanID,
					"plan_type":            sub.PlanType,
					"status":               sub.Status,
					"billing_cycle":        sub.BillingCycle,
					"current_period_start": sub.CurrentPeriodStart,
					"current_period_end":   sub.CurrentPeriodEnd,
					"cancel_at_period_end": false,
					"amount_cents":         sub.AmountCents,
					"currency":             sub.Currency,
					"limits":               sub.Limits,
					"updated_at":           now,
				})
			if result.Error != nil {
				return result.Error
			}
		} else {
			if err := s.subrepo.WithTrx(tx).Create(ctx, &sub); err != nil {
				return err
			}
		}

		// An active trial converts on upgrade.
		return tx.Model(&subscriptiondomain.Trial{}).
			Where("owner_id = ? AND status = ?", ownerID, subscriptiondomain.TrialStatusActive).
			Updates(map[string]any{
				"status":       subscriptiondomain.TrialStatusConverted,
				"converted_at": now,
				"converted_to": plan.Type,
				"updated_at":   now,
			}).Error
	})
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	s.emitter.EmitToUser(ownerID, push.EventSubscriptionUpdated, map[string]any{
		"subscription_id":    sub.ID.String(),
		"plan_type":          sub.PlanType,
		"status":             sub.Status,
		"billing_cycle":      sub.BillingCycle,
		"current_period_end": sub.CurrentPeriodEnd,
	})

	s.log.Info("subscription upgraded",
		zap.String("owner_id", ownerID),
		zap.String("plan_type", string(sub.PlanType)),
		zap.String("billing_cycle", string(cycle)),
	)
	return sub, nil
}

func (s *Service) Cancel(ctx context.Context, req subscriptiondomain.CancelRequest) (subscriptiondomain.Subscription, error) {
	ownerID := strings.TrimSpace(req.OwnerID)
	if ownerID == "" {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidOwner
	}

	sub, err := s.latestSubscription(ctx, ownerID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if sub == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotFound
	}

	now := s.clock.Now()
	if !sub.IsActive(now) {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotActive
	}

	result := s.db.WithContext(ctx).
		Model(&subscriptiondomain.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]any{
			"cancel_at_period_end": true,
			"updated_at":           now,
		})
	if result.Error != nil {
		return subscriptiondomain.Subscription{}, result.Error
	}

	sub.CancelAtPeriodEnd = true
	sub.UpdatedAt = now

	s.emitter.EmitToUser(ownerID, push.EventSubscriptionUpdated, map[string]any{
		"subscription_id":      sub.ID.String(),
		"status":               sub.Status,
		"cancel_at_period_end": true,
		"current_period_end":   sub.CurrentPeriodEnd,
	})

	s.log.Info("subscription cancel scheduled",
		zap.String("owner_id", ownerID),
		zap.Time("current_period_end", sub.CurrentPeriodEnd),
	)
	return *sub, nil
}

func (s *Service) Status(ctx context.Context, ownerID string) (subscriptiondomain.StatusResponse, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return subscriptiondomain.StatusResponse{}, subscriptiondomain.ErrInvalidOwner
	}

	now := s.clock.Now()

	sub, err := s.latestSubscription(ctx, ownerID)
	if err != nil {
		return subscriptiondomain.StatusResponse{}, err
	}

	trial, err := s.ActiveTrial(ctx, ownerID, now)
	if err != nil {
		return subscriptiondomain.StatusResponse{}, err
	}

	resp := subscriptiondomain.StatusResponse{
		Subscription: sub,
		Trial:        trial,
	}
	if sub != nil && sub.IsActive(now) {
		resp.HasActiveSubscription = true
		resp.RemainingDays = sub.RemainingDays(now)
	}
	if trial != nil {
		resp.HasActiveTrial = true
		if !resp.HasActiveSubscription {
			resp.RemainingDays = trial.RemainingDays(now)
			s.maybeWarnTrialExpiring(ownerID, trial, now)
		}
	}
	return resp, nil
}

const trialWarningDays = 3

// maybeWarnTrialExpiring nudges owners whose trial is about to lapse.
// Fired on status reads, so no scheduler is needed.
func (s *Service) maybeWarnTrialExpiring(ownerID string, trial *subscriptiondomain.Trial, now time.Time) {
	days := trial.RemainingDays(now)
	if days > trialWarningDays {
		return
	}
	urgency := "warning"
	if days <= 1 {
		urgency = "urgent"
	}
	s.emitter.EmitToUser(ownerID, push.EventTrialExpirationSoon, map[string]any{
		"trial_id":       trial.ID.String(),
		"end_time":       trial.EndTime,
		"remaining_days": days,
		"urgency":        urgency,
	})
}

func (s *Service) ActiveSubscription(ctx context.Context, ownerID string, at time.Time) (*subscriptiondomain.Subscription, error) {
	sub, err := s.latestSubscription(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if sub == nil || !sub.IsActive(at) {
		return nil, nil
	}
	return sub, nil
}

func (s *Service) ActiveTrial(ctx context.Context, ownerID string, at time.Time) (*subscriptiondomain.Trial, error) {
	trial, err := s.trialrepo.FindOne(ctx, &subscriptiondomain.Trial{
		OwnerID: ownerID,
		Status:  subscriptiondomain.TrialStatusActive,
	})
	if err != nil {
		return nil, err
	}
	if trial == nil {
		return nil, nil
	}

	if !at.Before(trial.EndTime) {
		// Lazy expiry. Best-effort: access is already denied by the time
		// bound even if the update fails.
		if err := s.db.WithContext(ctx).
			Model(&subscriptiondomain.Trial{}).
			Where("id = ? AND status = ?", trial.ID, subscriptiondomain.TrialStatusActive).
			Updates(map[string]any{
				"status":     subscriptiondomain.TrialStatusExpired,
				"updated_at": at,
			}).Error; err != nil {
			s.log.Warn("mark trial expired", zap.String("owner_id", ownerID), zap.Error(err))
		}
		return nil, nil
	}
	return trial, nil
}

func (s *Service) latestSubscription(ctx context.Context, ownerID string) (*subscriptiondomain.Subscription, error) {
	return s.subrepo.FindOne(ctx,
		&subscriptiondomain.Subscription{OwnerID: ownerID},
		option.WithSortBy(option.QuerySortBy{
			Allow: map[string]bool{"created_at": true},
			Field: "created_at",
			Desc:  true,
		}),
	)
}
