package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/scribehq/scribe/internal/cache"
	plandomain "github.com/scribehq/scribe/internal/plan/domain"
	"github.com/scribehq/scribe/pkg/db/option"
	"github.com/scribehq/scribe/pkg/repository"
)

const planCacheTTL = 5 * time.Minute

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	planrepo repository.Repository[plandomain.Plan]
	byType   cache.Cache[plandomain.PlanType, plandomain.Plan]
}

func NewService(p ServiceParam) plandomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("plan.service"),

		planrepo: repository.ProvideStore[plandomain.Plan](p.DB),
		byType:   cache.NewTTLCache[plandomain.PlanType, plandomain.Plan](),
	}
}

func (s *Service) List(ctx context.Context) ([]plandomain.Plan, error) {
	rows, err := s.planrepo.Find(ctx,
		&plandomain.Plan{Status: plandomain.PlanStatusActive},
		option.WithSortBy(option.QuerySortBy{
			Allow: map[string]bool{"display_order": true},
			Field: "display_order",
		}),
	)
	if err != nil {
		return nil, err
	}

	plans := make([]plandomain.Plan, 0, len(rows))
	for _, row := range rows {
		plans = append(plans, *row)
	}
	return plans, nil
}

func (s *Service) GetByType(ctx context.Context, planType plandomain.PlanType) (plandomain.Plan, error) {
	planType = plandomain.PlanType(strings.TrimSpace(string(planType)))
	if planType == "" {
		return plandomain.Plan{}, plandomain.ErrInvalidPlanType
	}

	if plan, ok := s.byType.Get(planType); ok {
		return plan, nil
	}

	existing, err := s.planrepo.FindOne(ctx, &plandomain.Plan{Type: planType})
	if err != nil {
		return plandomain.Plan{}, err
	}
	if existing == nil {
		return plandomain.Plan{}, plandomain.ErrPlanNotFound
	}

	s.byType.Set(planType, *existing, planCacheTTL)
	return *existing, nil
}
