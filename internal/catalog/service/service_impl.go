package service

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/scribehq/scribe/internal/cache"
	catalogdomain "github.com/scribehq/scribe/internal/catalog/domain"
	"github.com/scribehq/scribe/pkg/repository"
)

const definitionCacheTTL = time.Minute

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	defrepo repository.Repository[catalogdomain.Definition]
	byType  cache.Cache[catalogdomain.ServiceType, catalogdomain.Definition]
}

func NewService(p ServiceParam) catalogdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("catalog.service"),

		defrepo: repository.ProvideStore[catalogdomain.Definition](p.DB),
		byType:  cache.NewTTLCache[catalogdomain.ServiceType, catalogdomain.Definition](),
	}
}

func (s *Service) List(ctx context.Context) ([]catalogdomain.Definition, error) {
	rows, err := s.defrepo.Find(ctx, &catalogdomain.Definition{})
	if err != nil {
		return nil, err
	}

	defs := make([]catalogdomain.Definition, 0, len(rows))
	for _, row := range rows {
		defs = append(defs, *row)
	}
	return defs, nil
}

func (s *Service) GetByType(ctx context.Context, serviceType catalogdomain.ServiceType) (catalogdomain.Definition, error) {
	if serviceType == "" {
		return catalogdomain.Definition{}, catalogdomain.ErrInvalidServiceType
	}

	if def, ok := s.byType.Get(serviceType); ok {
		return def, nil
	}

	existing, err := s.defrepo.FindOne(ctx, &catalogdomain.Definition{Type: serviceType})
	if err != nil {
		return catalogdomain.Definition{}, err
	}
	if existing == nil {
		return catalogdomain.Definition{}, catalogdomain.ErrServiceNotFound
	}

	s.byType.Set(serviceType, *existing, definitionCacheTTL)
	return *existing, nil
}

func (s *Service) RecordAttempt(ctx context.Context, attempt catalogdomain.Attempt) error {
	if attempt.ServiceType == "" {
		return catalogdomain.ErrInvalidServiceType
	}

	updates := map[string]any{
		"total_requests": gorm.Expr("total_requests + 1"),
		"average_response_time_ms": gorm.Expr(
			"(average_response_time_ms * total_requests + ?) / (total_requests + 1)",
			attempt.DurationMs,
		),
		"updated_at": time.Now().UTC(),
	}
	if attempt.Success {
		updates["successful_requests"] = gorm.Expr("successful_requests + 1")
		if attempt.Usage > 0 {
			updates["total_usage"] = gorm.Expr("total_usage + ?", attempt.Usage)
		}
	} else {
		updates["failed_requests"] = gorm.Expr("failed_requests + 1")
	}

	result := s.db.WithContext(ctx).
		Model(&catalogdomain.Definition{}).
		Where("type = ?", attempt.ServiceType).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalogdomain.ErrServiceNotFound
	}

	s.byType.Delete(attempt.ServiceType)
	return nil
}
