package domain

import (
	"context"
	"errors"
)

var (
	ErrPlanNotFound    = errors.New("plan_not_found")
	ErrInvalidPlanType = errors.New("invalid_plan_type")
)

type Service interface {
	List(ctx context.Context) ([]Plan, error)
	GetByType(ctx context.Context, planType PlanType) (Plan, error)
}
