package domain

import (
	"context"
	"errors"
)

var (
	ErrServiceNotFound    = errors.New("service_not_found")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrInvalidServiceType = errors.New("invalid_service_type")
)

// Attempt summarizes one metered request for statistics bookkeeping.
type Attempt struct {
	ServiceType ServiceType
	Success     bool
	Usage       int64
	DurationMs  int64
}

type Service interface {
	List(ctx context.Context) ([]Definition, error)
	GetByType(ctx context.Context, serviceType ServiceType) (Definition, error)
	// RecordAttempt folds one request into the service statistics.
	// Best-effort: callers should not fail a request on a stats error.
	RecordAttempt(ctx context.Context, attempt Attempt) error
}
