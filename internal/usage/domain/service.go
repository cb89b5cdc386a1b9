package domain

import (
	"context"
	"errors"
	"time"

	catalogdomain "github.com/scribehq/scribe/internal/catalog/domain"
	"github.com/scribehq/scribe/pkg/db/pagination"
)

var (
	ErrInvalidOwner  = errors.New("invalid_owner")
	ErrInvalidMetric = errors.New("invalid_metric")
	ErrInvalidRecord = errors.New("invalid_usage_record")
)

// Metric selects which ledger column a sum runs over.
type Metric string

const (
	MetricWords    Metric = "words"
	MetricImages   Metric = "images"
	MetricRequests Metric = "requests"
)

type HistoryRequest struct {
	OwnerID     string
	ServiceType catalogdomain.ServiceType
	pagination.Pagination
}

type HistoryResponse struct {
	pagination.PageInfo
	Records []UsageRecord `json:"records"`
}

// Summary aggregates an owner's consumption for the current UTC day and
// calendar month. Success-only, like every quota-facing sum.
type Summary struct {
	TodayWords    int64 `json:"today_words"`
	TodayImages   int64 `json:"today_images"`
	TodayRequests int64 `json:"today_requests"`
	MonthWords    int64 `json:"month_words"`
	MonthImages   int64 `json:"month_images"`
	MonthRequests int64 `json:"month_requests"`
}

type Service interface {
	// Append writes one ledger row. Rows are immutable once written.
	Append(ctx context.Context, record *UsageRecord) error
	// SumSince totals a metric over successful records at or after since.
	SumSince(ctx context.Context, ownerID string, serviceType catalogdomain.ServiceType, metric Metric, since time.Time) (int64, error)
	// History pages through successful records, newest first.
	History(ctx context.Context, req HistoryRequest) (HistoryResponse, error)
	Summary(ctx context.Context, ownerID string, serviceType catalogdomain.ServiceType, at time.Time) (Summary, error)
}
