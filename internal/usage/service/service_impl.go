package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	catalogdomain "github.com/scribehq/scribe/internal/catalog/domain"
	usagedomain "github.com/scribehq/scribe/internal/usage/domain"
	"github.com/scribehq/scribe/pkg/db/option"
	"github.com/scribehq/scribe/pkg/db/pagination"
	"github.com/scribehq/scribe/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	usagerepo repository.Repository[usagedomain.UsageRecord]
}

func NewService(p ServiceParam) usagedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("usage.service"),

		genID:     p.GenID,
		usagerepo: repository.ProvideStore[usagedomain.UsageRecord](p.DB),
	}
}

func (s *Service) Append(ctx context.Context, record *usagedomain.UsageRecord) error {
	if record == nil {
		return usagedomain.ErrInvalidRecord
	}
	if strings.TrimSpace(record.OwnerID) == "" {
		return usagedomain.ErrInvalidOwner
	}
	if record.ServiceType == "" {
		return usagedomain.ErrInvalidRecord
	}

	if record.ID == 0 {
		record.ID = s.genID.Generate()
	}
	if record.RequestedAt.IsZero() {
		record.RequestedAt = time.Now().UTC()
	}
	if record.RespondedAt.IsZero() {
		record.RespondedAt = time.Now().UTC()
	}

	return s.usagerepo.Create(ctx, record)
}

func (s *Service) SumSince(
	ctx context.Context,
	ownerID string,
	serviceType catalogdomain.ServiceType,
	metric usagedomain.Metric,
	since time.Time,
) (int64, error) {
	if strings.TrimSpace(ownerID) == "" {
		return 0, usagedomain.ErrInvalidOwner
	}

	base := s.db.WithContext(ctx).
		Model(&usagedomain.UsageRecord{}).
		Where("owner_id = ? AND service_type = ? AND success = ? AND requested_at >= ?",
			ownerID, serviceType, true, since.UTC())

	if metric == usagedomain.MetricRequests {
		var count int64
		if err := base.Count(&count).Error; err != nil {
			return 0, err
		}
		return count, nil
	}

	column, ok := metricColumn(metric)
	if !ok {
		return 0, usagedomain.ErrInvalidMetric
	}

	var total int64
	if err := base.Select("COALESCE(SUM(" + column + "), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Service) History(ctx context.Context, req usagedomain.HistoryRequest) (usagedomain.HistoryResponse, error) {
	if strings.TrimSpace(req.OwnerID) == "" {
		return usagedomain.HistoryResponse{}, usagedomain.ErrInvalidOwner
	}

	query := &usagedomain.UsageRecord{
		OwnerID:     req.OwnerID,
		ServiceType: req.ServiceType,
		Success:     true,
	}

	total, err := s.usagerepo.Count(ctx, query)
	if err != nil {
		return usagedomain.HistoryResponse{}, err
	}

	page := req.Pagination.Normalize()
	rows, err := s.usagerepo.Find(ctx, query,
		option.WithSortBy(option.QuerySortBy{
			Allow: map[string]bool{"requested_at": true},
			Field: "requested_at",
			Desc:  true,
		}),
		option.ApplyPagination(page),
	)
	if err != nil {
		return usagedomain.HistoryResponse{}, err
	}

	records := make([]usagedomain.UsageRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, *row)
	}

	return usagedomain.HistoryResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Records:  records,
	}, nil
}

func (s *Service) Summary(
	ctx context.Context,
	ownerID string,
	serviceType catalogdomain.ServiceType,
	at time.Time,
) (usagedomain.Summary, error) {
	if strings.TrimSpace(ownerID) == "" {
		return usagedomain.Summary{}, usagedomain.ErrInvalidOwner
	}

	at = at.UTC()
	dayStart := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)

	var summary usagedomain.Summary
	windows := []struct {
		since    time.Time
		words    *int64
		images   *int64
		requests *int64
	}{
		{dayStart, &summary.TodayWords, &summary.TodayImages, &summary.TodayRequests},
		{monthStart, &summary.MonthWords, &summary.MonthImages, &summary.MonthRequests},
	}

	for _, w := range windows {
		row := struct {
			Words    int64
			Images   int64
			Requests int64
		}{}
		err := s.db.WithContext(ctx).
			Model(&usagedomain.UsageRecord{}).
			Select("COALESCE(SUM(words_generated), 0) AS words, COALESCE(SUM(images_generated), 0) AS images, COUNT(*) AS requests").
			Where("owner_id = ? AND service_type = ? AND success = ? AND requested_at >= ?",
				ownerID, serviceType, true, w.since).
			Scan(&row).Error
		if err != nil {
			return usagedomain.Summary{}, err
		}
		*w.words = row.Words
		*w.images = row.Images
		*w.requests = row.Requests
	}

	return summary, nil
}

func metricColumn(metric usagedomain.Metric) (string, bool) {
	switch metric {
	case usagedomain.MetricWords:
		return "words_generated", true
	case usagedomain.MetricImages:
		return "images_generated", true
	default:
		return "", false
	}
}
