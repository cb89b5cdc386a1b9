package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/scribehq/scribe/internal/catalog/domain"
	entitlementdomain "github.com/scribehq/scribe/internal/entitlement/domain"
	generationdomain "github.com/scribehq/scribe/internal/generation/domain"
	usagedomain "github.com/scribehq/scribe/internal/usage/domain"
	"github.com/scribehq/scribe/pkg/db/pagination"
)

func (s *Server) ListHistory(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.usageSvc.History(c.Request.Context(), usagedomain.HistoryRequest{
		OwnerID:     ownerID(c),
		ServiceType: catalogdomain.ServiceTextWriter,
		Pagination:  page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UsageResponse combines the ledger summary with the owner's effective
// grant so clients can render consumption against the daily allowance.
type UsageResponse struct {
	Summary usagedomain.Summary             `json:"summary"`
	Grant   entitlementdomain.Grant         `json:"grant"`
	Words   generationdomain.UsageSnapshot  `json:"words"`
	Images  *generationdomain.UsageSnapshot `json:"images,omitempty"`
}

func (s *Server) GetUsage(c *gin.Context) {
	ctx := c.Request.Context()
	owner := ownerID(c)

	grant, err := s.resolver.Resolve(ctx, owner)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	summary, err := s.usageSvc.Summary(ctx, owner, catalogdomain.ServiceTextWriter, s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := UsageResponse{
		Summary: summary,
		Grant:   *grant,
		Words:   snapshotFor(summary.TodayWords, grant, string(catalogdomain.ServiceTextWriter), metricWords),
	}
	if limit, ok := grant.Limit(string(catalogdomain.ServiceImageGenerator)); ok && limit.Enabled {
		now := s.clock.Now().UTC()
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		usedImages, err := s.usageSvc.SumSince(ctx, owner, catalogdomain.ServiceImageGenerator, usagedomain.MetricImages, dayStart)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		images := snapshotFor(usedImages, grant, string(catalogdomain.ServiceImageGenerator), metricImages)
		resp.Images = &images
	}

	c.JSON(http.StatusOK, resp)
}

type snapshotMetric int

const (
	metricWords snapshotMetric = iota
	metricImages
)

func snapshotFor(used int64, grant *entitlementdomain.Grant, serviceType string, metric snapshotMetric) generationdomain.UsageSnapshot {
	var max int64
	if limit, ok := grant.Limit(serviceType); ok && limit.Enabled {
		switch metric {
		case metricWords:
			max = limit.WordsPerDay
		case metricImages:
			max = limit.ImagesPerDay
		}
	}
	remaining := max - used
	if remaining < 0 {
		remaining = 0
	}
	return generationdomain.UsageSnapshot{
		Used:      used,
		Limit:     max,
		Remaining: remaining,
	}
}
