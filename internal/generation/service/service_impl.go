package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	catalogdomain "github.com/scribehq/scribe/internal/catalog/domain"
	"github.com/scribehq/scribe/internal/clock"
	entitlementdomain "github.com/scribehq/scribe/internal/entitlement/domain"
	generationdomain "github.com/scribehq/scribe/internal/generation/domain"
	"github.com/scribehq/scribe/internal/generation/provider"
	obsmetrics "github.com/scribehq/scribe/internal/observability/metrics"
	"github.com/scribehq/scribe/internal/push"
	"github.com/scribehq/scribe/internal/quota"
	"github.com/scribehq/scribe/internal/ratelimit"
	usagedomain "github.com/scribehq/scribe/internal/usage/domain"
)

const requestTypeText = "text_generation"

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Resolver   entitlementdomain.Resolver
	Enforcer   *quota.Enforcer
	UsageSvc   usagedomain.Service
	CatalogSvc catalogdomain.Service
	Generator  provider.Generator
	Guard      *ratelimit.GenerationGuard
	Emitter    push.Emitter        `optional:"true"`
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log *zap.Logger

	clock      clock.Clock
	resolver   entitlementdomain.Resolver
	enforcer   *quota.Enforcer
	usageSvc   usagedomain.Service
	catalogSvc catalogdomain.Service
	generator  provider.Generator
	guard      *ratelimit.GenerationGuard
	emitter    push.Emitter
	metrics    *obsmetrics.Metrics
}

func NewService(p ServiceParam) generationdomain.Service {
	emitter := p.Emitter
	if emitter == nil {
		emitter = push.NopEmitter{}
	}
	return &Service{
		log: p.Log.Named("generation.service"),

		clock:      p.Clock,
		resolver:   p.Resolver,
		enforcer:   p.Enforcer,
		usageSvc:   p.UsageSvc,
		catalogSvc: p.CatalogSvc,
		generator:  p.Generator,
		guard:      p.Guard,
		emitter:    emitter,
		metrics:    p.Metrics,
	}
}

func (s *Service) Options(context.Context) generationdomain.Options {
	return optionCatalog()
}

func (s *Service) Generate(ctx context.Context, ownerID string, req generationdomain.GenerateRequest) (*generationdomain.Output, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	release, err := s.guard.Acquire(ctx, ownerID, string(catalogdomain.ServiceTextWriter))
	if err != nil {
		return nil, err
	}
	defer release()

	assessment, err := s.preflight(ctx, ownerID, req)
	if err != nil {
		return nil, err
	}

	s.emit(ownerID, push.EventGenerationStarted, map[string]any{
		"service":      catalogdomain.ServiceTextWriter,
		"content_type": req.ContentType,
		"estimate":     assessment.EstimatedCost,
	})

	start := s.clock.Now()
	result, genErr := s.generator.Generate(ctx, provider.Request{
		Prompt:      composePrompt(req),
		ContentType: string(req.ContentType),
		Tone:        string(req.Tone),
		Length:      string(req.Length),
	})
	durationMs := s.clock.Now().Sub(start).Milliseconds()

	if genErr != nil {
		s.recordFailure(ctx, ownerID, req, start, durationMs, genErr)
		s.metrics.RecordGeneration(string(catalogdomain.ServiceTextWriter), "error")
		return nil, fmt.Errorf("%w: %v", generationdomain.ErrGenerationFailed, genErr)
	}

	words := generationdomain.WordCount(result.Content)
	record := &usagedomain.UsageRecord{
		OwnerID:        ownerID,
		ServiceType:    catalogdomain.ServiceTextWriter,
		RequestType:    requestTypeText,
		Prompt:         req.Prompt,
		Parameters:     requestParameters(req),
		RequestedAt:    start,
		Success:        true,
		RespondedAt:    s.clock.Now(),
		WordsGenerated: words,
		DurationMs:     durationMs,
		Model:          result.Model,
	}
	if err := s.usageSvc.Append(ctx, record); err != nil {
		// The content was generated but cannot be metered; refuse rather
		// than hand out unmetered usage.
		s.log.Error("append usage record", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}

	s.recordStats(ctx, catalogdomain.Attempt{
		ServiceType: catalogdomain.ServiceTextWriter,
		Success:     true,
		Usage:       words,
		DurationMs:  durationMs,
	})

	used := assessment.UsedToday + words
	snapshot := usageSnapshot(used, assessment.MaxAllowed)
	warning := s.emitPostUsageEvents(ownerID, req.ContentType, words, snapshot)

	s.metrics.RecordGeneration(string(catalogdomain.ServiceTextWriter), "success")
	s.metrics.RecordWords(string(catalogdomain.ServiceTextWriter), words)
	s.metrics.RecordLedgerWrite(string(catalogdomain.ServiceTextWriter), true)

	return &generationdomain.Output{
		Content:        result.Content,
		WordsGenerated: words,
		ContentType:    req.ContentType,
		Model:          result.Model,
		DurationMs:     durationMs,
		Usage:          snapshot,
		Warning:        warning,
	}, nil
}

// preflight resolves the grant and runs both quota checks. Denials come
// back as *DenialError so the transport can render the snapshot.
func (s *Service) preflight(ctx context.Context, ownerID string, req generationdomain.GenerateRequest) (quota.Assessment, error) {
	grant, err := s.resolver.Resolve(ctx, ownerID)
	if err != nil {
		return quota.Assessment{}, err
	}

	estimate := quota.EstimateWords(string(req.Length))
	assessment, err := s.enforcer.Check(ctx, grant, catalogdomain.ServiceTextWriter, usagedomain.MetricWords, estimate)
	if err != nil {
		return quota.Assessment{}, err
	}

	switch assessment.Decision {
	case quota.DecisionLimitReached:
		snapshot := usageSnapshot(assessment.UsedToday, assessment.MaxAllowed)
		s.emit(ownerID, push.EventUsageLimitExceeded, map[string]any{
			"service": catalogdomain.ServiceTextWriter,
			"usage":   snapshot,
		})
		s.metrics.RecordDenial(string(catalogdomain.ServiceTextWriter), string(quota.DecisionLimitReached))
		return quota.Assessment{}, &generationdomain.DenialError{
			Reason:  generationdomain.ErrDailyLimitReached,
			Message: fmt.Sprintf("Daily word limit reached (%d words). Upgrade your plan for more words.", assessment.MaxAllowed),
			Usage:   snapshot,
		}
	case quota.DecisionEstimatedOverage:
		snapshot := usageSnapshot(assessment.UsedToday, assessment.MaxAllowed)
		s.emit(ownerID, push.EventUsageLimitWarning, map[string]any{
			"service":  catalogdomain.ServiceTextWriter,
			"usage":    snapshot,
			"estimate": assessment.EstimatedCost,
		})
		s.metrics.RecordDenial(string(catalogdomain.ServiceTextWriter), string(quota.DecisionEstimatedOverage))
		return quota.Assessment{}, &generationdomain.DenialError{
			Reason: generationdomain.ErrEstimatedOverage,
			Message: fmt.Sprintf("This request would exceed your daily limit. You have %d words remaining today.",
				snapshot.Remaining),
			Usage:    snapshot,
			Estimate: assessment.EstimatedCost,
		}
	}

	if assessment.Warn {
		s.emit(ownerID, push.EventUsageWarning, map[string]any{
			"service": catalogdomain.ServiceTextWriter,
			"usage":   usageSnapshot(assessment.UsedToday, assessment.MaxAllowed),
			"message": warningMessage(assessment.Percent, assessment.Critical),
		})
	}
	return assessment, nil
}

func (s *Service) recordFailure(
	ctx context.Context,
	ownerID string,
	req generationdomain.GenerateRequest,
	requestedAt time.Time,
	durationMs int64,
	genErr error,
) {
	record := &usagedomain.UsageRecord{
		OwnerID:      ownerID,
		ServiceType:  catalogdomain.ServiceTextWriter,
		RequestType:  requestTypeText,
		Prompt:       req.Prompt,
		Parameters:   requestParameters(req),
		RequestedAt:  requestedAt,
		Success:      false,
		ErrorCode:    errorCode(genErr),
		ErrorMessage: genErr.Error(),
		RespondedAt:  s.clock.Now(),
		DurationMs:   durationMs,
	}
	// Best-effort: a failed write must not mask the generator error.
	if err := s.usageSvc.Append(ctx, record); err != nil {
		s.log.Warn("append failure record", zap.String("owner_id", ownerID), zap.Error(err))
	} else {
		s.metrics.RecordLedgerWrite(string(catalogdomain.ServiceTextWriter), false)
	}

	s.recordStats(ctx, catalogdomain.Attempt{
		ServiceType: catalogdomain.ServiceTextWriter,
		Success:     false,
		DurationMs:  durationMs,
	})
}

func (s *Service) emit(ownerID, event string, data map[string]any) {
	delivered := s.emitter.EmitToUser(ownerID, event, data)
	s.metrics.RecordPushDelivery(event, delivered)
}

func (s *Service) recordStats(ctx context.Context, attempt catalogdomain.Attempt) {
	if err := s.catalogSvc.RecordAttempt(ctx, attempt); err != nil {
		s.log.Warn("record service stats", zap.String("service", string(attempt.ServiceType)), zap.Error(err))
	}
}

// emitPostUsageEvents sends the completed event and, when the new total
// crosses a threshold, the usage warning. Returns the warning text for the
// response body.
func (s *Service) emitPostUsageEvents(
	ownerID string,
	contentType generationdomain.ContentType,
	words int64,
	snapshot generationdomain.UsageSnapshot,
) string {
	s.emit(ownerID, push.EventGenerationCompleted, map[string]any{
		"service":         catalogdomain.ServiceTextWriter,
		"content_type":    contentType,
		"words_generated": words,
		"usage":           snapshot,
	})

	if snapshot.Limit <= 0 {
		return ""
	}
	percent := float64(snapshot.Used) / float64(snapshot.Limit) * 100
	if percent < quota.WarnThresholdPercent {
		return ""
	}

	critical := percent >= quota.CriticalThresholdPercent
	message := warningMessage(percent, critical)
	event := push.EventUsageWarning
	if snapshot.Remaining <= 0 {
		event = push.EventUsageLimitExceeded
	}
	s.emit(ownerID, event, map[string]any{
		"service": catalogdomain.ServiceTextWriter,
		"usage":   snapshot,
		"message": message,
	})
	return message
}

func warningMessage(percent float64, critical bool) string {
	if critical {
		return fmt.Sprintf("Critical: you have used %.0f%% of your daily word limit.", percent)
	}
	return fmt.Sprintf("Warning: you have used %.0f%% of your daily word limit.", percent)
}

func usageSnapshot(used, limit int64) generationdomain.UsageSnapshot {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return generationdomain.UsageSnapshot{Used: used, Limit: limit, Remaining: remaining}
}

func requestParameters(req generationdomain.GenerateRequest) datatypes.JSONMap {
	return datatypes.JSONMap{
		"content_type": string(req.ContentType),
		"tone":         string(req.Tone),
		"length":       string(req.Length),
		"language":     req.Language,
	}
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case strings.Contains(err.Error(), "quota"):
		return "PROVIDER_QUOTA"
	case strings.Contains(err.Error(), "deadline"):
		return "TIMEOUT"
	default:
		return "API_ERROR"
	}
}
