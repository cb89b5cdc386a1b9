package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	catalogdomain "github.com/scribehq/scribe/internal/catalog/domain"
	generationdomain "github.com/scribehq/scribe/internal/generation/domain"
	"github.com/scribehq/scribe/internal/generation/provider"
	"github.com/scribehq/scribe/internal/push"
	usagedomain "github.com/scribehq/scribe/internal/usage/domain"
)

// GenerateStream runs every pre-flight check before the first byte is
// produced, then relays provider chunks as stream events. Whatever text
// accumulated by the time the stream ends, including a client cancel, is
// metered; an entirely empty stream writes no ledger row.
func (s *Service) GenerateStream(ctx context.Context, ownerID string, req generationdomain.GenerateRequest) (<-chan generationdomain.StreamEvent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	release, err := s.guard.Acquire(ctx, ownerID, string(catalogdomain.ServiceTextWriter))
	if err != nil {
		return nil, err
	}

	assessment, err := s.preflight(ctx, ownerID, req)
	if err != nil {
		release()
		return nil, err
	}

	s.emit(ownerID, push.EventGenerationStarted, map[string]any{
		"service":      catalogdomain.ServiceTextWriter,
		"content_type": req.ContentType,
		"estimate":     assessment.EstimatedCost,
		"stream":       true,
	})

	events := make(chan generationdomain.StreamEvent)
	start := s.clock.Now()

	chunks, err := s.generator.Stream(ctx, provider.Request{
		Prompt:      composePrompt(req),
		ContentType: string(req.ContentType),
		Tone:        string(req.Tone),
		Length:      string(req.Length),
	})
	if err != nil {
		release()
		s.recordFailure(ctx, ownerID, req, start, 0, err)
		s.metrics.RecordGeneration(string(catalogdomain.ServiceTextWriter), "error")
		return nil, err
	}

	go func() {
		defer close(events)
		defer release()

		var accumulated strings.Builder
		for chunk := range chunks {
			if chunk.Err != nil {
				durationMs := s.clock.Now().Sub(start).Milliseconds()
				s.recordFailure(context.WithoutCancel(ctx), ownerID, req, start, durationMs, chunk.Err)
				s.metrics.RecordGeneration(string(catalogdomain.ServiceTextWriter), "error")
				sendEvent(ctx, events, generationdomain.StreamError{Error: chunk.Err.Error()})
				return
			}

			accumulated.WriteString(chunk.Text)
			if !sendEvent(ctx, events, generationdomain.StreamChunk{
				Chunk:   chunk.Text,
				Partial: accumulated.String(),
			}) {
				// Client went away. The provider was cancelled through ctx;
				// meter what was already produced.
				s.finishStream(context.WithoutCancel(ctx), ctx, ownerID, req, start, assessment.UsedToday, assessment.MaxAllowed, accumulated.String(), nil)
				return
			}
		}

		s.finishStream(context.WithoutCancel(ctx), ctx, ownerID, req, start, assessment.UsedToday, assessment.MaxAllowed, accumulated.String(), events)
	}()

	return events, nil
}

// finishStream meters accumulated text and, when events is non-nil, sends
// the terminal done event. Metering runs on the uncancellable ctx so a
// client disconnect cannot skip the ledger write; the done send uses the
// request's sendCtx so it never blocks on a consumer that is gone.
func (s *Service) finishStream(
	ctx context.Context,
	sendCtx context.Context,
	ownerID string,
	req generationdomain.GenerateRequest,
	start time.Time,
	usedBefore, maxAllowed int64,
	fullText string,
	events chan generationdomain.StreamEvent,
) {
	durationMs := s.clock.Now().Sub(start).Milliseconds()
	words := generationdomain.WordCount(fullText)

	if words > 0 {
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
			Model:          s.generator.Model(),
		}
		if err := s.usageSvc.Append(ctx, record); err != nil {
			s.log.Error("append stream usage record", zap.String("owner_id", ownerID), zap.Error(err))
		} else {
			s.metrics.RecordLedgerWrite(string(catalogdomain.ServiceTextWriter), true)
		}

		s.recordStats(ctx, catalogdomain.Attempt{
			ServiceType: catalogdomain.ServiceTextWriter,
			Success:     true,
			Usage:       words,
			DurationMs:  durationMs,
		})

		snapshot := usageSnapshot(usedBefore+words, maxAllowed)
		s.emitPostUsageEvents(ownerID, req.ContentType, words, snapshot)
		s.metrics.RecordGeneration(string(catalogdomain.ServiceTextWriter), "success")
		s.metrics.RecordWords(string(catalogdomain.ServiceTextWriter), words)
	}

	if events != nil {
		sendEvent(sendCtx, events, generationdomain.StreamDone{
			Done:           true,
			FullText:       fullText,
			WordsGenerated: words,
			ContentType:    req.ContentType,
			Success:        true,
		})
	}
}

// sendEvent reports false when the consumer is gone.
func sendEvent(ctx context.Context, events chan generationdomain.StreamEvent, event generationdomain.StreamEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
