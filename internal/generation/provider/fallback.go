package provider

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// FallbackGenerator tries the primary and switches to the secondary when
// the primary reports exhausted upstream quota. Other failures pass
// through so callers can record them.
type FallbackGenerator struct {
	primary   Generator
	secondary Generator
	log       *zap.Logger
}

func NewFallbackGenerator(primary, secondary Generator, log *zap.Logger) *FallbackGenerator {
	return &FallbackGenerator{
		primary:   primary,
		secondary: secondary,
		log:       log.Named("provider.fallback"),
	}
}

func (f *FallbackGenerator) Model() string { return f.primary.Model() }

func (f *FallbackGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	result, err := f.primary.Generate(ctx, req)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, ErrQuotaExhausted) {
		return Result{}, err
	}

	f.log.Warn("primary provider quota exhausted, using fallback",
		zap.String("primary", f.primary.Model()),
		zap.String("fallback", f.secondary.Model()),
	)
	return f.secondary.Generate(ctx, req)
}

func (f *FallbackGenerator) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	chunks, err := f.primary.Stream(ctx, req)
	if err == nil {
		return chunks, nil
	}
	if !errors.Is(err, ErrQuotaExhausted) {
		return nil, err
	}

	f.log.Warn("primary provider quota exhausted, streaming from fallback",
		zap.String("primary", f.primary.Model()),
		zap.String("fallback", f.secondary.Model()),
	)
	return f.secondary.Stream(ctx, req)
}
