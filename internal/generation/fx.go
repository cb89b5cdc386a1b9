package generation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/scribehq/scribe/internal/config"
	"github.com/scribehq/scribe/internal/generation/provider"
	"github.com/scribehq/scribe/internal/generation/service"
)

var Module = fx.Module("generation.service",
	fx.Provide(
		NewGenerator,
		service.NewService,
	),
)

// NewGenerator builds the configured provider chain. Gemini is wrapped
// with the mock fallback so exhausted upstream quota degrades instead of
// failing the request.
func NewGenerator(cfg config.Config, log *zap.Logger) (provider.Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Generator.Provider)) {
	case "", "mock":
		return provider.NewMockGenerator(), nil
	case "gemini":
		gemini, err := provider.NewGeminiGenerator(context.Background(), cfg.Generator, log)
		if err != nil {
			return nil, err
		}
		return provider.NewFallbackGenerator(gemini, provider.NewMockGenerator(), log), nil
	default:
		return nil, fmt.Errorf("unsupported generator provider %q", cfg.Generator.Provider)
	}
}
