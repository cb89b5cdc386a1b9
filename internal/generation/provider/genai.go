package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/scribehq/scribe/internal/config"
)

const systemInstruction = "You are a professional content writer. Write high-quality, engaging content that meets the user's requirements."

// GeminiGenerator calls the Gemini API through the genai SDK.
type GeminiGenerator struct {
	client  *genai.Client
	log     *zap.Logger
	model   string
	timeout time.Duration
	config  *genai.GenerateContentConfig
}

func NewGeminiGenerator(ctx context.Context, cfg config.GeneratorConfig, log *zap.Logger) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(cfg.Temperature)),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
	}
	if cfg.MaxOutputTokens > 0 {
		genConfig.MaxOutputTokens = int32(cfg.MaxOutputTokens)
	}

	return &GeminiGenerator{
		client:  client,
		log:     log.Named("provider.gemini"),
		model:   model,
		timeout: timeout,
		config:  genConfig,
	}, nil
}

func (g *GeminiGenerator) Model() string { return g.model }

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), g.config)
	if err != nil {
		return Result{}, classifyProviderErr(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyResponse
	}
	return Result{Content: text, Model: g.model}, nil
}

func (g *GeminiGenerator) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	out := make(chan Chunk)

	go func() {
		defer close(out)
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(req.Prompt), g.config) {
			if err != nil {
				select {
				case out <- Chunk{Err: classifyProviderErr(err)}:
				case <-ctx.Done():
				}
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			select {
			case out <- Chunk{Text: text}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// classifyProviderErr maps upstream quota and rate errors to
// ErrQuotaExhausted so the fallback chain can react.
func classifyProviderErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || strings.Contains(strings.ToLower(apiErr.Status), "resource_exhausted") {
			return ErrQuotaExhausted
		}
	}
	return err
}
