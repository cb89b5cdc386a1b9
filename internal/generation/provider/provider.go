// Package provider abstracts the text generation backends.
package provider

import (
	"context"
	"errors"
)

var (
	// ErrQuotaExhausted signals the upstream provider rejected the call for
	// billing or rate reasons. The fallback provider takes over.
	ErrQuotaExhausted = errors.New("provider_quota_exhausted")
	ErrEmptyResponse  = errors.New("provider_empty_response")
)

// Request is the provider-facing slice of a generation request. The prompt
// is already fully composed.
type Request struct {
	Prompt      string
	ContentType string
	Tone        string
	Length      string
}

// Result is a completed buffered generation.
type Result struct {
	Content string
	Model   string
}

// Chunk is one streamed fragment.
type Chunk struct {
	Text string
	Err  error
}

// Generator produces text. Stream sends chunks until the generation ends
// or ctx is cancelled, then closes the channel; a mid-stream failure is
// delivered as a final chunk with Err set.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
	Model() string
}
