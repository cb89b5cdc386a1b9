package domain

import "context"

// Option is one selectable value exposed by the options endpoint.
type Option struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Options enumerates the accepted request fields.
type Options struct {
	ContentTypes []Option `json:"content_types"`
	Tones        []Option `json:"tones"`
	Lengths      []Option `json:"lengths"`
}

// Service is the metered operation wrapper around the text generator:
// every call resolves the owner's grant, enforces quota, runs the
// generator and appends the outcome to the usage ledger.
type Service interface {
	Generate(ctx context.Context, ownerID string, req GenerateRequest) (*Output, error)
	// GenerateStream runs the pre-flight checks before the first byte and
	// returns a channel of stream events. A denial surfaces as an error
	// before any event is produced; failures mid-stream arrive as a
	// StreamError event. The channel closes after the terminal event.
	GenerateStream(ctx context.Context, ownerID string, req GenerateRequest) (<-chan StreamEvent, error)
	Options(ctx context.Context) Options
}
