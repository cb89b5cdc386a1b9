// Package domain contains the metered generation types and wire events.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPrompt      = errors.New("invalid_prompt")
	ErrInvalidContentType = errors.New("invalid_content_type")
	ErrInvalidTone        = errors.New("invalid_tone")
	ErrInvalidLength      = errors.New("invalid_length")
	ErrGenerationFailed   = errors.New("generation_failed")
)

const (
	PromptMinLength = 10
	PromptMaxLength = 1000
)

// ContentType is a closed enumeration: unknown values are rejected at
// validation instead of silently falling back to general.
type ContentType string

const (
	ContentBlogPost           ContentType = "blog_post"
	ContentSocialMedia        ContentType = "social_media"
	ContentEmail              ContentType = "email"
	ContentProductDescription ContentType = "product_description"
	ContentAdCopy             ContentType = "ad_copy"
	ContentGeneral            ContentType = "general"
)

func ParseContentType(value string) (ContentType, error) {
	ct := ContentType(strings.ToLower(strings.TrimSpace(value)))
	switch ct {
	case ContentBlogPost, ContentSocialMedia, ContentEmail,
		ContentProductDescription, ContentAdCopy, ContentGeneral:
		return ct, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidContentType, value)
	}
}

// Tone adjusts the writing style.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	ToneCreative     Tone = "creative"
	TonePersuasive   Tone = "persuasive"
	ToneFriendly     Tone = "friendly"
	ToneFormal       Tone = "formal"
)

func ParseTone(value string) (Tone, error) {
	if strings.TrimSpace(value) == "" {
		return ToneProfessional, nil
	}
	tone := Tone(strings.ToLower(strings.TrimSpace(value)))
	switch tone {
	case ToneProfessional, ToneCasual, ToneCreative, TonePersuasive, ToneFriendly, ToneFormal:
		return tone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTone, value)
	}
}

// Length controls the target size and drives the pre-flight word estimate.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

func ParseLength(value string) (Length, error) {
	if strings.TrimSpace(value) == "" {
		return LengthMedium, nil
	}
	length := Length(strings.ToLower(strings.TrimSpace(value)))
	switch length {
	case LengthShort, LengthMedium, LengthLong:
		return length, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLength, value)
	}
}

// GenerateRequest is a validated text generation request.
type GenerateRequest struct {
	Prompt      string      `json:"prompt"`
	ContentType ContentType `json:"content_type"`
	Tone        Tone        `json:"tone"`
	Length      Length      `json:"length"`
	Language    string      `json:"language"`
}

// Validate normalizes defaults and rejects malformed fields.
func (r *GenerateRequest) Validate() error {
	prompt := strings.TrimSpace(r.Prompt)
	if len(prompt) < PromptMinLength {
		return fmt.Errorf("%w: prompt must be at least %d characters", ErrInvalidPrompt, PromptMinLength)
	}
	if len(prompt) > PromptMaxLength {
		return fmt.Errorf("%w: prompt must be at most %d characters", ErrInvalidPrompt, PromptMaxLength)
	}
	r.Prompt = prompt

	ct, err := ParseContentType(string(r.ContentType))
	if err != nil {
		return err
	}
	r.ContentType = ct

	tone, err := ParseTone(string(r.Tone))
	if err != nil {
		return err
	}
	r.Tone = tone

	length, err := ParseLength(string(r.Length))
	if err != nil {
		return err
	}
	r.Length = length

	if strings.TrimSpace(r.Language) == "" {
		r.Language = "English"
	}
	return nil
}

// UsageSnapshot reports the owner's position against the daily allowance.
type UsageSnapshot struct {
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
}

// Output is the result of a buffered metered generation.
type Output struct {
	Content        string        `json:"content"`
	WordsGenerated int64         `json:"words_generated"`
	ContentType    ContentType   `json:"content_type"`
	Model          string        `json:"model"`
	DurationMs     int64         `json:"duration_ms"`
	Usage          UsageSnapshot `json:"usage"`
	Warning        string        `json:"warning,omitempty"`
}

// StreamEvent is one server-sent event of a streaming generation.
type StreamEvent interface{ streamEvent() }

// StreamChunk carries an incremental fragment and the text so far.
type StreamChunk struct {
	Chunk   string `json:"chunk"`
	Partial string `json:"partial"`
}

// StreamDone terminates a successful stream.
type StreamDone struct {
	Done           bool        `json:"done"`
	FullText       string      `json:"fullText"`
	WordsGenerated int64       `json:"wordsGenerated"`
	ContentType    ContentType `json:"contentType"`
	Success        bool        `json:"success"`
}

// StreamError terminates a failed or denied stream.
type StreamError struct {
	Error         string         `json:"error"`
	LimitExceeded bool           `json:"limitExceeded,omitempty"`
	LimitWarning  bool           `json:"limitWarning,omitempty"`
	Usage         *UsageSnapshot `json:"usage,omitempty"`
}

func (StreamChunk) streamEvent() {}
func (StreamDone) streamEvent()  {}
func (StreamError) streamEvent() {}

// DenialError wraps a quota denial with the usage snapshot callers render.
type DenialError struct {
	Reason   error
	Message  string
	Usage    UsageSnapshot
	Estimate int64
}

func (e *DenialError) Error() string { return e.Message }
func (e *DenialError) Unwrap() error { return e.Reason }

// Denial sentinels. Handlers map them to HTTP 429 with the snapshot payload.
var (
	ErrDailyLimitReached = errors.New("daily_limit_reached")
	ErrEstimatedOverage  = errors.New("estimated_overage")
)

// WordCount tokenizes on whitespace, matching how streamed text is metered.
func WordCount(text string) int64 {
	return int64(len(strings.Fields(text)))
}
