package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateNormalizesDefaults(t *testing.T) {
	req := GenerateRequest{
		Prompt:      "  write a post about coastal lighthouses  ",
		ContentType: "Blog_Post",
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if req.Prompt != "write a post about coastal lighthouses" {
		t.Fatalf("prompt not trimmed: %q", req.Prompt)
	}
	if req.ContentType != ContentBlogPost {
		t.Fatalf("content type not lowered: %q", req.ContentType)
	}
	if req.Tone != ToneProfessional {
		t.Fatalf("expected default tone, got %q", req.Tone)
	}
	if req.Length != LengthMedium {
		t.Fatalf("expected default length, got %q", req.Length)
	}
	if req.Language != "English" {
		t.Fatalf("expected default language, got %q", req.Language)
	}
}

func TestValidateRejectsMalformedFields(t *testing.T) {
	cases := []struct {
		name string
		req  GenerateRequest
		want error
	}{
		{"short prompt", GenerateRequest{Prompt: "too short", ContentType: ContentEmail}, ErrInvalidPrompt},
		{"long prompt", GenerateRequest{Prompt: strings.Repeat("a", PromptMaxLength+1), ContentType: ContentEmail}, ErrInvalidPrompt},
		{"unknown content type", GenerateRequest{Prompt: "write a product teaser", ContentType: "haiku"}, ErrInvalidContentType},
		{"unknown tone", GenerateRequest{Prompt: "write a product teaser", ContentType: ContentAdCopy, Tone: "sarcastic"}, ErrInvalidTone},
		{"unknown length", GenerateRequest{Prompt: "write a product teaser", ContentType: ContentAdCopy, Length: "gigantic"}, ErrInvalidLength},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.req.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestWordCount(t *testing.T) {
	cases := []struct {
		text string
		want int64
	}{
		{"", 0},
		{"   \n\t ", 0},
		{"one", 1},
		{"The lighthouse stands  alone\nat dusk", 6},
	}
	for _, tc := range cases {
		if got := WordCount(tc.text); got != tc.want {
			t.Fatalf("WordCount(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}
