package provider

import (
	"context"
	"fmt"
	"strings"
)

const mockModel = "mock-writer"

// MockGenerator produces deterministic content without an upstream
// provider. It backs development environments and the quota-exhausted
// fallback path.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

func (m *MockGenerator) Model() string { return mockModel }

func (m *MockGenerator) Generate(_ context.Context, req Request) (Result, error) {
	return Result{Content: mockContent(req), Model: mockModel}, nil
}

func (m *MockGenerator) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	content := mockContent(req)
	out := make(chan Chunk)

	go func() {
		defer close(out)
		// Emit in word groups so consumers exercise real chunk handling.
		words := strings.Fields(content)
		const groupSize = 8
		for i := 0; i < len(words); i += groupSize {
			end := i + groupSize
			if end > len(words) {
				end = len(words)
			}
			chunk := strings.Join(words[i:end], " ")
			if end < len(words) {
				chunk += " "
			}
			select {
			case out <- Chunk{Text: chunk}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func mockContent(req Request) string {
	prompt := req.Prompt
	switch req.ContentType {
	case "blog_post":
		return fmt.Sprintf("# %s\n\nThis is a comprehensive blog post about %q. In today's rapidly evolving digital landscape, understanding this topic is crucial for success. This article explores the key aspects, benefits, and practical applications.\n\n## Key Points\n\n1. Introduction: %s represents a significant opportunity for growth.\n2. Main content: the core concepts involve strategic thinking and careful implementation.\n3. Conclusion: applying these principles delivers measurable results.", prompt, prompt, prompt)
	case "social_media":
		return fmt.Sprintf("%s\n\nExcited to share insights about this topic!\n\nKey takeaways:\n- Important point one\n- Important point two\n- Important point three\n\n#AI #Content", prompt)
	case "email":
		return fmt.Sprintf("Subject: %s\n\nDear recipient,\n\nI hope this email finds you well. I wanted to reach out regarding %s.\n\nThe key benefits include:\n\n- Benefit one\n- Benefit two\n- Benefit three\n\nI would be glad to discuss this further.\n\nBest regards", prompt, prompt)
	case "product_description":
		return fmt.Sprintf("%s\n\nTransform your workflow with this solution. It delivers reliable results through proven functionality.\n\nKey features:\n- Advanced functionality\n- Clear interface\n- Dependable performance\n\nPerfect for teams looking to streamline operations.", prompt)
	case "ad_copy":
		return fmt.Sprintf("%s\n\nDon't miss out. Limited time offer.\n\n- Standout features\n- Real benefits\n- Proven results\n\nAct now and see the difference today.", prompt)
	default:
		return fmt.Sprintf("%s\n\nThis is a well-crafted piece of content about %q. It covers the essential aspects and provides useful context.\n\nHighlights:\n- Important aspect one\n- Important aspect two\n- Important aspect three", prompt, prompt)
	}
}
