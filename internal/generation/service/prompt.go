package service

import (
	"fmt"

	generationdomain "github.com/scribehq/scribe/internal/generation/domain"
)

// composePrompt folds the validated request into the provider prompt.
func composePrompt(req generationdomain.GenerateRequest) string {
	suffix := fmt.Sprintf("Tone: %s. Length: %s. Language: %s.", req.Tone, req.Length, req.Language)

	switch req.ContentType {
	case generationdomain.ContentBlogPost:
		return fmt.Sprintf("Write a comprehensive blog post about: %s. %s Include an engaging introduction, well-structured body paragraphs, and a compelling conclusion.", req.Prompt, suffix)
	case generationdomain.ContentSocialMedia:
		return fmt.Sprintf("Write engaging social media content about: %s. %s Make it shareable and include relevant hashtags.", req.Prompt, suffix)
	case generationdomain.ContentEmail:
		return fmt.Sprintf("Write a professional email about: %s. %s Include a proper greeting, a clear subject line suggestion, and a professional closing.", req.Prompt, suffix)
	case generationdomain.ContentProductDescription:
		return fmt.Sprintf("Write a compelling product description for: %s. %s Highlight key features, benefits, and include a call-to-action.", req.Prompt, suffix)
	case generationdomain.ContentAdCopy:
		return fmt.Sprintf("Write persuasive ad copy for: %s. %s Focus on benefits, create urgency, and include a strong call-to-action.", req.Prompt, suffix)
	default:
		return fmt.Sprintf("Write content about: %s. %s Make it informative and engaging.", req.Prompt, suffix)
	}
}

func optionCatalog() generationdomain.Options {
	return generationdomain.Options{
		ContentTypes: []generationdomain.Option{
			{Value: "blog_post", Label: "Blog Post", Description: "Comprehensive articles and blog posts"},
			{Value: "social_media", Label: "Social Media", Description: "Posts for social media platforms"},
			{Value: "email", Label: "Email", Description: "Professional email content"},
			{Value: "product_description", Label: "Product Description", Description: "Marketing product descriptions"},
			{Value: "ad_copy", Label: "Ad Copy", Description: "Persuasive advertising content"},
			{Value: "general", Label: "General", Description: "General purpose content"},
		},
		Tones: []generationdomain.Option{
			{Value: "professional", Label: "Professional", Description: "Formal and business-like"},
			{Value: "casual", Label: "Casual", Description: "Relaxed and conversational"},
			{Value: "creative", Label: "Creative", Description: "Imaginative and artistic"},
			{Value: "persuasive", Label: "Persuasive", Description: "Convincing and compelling"},
			{Value: "friendly", Label: "Friendly", Description: "Warm and approachable"},
			{Value: "formal", Label: "Formal", Description: "Structured and official"},
		},
		Lengths: []generationdomain.Option{
			{Value: "short", Label: "Short", Description: "Brief and concise (50-150 words)"},
			{Value: "medium", Label: "Medium", Description: "Balanced length (150-400 words)"},
			{Value: "long", Label: "Long", Description: "Detailed and comprehensive (400+ words)"},
		},
	}
}
