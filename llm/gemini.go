package llm

import "context"

// geminiProvider implements VisionProvider for Google's Gemini API using
// the OpenAI-compatible endpoint, which has no /v1 prefix.
//
// Vision-capable chat models:
//
//	gemini-2.5-flash  (fast)
//	gemini-2.5-pro    (highest capability)
//
// API key: set via config or GEMINI_API_KEY env var.
type geminiProvider struct {
	base compatClient
}

// NewGemini creates a provider for Google Gemini.
func NewGemini(cfg Config) VisionProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	}
	return &geminiProvider{base: newCompatClient(cfg, "/chat/completions")}
}

func (p *geminiProvider) ChatWithImages(ctx context.Context, req VisionChatRequest) (*ChatResponse, error) {
	return p.base.chatWithImages(ctx, req)
}
