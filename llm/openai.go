package llm

import "context"

// openAIProvider implements VisionProvider for the OpenAI API.
//
// API key: set via config or the OPENAI_API_KEY env var.
type openAIProvider struct {
	base compatClient
}

// NewOpenAI creates a provider for OpenAI.
func NewOpenAI(cfg Config) VisionProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	return &openAIProvider{base: newCompatClient(cfg, "/v1/chat/completions")}
}

func (p *openAIProvider) ChatWithImages(ctx context.Context, req VisionChatRequest) (*ChatResponse, error) {
	return p.base.chatWithImages(ctx, req)
}
