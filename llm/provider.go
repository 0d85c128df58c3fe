package llm

import (
	"context"
	"fmt"
	"time"
)

// VisionProvider sends chat completions whose messages may carry images.
type VisionProvider interface {
	// ChatWithImages sends a chat request that includes images.
	ChatWithImages(ctx context.Context, req VisionChatRequest) (*ChatResponse, error)
}

// VisionChatRequest is a chat request with image content.
type VisionChatRequest struct {
	Model       string          `json:"model"`
	Messages    []VisionMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

// VisionMessage represents a chat message that may contain images.
type VisionMessage struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// Content part types.
const (
	PartText  = "text"
	PartImage = "image_url"
)

// ContentPart is either text or an image in a vision message.
type ContentPart struct {
	Type     string    `json:"type"` // "text" or "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL contains a base64 or URL reference to an image.
type ImageURL struct {
	URL string `json:"url"`
}

// TextPart returns a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// ImagePart returns an image content part referencing url.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: PartImage, ImageURL: &ImageURL{URL: url}}
}

// UserMessage builds a single user turn of a text prompt followed by one image.
func UserMessage(prompt, imageURL string) VisionMessage {
	return VisionMessage{
		Role:    "user",
		Content: []ContentPart{TextPart(prompt), ImagePart(imageURL)},
	}
}

// ChatResponse is the response from a chat completion.
type ChatResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	FinishReason     string `json:"finish_reason"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// Config configures an LLM provider.
type Config struct {
	Provider string `yaml:"provider" env:"PROVIDER"` // azure, openai, openrouter, gemini, ollama, custom
	Model    string `yaml:"model" env:"MODEL"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL"`
	APIKey   string `yaml:"api_key" env:"API_KEY"`

	// Deployment and APIVersion are used by the azure provider only.
	Deployment string `yaml:"deployment" env:"DEPLOYMENT"`
	APIVersion string `yaml:"api_version" env:"API_VERSION"`

	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// NewProvider creates a vision provider from configuration.
func NewProvider(cfg Config) (VisionProvider, error) {
	switch cfg.Provider {
	case "azure":
		return NewAzure(cfg)
	case "openai":
		return NewOpenAI(cfg), nil
	case "openrouter":
		return NewOpenRouter(cfg), nil
	case "gemini":
		return NewGemini(cfg), nil
	case "ollama":
		return NewOllama(cfg), nil
	case "custom":
		return NewOpenAICompat(cfg), nil
	case "":
		return nil, fmt.Errorf("llm provider not specified")
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
