package llm

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// DefaultAzureAPIVersion is the chat completions API version used when the
// config leaves it empty.
const DefaultAzureAPIVersion = "2023-03-15-preview"

// azureProvider implements VisionProvider for an Azure OpenAI deployment.
// BaseURL is the resource endpoint, e.g. https://<resource>.openai.azure.com,
// and the key is sent in the api-key header.
type azureProvider struct {
	base compatClient
}

// NewAzure creates a provider for an Azure OpenAI deployment.
func NewAzure(cfg Config) (VisionProvider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("azure: endpoint not specified")
	}
	if cfg.Deployment == "" {
		return nil, errors.New("azure: deployment not specified")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAzureAPIVersion
	}
	base := newCompatClientURL(cfg, AzureChatURL(cfg.BaseURL, cfg.Deployment, cfg.APIVersion))
	key := cfg.APIKey
	base.auth = func(req *http.Request) {
		if key != "" {
			req.Header.Set("api-key", key)
		}
	}
	return &azureProvider{base: base}, nil
}

// AzureChatURL returns the chat completions URL of a deployment.
func AzureChatURL(endpoint, deployment, version string) string {
	return strings.TrimRight(endpoint, "/") +
		"/openai/deployments/" + url.PathEscape(deployment) +
		"/chat/completions?api-version=" + url.QueryEscape(version)
}

func (p *azureProvider) ChatWithImages(ctx context.Context, req VisionChatRequest) (*ChatResponse, error) {
	return p.base.chatWithImages(ctx, req)
}
