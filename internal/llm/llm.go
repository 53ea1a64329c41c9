package llm

import (
	"github.com/sashabaranov/go-openai"

	"github.com/qubitlabs/concierge/internal/config"
)

// NewClient creates a client for the configured OpenAI-compatible endpoint.
func NewClient(cfg config.LLMConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}
