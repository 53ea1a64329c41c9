// Package generator wraps the single external generative-AI call: prompt
// construction, one bounded completion request, and the categorized fallback
// replies used when the provider cannot answer.
package generator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/qubitlabs/concierge/internal/config"
	"github.com/qubitlabs/concierge/internal/contact"
	"github.com/qubitlabs/concierge/internal/llm"
	"github.com/qubitlabs/concierge/internal/logger"
)

var log = logger.Component("generator")

const defaultTimeout = 20 * time.Second

// Generator produces one assistant reply per user utterance. There is no
// retry; the user's next send is a fresh attempt.
type Generator struct {
	client  llm.Client
	model   string
	apiKey  string
	timeout time.Duration
	card    contact.Card
	prompt  string
}

// New builds a Generator over the given provider client.
func New(client llm.Client, cfg config.LLMConfig, card contact.Card) *Generator {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Generator{
		client:  client,
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		timeout: timeout,
		card:    card,
		prompt:  systemPrompt(card),
	}
}

// Generate issues one completion request for the utterance. Failures come
// back as a *ProviderError carrying their category.
func (g *Generator) Generate(ctx context.Context, utterance string) (string, error) {
	if g.apiKey == "" || g.apiKey == config.PlaceholderAPIKey {
		return "", &ProviderError{
			Category: FailureConfigurationMissing,
			Err:      errors.New("provider API key absent or left at placeholder"),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.prompt},
			{Role: openai.ChatMessageRoleUser, Content: utterance},
		},
	})
	if err != nil {
		return "", &ProviderError{Category: classify(err), Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Category: FailureUnknown, Err: errors.New("completion had no choices")}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", &ProviderError{Category: FailureUnknown, Err: errors.New("completion had empty text")}
	}
	return text, nil
}

// Fallback returns the canned reply for a failure category. Every fallback
// carries a direct human-contact affordance; that is a product invariant.
func (g *Generator) Fallback(category FailureCategory) string {
	links := g.card.Affordance()
	switch category {
	case FailureConfigurationMissing:
		return "I'm having some technical difficulties right now. 😅 But no worries! You can " + links
	case FailureInvalidCredential:
		return "My credentials seem to be out of order at the moment. 😅 No problem though - you can " + links
	case FailureQuotaExceeded:
		return "I'm getting a lot of questions today! 😊 While I sort this out, feel free to " + links
	case FailureRateLimited:
		return "Give me just a moment to catch up! In the meantime, you can " + links
	default:
		return "I apologize for the technical hiccup! 🤖 Let's connect directly - " + links
	}
}

// Reply is the generate-or-fallback path the controller uses. It never
// returns an error; a failed generation is logged and replaced by the
// category's fallback text.
func (g *Generator) Reply(ctx context.Context, utterance string) string {
	text, err := g.Generate(ctx, utterance)
	if err != nil {
		category := Categorize(err)
		log.Warn("generation failed, serving fallback", "category", category, "error", err)
		return g.Fallback(category)
	}
	return text
}
