package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/qubitlabs/concierge/internal/config"
	"github.com/qubitlabs/concierge/internal/contact"
)

type mockLLM struct {
	resp  openai.ChatCompletionResponse
	err   error
	calls int
	last  openai.ChatCompletionRequest
}

func (m *mockLLM) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	return m.resp, nil
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{APIKey: "test-key", Model: "gpt-4o-mini", TimeoutSeconds: 5}
}

func completion(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: text}}},
	}
}

func TestGenerateBuildsSingleTurnPrompt(t *testing.T) {
	mock := &mockLLM{resp: completion("  Happy to help! 😊  ")}
	card := contact.Default()
	g := New(mock, testConfig(), card)

	text, err := g.Generate(context.Background(), "What do you offer?")
	require.NoError(t, err)
	require.Equal(t, "Happy to help! 😊", text)

	require.Equal(t, 1, mock.calls)
	require.Len(t, mock.last.Messages, 2, "exactly one system and one user message, no history window")
	require.Equal(t, openai.ChatMessageRoleSystem, mock.last.Messages[0].Role)
	require.Contains(t, mock.last.Messages[0].Content, card.SchedulingURL)
	require.Contains(t, mock.last.Messages[0].Content, card.WhatsAppNumber)
	require.Equal(t, openai.ChatMessageRoleUser, mock.last.Messages[1].Role)
	require.Equal(t, "What do you offer?", mock.last.Messages[1].Content)
}

func TestGenerateMissingCredentialSkipsProvider(t *testing.T) {
	for _, key := range []string{"", config.PlaceholderAPIKey} {
		mock := &mockLLM{resp: completion("never reached")}
		cfg := testConfig()
		cfg.APIKey = key
		g := New(mock, cfg, contact.Default())

		_, err := g.Generate(context.Background(), "hi")
		require.Error(t, err)
		require.Equal(t, FailureConfigurationMissing, Categorize(err))
		require.Zero(t, mock.calls, "no provider call when the credential is absent")
	}
}

func TestGenerateCategorizesProviderErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want FailureCategory
	}{
		{"unauthorized status", &openai.APIError{HTTPStatusCode: 401}, FailureInvalidCredential},
		{"invalid key code", &openai.APIError{HTTPStatusCode: 401, Code: "invalid_api_key"}, FailureInvalidCredential},
		{"quota code", &openai.APIError{HTTPStatusCode: 429, Code: "insufficient_quota"}, FailureQuotaExceeded},
		{"rate limit status", &openai.APIError{HTTPStatusCode: 429}, FailureRateLimited},
		{"rate limit code", &openai.APIError{HTTPStatusCode: 429, Code: "rate_limit_exceeded"}, FailureRateLimited},
		{"server error", &openai.APIError{HTTPStatusCode: 500}, FailureUnknown},
		{"plain error", errors.New("connection refused"), FailureUnknown},
		{"timeout", context.DeadlineExceeded, FailureUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := New(&mockLLM{err: tc.err}, testConfig(), contact.Default())
			_, err := g.Generate(context.Background(), "hi")
			require.Error(t, err)
			require.Equal(t, tc.want, Categorize(err))
		})
	}
}

func TestGenerateRejectsEmptyCompletion(t *testing.T) {
	for _, resp := range []openai.ChatCompletionResponse{{}, completion("   ")} {
		g := New(&mockLLM{resp: resp}, testConfig(), contact.Default())
		_, err := g.Generate(context.Background(), "hi")
		require.Error(t, err)
		require.Equal(t, FailureUnknown, Categorize(err))
	}
}

func TestFallbacksAlwaysCarryContactAffordance(t *testing.T) {
	card := contact.Default()
	g := New(&mockLLM{}, testConfig(), card)

	categories := []FailureCategory{
		FailureConfigurationMissing,
		FailureInvalidCredential,
		FailureQuotaExceeded,
		FailureRateLimited,
		FailureUnknown,
	}
	seen := map[string]bool{}
	for _, category := range categories {
		text := g.Fallback(category)
		require.Contains(t, text, card.SchedulingURL, "category %s", category)
		require.Contains(t, text, card.WhatsAppNumber, "category %s", category)
		require.False(t, seen[text], "category %s must have its own wording", category)
		seen[text] = true
	}
}

func TestReplyServesFallbackOnFailure(t *testing.T) {
	g := New(&mockLLM{err: &openai.APIError{HTTPStatusCode: 429, Code: "insufficient_quota"}}, testConfig(), contact.Default())
	reply := g.Reply(context.Background(), "hi")
	require.Equal(t, g.Fallback(FailureQuotaExceeded), reply)

	g = New(&mockLLM{resp: completion("all good")}, testConfig(), contact.Default())
	require.Equal(t, "all good", g.Reply(context.Background(), "hi"))
}

func TestProviderErrorWrapsCause(t *testing.T) {
	cause := &openai.APIError{HTTPStatusCode: 401}
	g := New(&mockLLM{err: cause}, testConfig(), contact.Default())
	_, err := g.Generate(context.Background(), "hi")
	require.Error(t, err)

	var apiErr *openai.APIError
	require.True(t, errors.As(err, &apiErr))
}
