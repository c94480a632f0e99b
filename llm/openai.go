package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/swarmkit/swarmkit/internal/httpclient"
)

// OpenAIProvider is a hand-rolled HTTP client against the OpenAI
// chat-completions endpoint. The teacher itself never takes a dependency on
// openai-go, preferring direct HTTP with its own rate-limit header parsing —
// carried unchanged here.
type OpenAIProvider struct {
	APIKey string
	Model  string
	Host   string
	Client *http.Client
}

// NewOpenAIProvider constructs an adapter against the given host (defaults
// to the public OpenAI API when empty).
func NewOpenAIProvider(apiKey, model, host string) *OpenAIProvider {
	if host == "" {
		host = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		APIKey: apiKey,
		Model:  model,
		Host:   host,
		Client: &http.Client{Timeout: 60 * time.Second},
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model            string          `json:"model"`
	Messages         []openAIMessage `json:"messages"`
	Temperature      float64         `json:"temperature"`
	TopP             float64         `json:"top_p,omitempty"`
	MaxTokens        int             `json:"max_tokens,omitempty"`
	FrequencyPenalty float64         `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64         `json:"presence_penalty,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete implements Provider. A single request/response round trip; retry
// policy lives one layer up in the Agent run loop via the shared retry
// package, per spec.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	req := openAIRequest{
		Model:            p.Model,
		Temperature:      opts.Temperature,
		TopP:             opts.TopP,
		MaxTokens:        opts.MaxTokens,
		FrequencyPenalty: opts.FrequencyPenalty,
		PresencePenalty:  opts.PresencePenalty,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openAIMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", newProviderError("OpenAIProvider", "Complete", "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Host+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", newProviderError("OpenAIProvider", "Complete", "failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return "", newProviderError("OpenAIProvider", "Complete", "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newProviderError("OpenAIProvider", "Complete", "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		rateInfo := httpclient.ParseOpenAIRateLimitHeaders(resp.Header)
		strategy := httpclient.StrategyForStatus(resp.StatusCode)
		msg := fmt.Sprintf("status %d (retry-strategy=%d, retry-after=%v): %s", resp.StatusCode, strategy, rateInfo.RetryAfter, string(respBody))
		return "", newProviderError("OpenAIProvider", "Complete", msg, nil)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", newProviderError("OpenAIProvider", "Complete", "failed to decode response", err)
	}
	if parsed.Error != nil {
		return "", newProviderError("OpenAIProvider", "Complete", parsed.Error.Message, nil)
	}
	if len(parsed.Choices) == 0 {
		return "", newProviderError("OpenAIProvider", "Complete", "no choices in response", nil)
	}

	return UnwrapEnvelope(parsed.Choices[0].Message.Content), nil
}
