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

// AnthropicProvider is a hand-rolled HTTP client against the Anthropic
// messages endpoint, grounded on the teacher's own direct-HTTP Anthropic
// adapter (no anthropic-sdk-go dependency there either).
type AnthropicProvider struct {
	APIKey string
	Model  string
	Host   string
	Client *http.Client
}

// NewAnthropicProvider constructs an adapter against the given host
// (defaults to the public Anthropic API when empty).
func NewAnthropicProvider(apiKey, model, host string) *AnthropicProvider {
	if host == "" {
		host = "https://api.anthropic.com"
	}
	return &AnthropicProvider{
		APIKey: apiKey,
		Model:  model,
		Host:   host,
		Client: &http.Client{Timeout: 60 * time.Second},
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	TopP        float64            `json:"top_p,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete implements Provider, splitting any leading "system" role message
// out into Anthropic's dedicated system field as its wire format requires.
func (p *AnthropicProvider) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	req := anthropicRequest{
		Model:       p.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = 1024
	}

	for _, m := range messages {
		if m.Role == "system" && req.System == "" {
			req.System = m.Content
			continue
		}
		req.Messages = append(req.Messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", newProviderError("AnthropicProvider", "Complete", "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Host+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", newProviderError("AnthropicProvider", "Complete", "failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return "", newProviderError("AnthropicProvider", "Complete", "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newProviderError("AnthropicProvider", "Complete", "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		rateInfo := httpclient.ParseAnthropicRateLimitHeaders(resp.Header)
		strategy := httpclient.StrategyForStatus(resp.StatusCode)
		msg := fmt.Sprintf("status %d (retry-strategy=%d, retry-after=%v): %s", resp.StatusCode, strategy, rateInfo.RetryAfter, string(respBody))
		return "", newProviderError("AnthropicProvider", "Complete", msg, nil)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", newProviderError("AnthropicProvider", "Complete", "failed to decode response", err)
	}
	if parsed.Error != nil {
		return "", newProviderError("AnthropicProvider", "Complete", parsed.Error.Message, nil)
	}
	if len(parsed.Content) == 0 {
		return "", newProviderError("AnthropicProvider", "Complete", "no content in response", nil)
	}

	return UnwrapEnvelope(parsed.Content[0].Text), nil
}
