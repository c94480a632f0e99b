package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaProvider talks to a local Ollama server's /api/generate endpoint,
// grounded on the teacher's Ollama adapter.
type OllamaProvider struct {
	Model  string
	Host   string
	Client *http.Client
}

// NewOllamaProvider constructs an adapter against the given host (defaults
// to the conventional local Ollama address when empty).
func NewOllamaProvider(model, host string) *OllamaProvider {
	if host == "" {
		host = "http://localhost:11434"
	}
	return &OllamaProvider{
		Model:  model,
		Host:   host,
		Client: &http.Client{Timeout: 60 * time.Second},
	}
}

type ollamaRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete renders messages into a single prompt (Ollama's generate endpoint
// has no native chat-message concept) and issues one non-streaming request.
func (p *OllamaProvider) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	var prompt strings.Builder
	for _, m := range messages {
		prompt.WriteString(m.Role)
		prompt.WriteString(": ")
		prompt.WriteString(m.Content)
		prompt.WriteString("\n")
	}

	req := ollamaRequest{
		Model:  p.Model,
		Prompt: prompt.String(),
		Stream: false,
		Options: map[string]interface{}{
			"temperature": opts.Temperature,
			"num_predict": opts.MaxTokens,
			"top_p":       opts.TopP,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", newProviderError("OllamaProvider", "Complete", "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", newProviderError("OllamaProvider", "Complete", "failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return "", newProviderError("OllamaProvider", "Complete", "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newProviderError("OllamaProvider", "Complete", "failed to read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", newProviderError("OllamaProvider", "Complete", "status "+resp.Status+": "+string(respBody), nil)
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", newProviderError("OllamaProvider", "Complete", "failed to decode response", err)
	}

	return UnwrapEnvelope(parsed.Response), nil
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed calls Ollama's /api/embed endpoint, letting OllamaProvider double as
// both a Complete-backed Provider and an embedding backend for
// memory.QdrantMemory and automatch.Matcher.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: p.Model, Input: text})
	if err != nil {
		return nil, newProviderError("OllamaProvider", "Embed", "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, newProviderError("OllamaProvider", "Embed", "failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, newProviderError("OllamaProvider", "Embed", "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newProviderError("OllamaProvider", "Embed", "failed to read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newProviderError("OllamaProvider", "Embed", "status "+resp.Status+": "+string(respBody), nil)
	}

	var parsed ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, newProviderError("OllamaProvider", "Embed", "failed to decode response", err)
	}
	if len(parsed.Embeddings) == 0 {
		return nil, newProviderError("OllamaProvider", "Embed", "no embeddings in response", nil)
	}
	return parsed.Embeddings[0], nil
}
