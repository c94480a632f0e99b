package llm

import (
	"context"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider wraps google.golang.org/genai, the teacher's real (if
// underused at its top level) Gemini dependency. Unlike the hand-rolled
// OpenAI/Anthropic/Ollama adapters, Gemini is exercised through its own SDK
// since the dependency is already real and present in the module.
type GeminiProvider struct {
	client *genai.Client
	Model  string
}

// NewGeminiProvider constructs a client-backed adapter for the given model.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, newProviderError("GeminiProvider", "NewGeminiProvider", "failed to create genai client", err)
	}
	return &GeminiProvider{client: client, Model: model}, nil
}

// Complete renders the conversation into a single text turn (the run loop's
// entire ShortMemory is already assembled into one prompt string by the time
// it reaches a Provider, per spec) and issues one generation request.
func (p *GeminiProvider) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	var prompt strings.Builder
	var systemInstruction string
	for _, m := range messages {
		if m.Role == "system" && systemInstruction == "" {
			systemInstruction = m.Content
			continue
		}
		prompt.WriteString(m.Role)
		prompt.WriteString(": ")
		prompt.WriteString(m.Content)
		prompt.WriteString("\n")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(opts.Temperature)),
		TopP:            genai.Ptr(float32(opts.TopP)),
		MaxOutputTokens: int32(opts.MaxTokens),
	}
	if systemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	result, err := p.client.Models.GenerateContent(ctx, p.Model, genai.Text(prompt.String()), cfg)
	if err != nil {
		return "", newProviderError("GeminiProvider", "Complete", "generation request failed", err)
	}

	return UnwrapEnvelope(result.Text()), nil
}
