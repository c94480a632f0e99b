// Package utils provides small shared helpers.
package utils

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkoukk/tiktoken-go"
)

// maxCachedEncodings bounds how many distinct tiktoken encodings stay
// resident at once. A swarm that cycles through many provider/model
// combinations over its lifetime shouldn't accumulate encodings forever;
// a model that falls out of the LRU just pays one re-load on next use.
const maxCachedEncodings = 32

// encodingCache is shared by every TokenCounter in the process, keyed by
// model name. github.com/hashicorp/golang-lru gives bounded memory and its
// own internal locking, replacing a hand-rolled map plus a second mutex.
var encodingCache, _ = lru.New[string, *tiktoken.Tiktoken](maxCachedEncodings)

// TokenCounter gives accurate per-model token counts, used by an Agent to
// enforce ContextLength against its running conversation. Once constructed
// its encoding is fixed, so a *TokenCounter is safe to share across
// goroutines without its own locking.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
}

// NewTokenCounter creates a counter for the given model, falling back to
// cl100k_base when the model isn't recognized by tiktoken-go. Encodings are
// resolved once per model name and reused from encodingCache afterward.
func NewTokenCounter(model string) (*TokenCounter, error) {
	if encoding, ok := encodingCache.Get(model); ok {
		return &TokenCounter{encoding: encoding, model: model}, nil
	}

	encoding, err := resolveEncoding(model)
	if err != nil {
		return nil, err
	}

	encodingCache.Add(model, encoding)
	return &TokenCounter{encoding: encoding, model: model}, nil
}

// resolveEncoding looks up model's native tiktoken encoding and falls back
// to cl100k_base (GPT-4/3.5's encoding) for models tiktoken-go doesn't know.
func resolveEncoding(model string) (*tiktoken.Tiktoken, error) {
	if encoding, err := tiktoken.EncodingForModel(model); err == nil {
		return encoding, nil
	}
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("resolve token encoding for %q: %w", model, err)
	}
	return encoding, nil
}

// Count returns the token count for a single string.
func (tc *TokenCounter) Count(text string) int {
	return len(tc.encoding.Encode(text, nil, nil))
}

// CountPair counts a role+content turn, including the fixed per-message
// overhead OpenAI's chat format imposes.
func (tc *TokenCounter) CountPair(role, content string) int {
	const tokensPerMessage = 3
	return tokensPerMessage + len(tc.encoding.Encode(role, nil, nil)) + len(tc.encoding.Encode(content, nil, nil))
}

// EstimateTokens provides a rough character-based estimate for call sites
// with no model context to build a TokenCounter from.
func EstimateTokens(text string) int {
	return len(text) / 4
}
