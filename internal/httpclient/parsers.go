package httpclient

import (
	"fmt"
	"net/http"
	"time"
)

// ParseOpenAIRateLimitHeaders reads OpenAI's x-ratelimit-* response headers
// into a RateLimitInfo the caller's backoff policy can consult.
func ParseOpenAIRateLimitHeaders(headers http.Header) RateLimitInfo {
	var info RateLimitInfo

	if retryAfter := headers.Get("Retry-After"); retryAfter != "" {
		if d, err := time.ParseDuration(retryAfter + "s"); err == nil {
			info.RetryAfter = d
		}
	}

	switch {
	case headers.Get("x-ratelimit-reset-requests") != "":
		fmt.Sscanf(headers.Get("x-ratelimit-reset-requests"), "%d", &info.ResetTime)
	case headers.Get("x-ratelimit-reset-tokens") != "":
		fmt.Sscanf(headers.Get("x-ratelimit-reset-tokens"), "%d", &info.ResetTime)
	}

	if remaining := headers.Get("x-ratelimit-remaining-requests"); remaining != "" {
		fmt.Sscanf(remaining, "%d", &info.RequestsRemaining)
	}
	if remaining := headers.Get("x-ratelimit-remaining-tokens"); remaining != "" {
		fmt.Sscanf(remaining, "%d", &info.TokensRemaining)
	}

	return info
}

// ParseAnthropicRateLimitHeaders reads Anthropic's anthropic-ratelimit-*
// response headers into a RateLimitInfo the caller's backoff policy can
// consult.
func ParseAnthropicRateLimitHeaders(headers http.Header) RateLimitInfo {
	var info RateLimitInfo

	if retryAfter := headers.Get("retry-after"); retryAfter != "" {
		if d, err := time.ParseDuration(retryAfter + "s"); err == nil {
			info.RetryAfter = d
		}
	}

	if resetStr := headers.Get("anthropic-ratelimit-requests-reset"); resetStr != "" {
		if t, err := time.Parse(time.RFC3339, resetStr); err == nil {
			info.ResetTime = t.Unix()
		}
	}

	if remaining := headers.Get("anthropic-ratelimit-requests-remaining"); remaining != "" {
		fmt.Sscanf(remaining, "%d", &info.RequestsRemaining)
	}
	if remaining := headers.Get("anthropic-ratelimit-input-tokens-remaining"); remaining != "" {
		fmt.Sscanf(remaining, "%d", &info.InputTokensRemaining)
	}
	if remaining := headers.Get("anthropic-ratelimit-output-tokens-remaining"); remaining != "" {
		fmt.Sscanf(remaining, "%d", &info.OutputTokensRemaining)
	}

	return info
}
