package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffCaps(t *testing.T) {
	cases := []struct {
		name    string
		base    time.Duration
		attempt int
		want    time.Duration
	}{
		{"zero base", 0, 3, 0},
		{"first attempt", time.Second, 0, time.Second},
		{"doubles", time.Second, 2, 4 * time.Second},
		{"caps at 10s", 5 * time.Second, 5, Cap},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Backoff(c.base, c.attempt))
		})
	}
}

func TestDoSucceedsWithoutRetry(t *testing.T) {
	calls := 0
	out, err := Do(context.Background(), "test", 3, 0, func(attempt int) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	_, err := Do(context.Background(), "llm", 3, 0, func(attempt int) (string, error) {
		calls++
		return "", boom
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	var retryErr *RetryError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, 3, retryErr.Attempts)
	assert.ErrorIs(t, err, boom)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Do(ctx, "llm", 3, time.Second, func(attempt int) (string, error) {
		return "", errors.New("boom")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
