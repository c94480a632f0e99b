package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmkit/swarmkit/conversation"
	"github.com/swarmkit/swarmkit/llm"
)

// echoLLM returns a fixed transform of the last user message, counting calls.
type echoLLM struct {
	calls int
	fn    func(calls int, messages []llm.Message) (string, error)
}

func (e *echoLLM) Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	e.calls++
	return e.fn(e.calls, messages)
}

func newTestAgent(t *testing.T, name string, llmImpl llm.Provider, maxLoops string) *Agent {
	t.Helper()
	a, err := New(Config{
		Name:          name,
		LLM:           llmImpl,
		MaxLoops:      maxLoops,
		MaxTokens:     1000,
		ContextLength: 4000,
		RetryAttempts: 3,
		RetryInterval: 0,
	})
	require.NoError(t, err)
	return a
}

func TestNewRejectsMissingLLM(t *testing.T) {
	_, err := New(Config{Name: "A", MaxLoops: "1", MaxTokens: 100, ContextLength: 100})
	require.Error(t, err)
}

func TestNewRejectsZeroMaxTokens(t *testing.T) {
	_, err := New(Config{Name: "A", LLM: &echoLLM{}, MaxLoops: "1", ContextLength: 100})
	require.Error(t, err)
}

func TestNewRejectsInvalidMaxLoops(t *testing.T) {
	_, err := New(Config{Name: "A", LLM: &echoLLM{}, MaxLoops: "0", MaxTokens: 10, ContextLength: 10})
	require.Error(t, err)
}

// Scenario 1 variant: single agent run, exactly one LLM call for MaxLoops=1.
func TestRunMaxLoopsOneCallsOnce(t *testing.T) {
	impl := &echoLLM{fn: func(calls int, messages []llm.Message) (string, error) {
		return "A saw: hello", nil
	}}
	a := newTestAgent(t, "A", impl, "1")
	out, err := a.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "A saw: hello", out)
	assert.Equal(t, 1, impl.calls)
}

// Scenario from spec.md §8: MaxLoops="auto" with stop token in first response
// yields exactly one LLM call.
func TestRunAutoStopsOnStoppingToken(t *testing.T) {
	impl := &echoLLM{fn: func(calls int, messages []llm.Message) (string, error) {
		return "done <DONE>", nil
	}}
	a := newTestAgent(t, "A", impl, AutoLoops)
	a.StoppingToken = "done"
	out, err := a.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "done <DONE>", out)
	assert.Equal(t, 1, impl.calls)
}

func TestRunAutoStopsOnDoneConvention(t *testing.T) {
	impl := &echoLLM{fn: func(calls int, messages []llm.Message) (string, error) {
		return "finished up <DONE>", nil
	}}
	a := newTestAgent(t, "A", impl, AutoLoops)
	out, err := a.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "finished up <DONE>", out)
	assert.Equal(t, 1, impl.calls)
}

// Scenario 5: retry exhaustion. Exactly RetryAttempts calls, error surfaced.
func TestRunRetryExhaustion(t *testing.T) {
	impl := &echoLLM{fn: func(calls int, messages []llm.Message) (string, error) {
		return "", errors.New("boom")
	}}
	a := newTestAgent(t, "A", impl, "1")
	a.RetryAttempts = 3
	out, err := a.Run(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, 3, impl.calls)
	assert.Equal(t, "", out) // no agent turn appended after the failing loop
}

func TestRunStoppingConditionPredicate(t *testing.T) {
	impl := &echoLLM{fn: func(calls int, messages []llm.Message) (string, error) {
		return "STOP NOW", nil
	}}
	a := newTestAgent(t, "A", impl, AutoLoops)
	a.StoppingCondition = func(output string) bool { return output == "STOP NOW" }
	_, err := a.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, impl.calls)
}

func TestRunOutputTypeListMatchesStringJoin(t *testing.T) {
	loop := 0
	impl := &echoLLM{fn: func(calls int, messages []llm.Message) (string, error) {
		loop++
		if loop >= 2 {
			return "second <DONE>", nil
		}
		return "first", nil
	}}
	aList := newTestAgent(t, "A", impl, AutoLoops)
	aList.OutputType = OutputList
	outList, err := aList.Run(context.Background(), "hello")
	require.NoError(t, err)

	loop = 0
	impl2 := &echoLLM{fn: impl.fn}
	aStr := newTestAgent(t, "B", impl2, AutoLoops)
	aStr.OutputType = OutputString
	outStr, err := aStr.Run(context.Background(), "hello")
	require.NoError(t, err)

	list, ok := outList.([]string)
	require.True(t, ok)
	assert.Equal(t, outStr, joinLines(list))
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

// ShortMemory grows monotonically: one agent turn per loop, user task turn first.
func TestShortMemoryGrowsMonotonically(t *testing.T) {
	impl := &echoLLM{fn: func(calls int, messages []llm.Message) (string, error) {
		return "ok", nil
	}}
	a := newTestAgent(t, "A", impl, "2")
	before := a.ShortMemory.Len()
	_, err := a.Run(context.Background(), "hello")
	require.NoError(t, err)
	after := a.ShortMemory.Len()
	// 1 user turn + 2 agent turns
	assert.Equal(t, before+3, after)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	impl := &echoLLM{fn: func(calls int, messages []llm.Message) (string, error) {
		return "ok", nil
	}}
	a := newTestAgent(t, "A", impl, "1")
	a.SystemPrompt = "be helpful"
	_, err := a.Run(context.Background(), "hello")
	require.NoError(t, err)

	path := t.TempDir() + "/agent.json"
	require.NoError(t, a.Save(path))

	state, err := LoadState(path)
	require.NoError(t, err)

	restored := newTestAgent(t, "A", impl, "1")
	require.NoError(t, restored.Restore(state))

	assert.Equal(t, a.Name, restored.Name)
	assert.Equal(t, a.SystemPrompt, restored.SystemPrompt)
	assert.Equal(t, a.ShortMemory.Len(), restored.ShortMemory.Len())
}

func TestEmptyToolsNeverInvokesToolExecutor(t *testing.T) {
	impl := &echoLLM{fn: func(calls int, messages []llm.Message) (string, error) {
		return `{"name":"whatever","parameters":{}}`, nil
	}}
	a := newTestAgent(t, "A", impl, "1")
	_, err := a.Run(context.Background(), "hello")
	require.NoError(t, err)
	for _, turn := range a.ShortMemory.All() {
		assert.NotEqual(t, conversation.RoleToolExecutor, turn.Role)
	}
}

// A tight ContextLength forces oldest non-system turns out of ShortMemory
// before each LLM call, while the seeded system prompt survives.
func TestRunTrimsShortMemoryToContextLength(t *testing.T) {
	impl := &echoLLM{fn: func(calls int, messages []llm.Message) (string, error) {
		return strings.Repeat("word ", 50), nil
	}}
	a, err := New(Config{
		Name:          "A",
		LLM:           impl,
		SystemPrompt:  "be terse",
		MaxLoops:      "5",
		MaxTokens:     10,
		ContextLength: 60,
		RetryAttempts: 1,
	})
	require.NoError(t, err)

	_, err = a.Run(context.Background(), "hello")
	require.NoError(t, err)

	turns := a.ShortMemory.All()
	require.NotEmpty(t, turns)
	assert.Equal(t, conversation.RoleSystem, turns[0].Role)
	assert.Less(t, a.tokens.Count(a.ShortMemory.Render()), 500)
}

func TestRunRetriesTransientLLMFailure(t *testing.T) {
	impl := &echoLLM{fn: func(calls int, messages []llm.Message) (string, error) {
		if calls < 2 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}}
	a := newTestAgent(t, "A", impl, "1")
	a.RetryInterval = time.Millisecond
	out, err := a.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, impl.calls)
}
