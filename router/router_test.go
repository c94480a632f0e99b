package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmkit/swarmkit/agent"
	"github.com/swarmkit/swarmkit/conversation"
	"github.com/swarmkit/swarmkit/llm"
	"github.com/swarmkit/swarmkit/memory"
	"github.com/swarmkit/swarmkit/swarm"
)

type fnLLM struct {
	fn func(last string) (string, error)
}

func (f fnLLM) Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return f.fn(last)
}

func newAgent(t *testing.T, name string, fn func(string) (string, error)) *agent.Agent {
	t.Helper()
	a, err := agent.New(agent.Config{Name: name, LLM: fnLLM{fn: fn}, MaxLoops: "1", MaxTokens: 100, ContextLength: 100})
	require.NoError(t, err)
	return a
}

func TestRouterDefaultsToSequential(t *testing.T) {
	a := newAgent(t, "A", func(string) (string, error) { return "a-out", nil })
	b := newAgent(t, "B", func(string) (string, error) { return "b-out", nil })
	base := swarm.Base{Name: "S", Description: "d", Agents: []*agent.Agent{a, b}, MaxLoops: 1}

	r, err := New("", base, Policy{})
	require.NoError(t, err)
	assert.Equal(t, TypeSequentialWorkflow, r.SwarmType)

	out, err := r.Run(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "b-out", out)
}

func TestRouterConcurrentDispatch(t *testing.T) {
	a := newAgent(t, "A", func(string) (string, error) { return "a", nil })
	b := newAgent(t, "B", func(string) (string, error) { return "b", nil })
	base := swarm.Base{Name: "S", Description: "d", Agents: []*agent.Agent{a, b}, MaxLoops: 1, OutputType: swarm.OutputAll}

	r, err := New(TypeConcurrentWorkflow, base, Policy{})
	require.NoError(t, err)
	_, err = r.Run(context.Background(), "t")
	require.NoError(t, err)

	logs := r.GetLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, TypeConcurrentWorkflow, logs[0].SwarmType)
}

func TestRouterAppliesRulesAndSharedMemory(t *testing.T) {
	a := newAgent(t, "A", func(string) (string, error) { return "out", nil })
	base := swarm.Base{Name: "S", Description: "d", Agents: []*agent.Agent{a}, MaxLoops: 1}

	shared := memory.NullMemory{}
	r, err := New(TypeSequentialWorkflow, base, Policy{Rules: "Be concise.", SharedMemorySystem: shared})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "t")
	require.NoError(t, err)

	assert.Contains(t, a.SystemPrompt, "Be concise.")
	assert.Contains(t, a.SystemPrompt, RulesMarker)
	assert.Equal(t, shared, a.LongTermMemory)
}

func TestRouterAutoWithoutMatcherFallsBackToSequential(t *testing.T) {
	a := newAgent(t, "A", func(string) (string, error) { return "fallback-out", nil })
	base := swarm.Base{Name: "S", Description: "d", Agents: []*agent.Agent{a}, MaxLoops: 1}

	r, err := New(TypeAuto, base, Policy{})
	require.NoError(t, err)

	out, err := r.Run(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "fallback-out", out)
}

type stubMatcher struct{ selected string }

func (m stubMatcher) AutoSelect(ctx context.Context, task string) (string, error) {
	return m.selected, nil
}

func TestRouterAutoResolvesViaMatcher(t *testing.T) {
	a := newAgent(t, "A", func(string) (string, error) { return "a", nil })
	b := newAgent(t, "B", func(string) (string, error) { return "b", nil })
	base := swarm.Base{Name: "S", Description: "d", Agents: []*agent.Agent{a, b}, MaxLoops: 1, OutputType: swarm.OutputAll}

	r, err := New(TypeAuto, base, Policy{Matcher: stubMatcher{selected: TypeConcurrentWorkflow}})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "t")
	require.NoError(t, err)

	logs := r.GetLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, TypeConcurrentWorkflow, logs[0].SwarmType)
}

func TestRouterUnknownSwarmTypeErrors(t *testing.T) {
	a := newAgent(t, "A", func(string) (string, error) { return "a", nil })
	base := swarm.Base{Name: "S", Description: "d", Agents: []*agent.Agent{a}, MaxLoops: 1}

	r, err := New("NoSuchSwarm", base, Policy{})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "t")
	require.Error(t, err)

	logs := r.GetLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "error", logs[0].Level)
}

func TestRouterRejectsInvalidBase(t *testing.T) {
	base := swarm.Base{Name: "S", Description: "d", Agents: nil, MaxLoops: 1}
	_, err := New(TypeSequentialWorkflow, base, Policy{})
	require.Error(t, err)
}

func TestRouterHierarchicalRequiresDirector(t *testing.T) {
	a := newAgent(t, "A", func(string) (string, error) { return "a", nil })
	base := swarm.Base{Name: "S", Description: "d", Agents: []*agent.Agent{a}, MaxLoops: 1}

	r, err := New(TypeHierarchical, base, Policy{})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "t")
	require.Error(t, err)
}

var _ = conversation.RoleSystem
