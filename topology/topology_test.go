package topology

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmkit/swarmkit/agent"
	"github.com/swarmkit/swarmkit/llm"
	"github.com/swarmkit/swarmkit/swarm"
)

// fnLLM calls fn(lastUserMessage) on every Complete.
type fnLLM struct {
	fn func(lastUserMessage string) (string, error)
}

func (f fnLLM) Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return f.fn(last)
}

func newAgent(t *testing.T, name string, fn func(lastUserMessage string) (string, error)) *agent.Agent {
	t.Helper()
	a, err := agent.New(agent.Config{
		Name: name, LLM: fnLLM{fn: fn}, MaxLoops: "1", MaxTokens: 100, ContextLength: 100,
	})
	require.NoError(t, err)
	return a
}

// Scenario 1 (spec.md §8): sequential passthrough.
func TestSequentialPassthrough(t *testing.T) {
	a := newAgent(t, "A", func(last string) (string, error) { return "A saw: hello", nil })
	b := newAgent(t, "B", func(last string) (string, error) { return "B saw: " + lastLine(last), nil })

	base := swarm.Base{Name: "S", Description: "d", Agents: []*agent.Agent{a, b}, MaxLoops: 1}
	seq, err := NewSequential(base)
	require.NoError(t, err)

	out, _, err := seq.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "B saw: A saw: hello", out)
}

// lastLine extracts the final line of a rendered conversation to simulate
// the mock agent reading the task it was actually given.
func lastLine(rendered string) string {
	// our mock agents receive a rendered conversation, not the bare task,
	// since agent.Agent sends ShortMemory.Render() as the prompt. Take the
	// last non-empty line and return what follows its first ": ".
	lines := splitNonEmpty(rendered)
	if len(lines) == 0 {
		return rendered
	}
	line := lines[len(lines)-1]
	if idx := indexOf(line, ": "); idx >= 0 {
		return line[idx+2:]
	}
	return line
}

func splitNonEmpty(s string) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if r == '\n' {
			if cur != "" {
				out = append(out, cur)
			}
			cur = ""
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// Scenario 2: concurrent fan-out.
func TestConcurrentFanOut(t *testing.T) {
	a1 := newAgent(t, "Agent1", func(string) (string, error) { return "Agent1", nil })
	a2 := newAgent(t, "Agent2", func(string) (string, error) { return "Agent2", nil })
	a3 := newAgent(t, "Agent3", func(string) (string, error) { return "Agent3", nil })

	base := swarm.Base{Name: "S", Description: "d", Agents: []*agent.Agent{a1, a2, a3}, MaxLoops: 1, OutputType: swarm.OutputAll}
	c, err := NewConcurrent(base)
	require.NoError(t, err)

	_, metadata, err := c.Run(context.Background(), "t")
	require.NoError(t, err)
	assert.Len(t, metadata.Outputs, 3)
	assert.Equal(t, 3, metadata.TasksDone)

	names := map[string]bool{}
	for _, o := range metadata.Outputs {
		names[o.Output] = true
	}
	assert.Equal(t, map[string]bool{"Agent1": true, "Agent2": true, "Agent3": true}, names)
}

func TestConcurrentPartialFailureDoesNotCancelPeers(t *testing.T) {
	ok := newAgent(t, "A", func(string) (string, error) { return "ok", nil })
	fails, err := agent.New(agent.Config{Name: "B", LLM: fnLLM{fn: func(string) (string, error) { return "", assertErr }}, MaxLoops: "1", MaxTokens: 100, ContextLength: 100, RetryAttempts: 1})
	require.NoError(t, err)

	base := swarm.Base{Name: "S", Description: "d", Agents: []*agent.Agent{ok, fails}, MaxLoops: 1, OutputType: swarm.OutputAll}
	c, err := NewConcurrent(base)
	require.NoError(t, err)

	_, metadata, err := c.Run(context.Background(), "t")
	require.NoError(t, err)
	require.Len(t, metadata.Outputs, 2)
	failCount := 0
	for _, o := range metadata.Outputs {
		if o.Error != "" {
			failCount++
		}
	}
	assert.Equal(t, 1, failCount)
}

var assertErr = errTest("boom")

type errTest string

func (e errTest) Error() string { return string(e) }

// Scenario 3 (adapted): RoundRobin doubling.
func TestRoundRobinDoubling(t *testing.T) {
	double := func(last string) (string, error) { return lastLine(last) + lastLine(last), nil }
	a := newAgent(t, "A", double)
	b := newAgent(t, "B", double)

	base := swarm.Base{Name: "S", Description: "d", Agents: []*agent.Agent{a, b}, MaxLoops: 2}
	rr, err := NewRoundRobin(base)
	require.NoError(t, err)

	out, _, err := rr.Run(context.Background(), "x")
	require.NoError(t, err)
	// 2 passes x 2 agents = 4 doublings: 1 -> 2 -> 4 -> 8 -> 16 chars.
	assert.Equal(t, 16, len(out.(string)))
}

// Scenario 6: cycle rejection.
func TestGraphCycleRejected(t *testing.T) {
	g := NewGraph("G", "d")
	require.NoError(t, g.AddNode(Node{ID: "1", Type: NodeTask, Task: func(ctx context.Context, in map[string]string) (string, error) { return "1", nil }}))
	require.NoError(t, g.AddNode(Node{ID: "2", Type: NodeTask, Task: func(ctx context.Context, in map[string]string) (string, error) { return "2", nil }}))
	require.NoError(t, g.AddNode(Node{ID: "3", Type: NodeTask, Task: func(ctx context.Context, in map[string]string) (string, error) { return "3", nil }}))

	require.NoError(t, g.AddEdge("1", "2"))
	require.NoError(t, g.AddEdge("2", "3"))
	err := g.AddEdge("3", "1")
	require.Error(t, err)
}

func TestGraphTopologicalExecution(t *testing.T) {
	g := NewGraph("G", "d")
	var order []string
	mk := func(id string) TaskFn {
		return func(ctx context.Context, in map[string]string) (string, error) {
			order = append(order, id)
			return id, nil
		}
	}
	require.NoError(t, g.AddNode(Node{ID: "1", Type: NodeTask, Task: mk("1")}))
	require.NoError(t, g.AddNode(Node{ID: "2", Type: NodeTask, Task: mk("2")}))
	require.NoError(t, g.AddNode(Node{ID: "3", Type: NodeTask, Task: mk("3")}))
	require.NoError(t, g.AddEdge("1", "2"))
	require.NoError(t, g.AddEdge("2", "3"))
	require.NoError(t, g.SetEntryPoints("1"))
	require.NoError(t, g.SetEndPoints("3"))

	results, _, err := g.Run(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, order)
	assert.Equal(t, "3", results["3"])
}

// Scenario 4: flow DSL with parallel + human stage.
func TestRearrangeParallelAndHumanStage(t *testing.T) {
	a := newAgent(t, "A", func(string) (string, error) { return "a-out", nil })
	b := newAgent(t, "B", func(string) (string, error) { return "b-out", nil })
	c := newAgent(t, "C", func(last string) (string, error) { return "C from " + lastLine(last), nil })

	base := swarm.Base{Name: "S", Description: "d", Agents: []*agent.Agent{a, b, c}, MaxLoops: 1, OutputType: swarm.OutputFinal}
	humanCallback := func(ctx context.Context, current string) (string, error) { return "override", nil }

	r, err := NewRearrange(base, "A, B -> H -> C", humanCallback, nil)
	require.NoError(t, err)

	out, metadata, err := r.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "C from override", out)

	var aOut, bOut bool
	for _, o := range metadata.Outputs {
		if o.AgentName == "A" {
			aOut = true
		}
		if o.AgentName == "B" {
			bOut = true
		}
	}
	assert.True(t, aOut)
	assert.True(t, bOut)
}

func TestFlowValidatorRejectsUnregisteredParticipant(t *testing.T) {
	a := newAgent(t, "A", func(string) (string, error) { return "ok", nil })
	base := swarm.Base{Name: "S", Description: "d", Agents: []*agent.Agent{a}, MaxLoops: 1}
	_, err := NewRearrange(base, "A -> Ghost", nil, nil)
	require.Error(t, err)
}

func TestHierarchicalDispatch(t *testing.T) {
	director := newAgent(t, "Director", func(string) (string, error) {
		return `{"orders":[{"agentName":"Worker1","task":"do x"},{"agentName":"Worker2","task":"do y"}]}`, nil
	})
	w1 := newAgent(t, "Worker1", func(string) (string, error) { return "x done", nil })
	w2 := newAgent(t, "Worker2", func(string) (string, error) { return "y done", nil })

	h, err := NewHierarchical(director, []*agent.Agent{w1, w2})
	require.NoError(t, err)

	out, metadata, err := h.Run(context.Background(), "task")
	require.NoError(t, err)
	assert.Contains(t, out.(string), "x done")
	assert.Contains(t, out.(string), "y done")
	assert.Len(t, metadata.Outputs, 2)
}

func TestExpertiseSpeakerMatchesSystemPromptKeyword(t *testing.T) {
	weather, err := agent.New(agent.Config{
		Name: "WeatherBot", LLM: fnLLM{fn: func(string) (string, error) { return "ok", nil }},
		MaxLoops: "1", MaxTokens: 100, ContextLength: 100,
		SystemPrompt: "You are a weather forecasting expert.",
	})
	require.NoError(t, err)

	assert.True(t, ExpertiseSpeaker(nil, weather), "no history yet: everyone gets a turn")

	onTopic := []Message{{Content: "What is tomorrow's weather forecast?"}}
	assert.True(t, ExpertiseSpeaker(onTopic, weather))

	offTopic := []Message{{Content: "Can you review this pull request?"}}
	assert.False(t, ExpertiseSpeaker(offTopic, weather))
}

func TestGroupChatRoundRobin(t *testing.T) {
	a := newAgent(t, "A", func(string) (string, error) { return "hi from A", nil })
	b := newAgent(t, "B", func(string) (string, error) { return "hi from B", nil })

	base := swarm.Base{Name: "S", Description: "d", Agents: []*agent.Agent{a, b}, MaxLoops: 2}
	gc, err := NewGroupChat(base, RoundRobinSpeaker)
	require.NoError(t, err)

	turns, _, err := gc.Run(context.Background(), "discuss")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Len(t, turns[0].Responses, 2)
}

func TestTaskQueueDrainsAllTasks(t *testing.T) {
	a := newAgent(t, "A", func(string) (string, error) { return "done", nil })
	base := swarm.Base{Name: "S", Description: "d", Agents: []*agent.Agent{a}, MaxLoops: 1}
	tq, err := NewTaskQueue(base)
	require.NoError(t, err)

	metadata, err := tq.Enqueue(context.Background(), []string{"t1", "t2", "t3"})
	require.NoError(t, err)
	assert.Len(t, metadata.Outputs, 3)
}

func TestSpreadSheetRunsAllRows(t *testing.T) {
	a := newAgent(t, "A", func(string) (string, error) { return "out-a", nil })
	b := newAgent(t, "B", func(string) (string, error) { return "out-b", nil })
	base := swarm.Base{Name: "S", Description: "d", Agents: []*agent.Agent{a, b}, MaxLoops: 1}

	ss, err := NewSpreadSheet(base, "fixed task")
	require.NoError(t, err)
	dir := t.TempDir()
	ss.CSVPath = dir + "/out.csv"
	ss.JSONPath = dir + "/out.json"

	metadata, err := ss.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, metadata.Outputs, 2)
}
