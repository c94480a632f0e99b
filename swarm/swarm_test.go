package swarm

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmkit/swarmkit/agent"
	"github.com/swarmkit/swarmkit/llm"
)

type stubLLM struct{}

func (stubLLM) Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	return "ok", nil
}

func newStubAgent(t *testing.T, name string) *agent.Agent {
	t.Helper()
	a, err := agent.New(agent.Config{Name: name, LLM: stubLLM{}, MaxLoops: "1", MaxTokens: 10, ContextLength: 10})
	require.NoError(t, err)
	return a
}

func TestReliabilityCheckRejectsEmptyAgents(t *testing.T) {
	b := &Base{Name: "S", Description: "d", MaxLoops: 1}
	require.Error(t, b.ReliabilityCheck())
}

func TestReliabilityCheckRejectsZeroMaxLoops(t *testing.T) {
	b := &Base{Name: "S", Description: "d", Agents: []*agent.Agent{newStubAgent(t, "A")}, MaxLoops: 0}
	require.Error(t, b.ReliabilityCheck())
}

func TestReliabilityCheckRejectsEmptyNameOrDescription(t *testing.T) {
	b := &Base{Name: "", Description: "d", Agents: []*agent.Agent{newStubAgent(t, "A")}, MaxLoops: 1}
	require.Error(t, b.ReliabilityCheck())
}

func TestReliabilityCheckPasses(t *testing.T) {
	b := &Base{Name: "S", Description: "d", Agents: []*agent.Agent{newStubAgent(t, "A")}, MaxLoops: 1}
	require.NoError(t, b.ReliabilityCheck())
}

func TestAgentByName(t *testing.T) {
	a := newStubAgent(t, "A")
	b := &Base{Agents: []*agent.Agent{a}}
	assert.Same(t, a, b.AgentByName("A"))
	assert.Nil(t, b.AgentByName("missing"))
}

func TestFormatOutputTypeVariants(t *testing.T) {
	outputs := []AgentOutput{{AgentName: "A", Output: "x"}, {AgentName: "B", Output: "y"}}
	assert.Equal(t, "x\ny", FormatOutputType(OutputAll, outputs))
	assert.Equal(t, []string{"x", "y"}, FormatOutputType(OutputList, outputs))
	assert.Equal(t, map[string]string{"A": "x", "B": "y"}, FormatOutputType(OutputDict, outputs))
	assert.Equal(t, "y", FormatOutputType(OutputFinal, outputs))
}

func TestAppendCSVRowWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/out.csv"
	require.NoError(t, AppendCSVRow(path, "run1", AgentOutput{AgentName: "A", Task: "t", Output: "r"}))
	require.NoError(t, AppendCSVRow(path, "run1", AgentOutput{AgentName: "B", Task: "t", Output: "r2"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "RunId,AgentName,Task,Result,Timestamp")
	assert.Equal(t, 1, countOccurrences(content, "RunId,AgentName,Task,Result,Timestamp"))
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}

func TestRunMetadataAddTracksCounts(t *testing.T) {
	m := NewRunMetadata("Sequential", "task")
	m.Add(AgentOutput{AgentName: "A", Output: "ok"})
	m.Add(AgentOutput{AgentName: "B", Error: "boom"})
	m.Finish()
	assert.Equal(t, 1, m.TasksDone)
	assert.Equal(t, 1, m.TasksFail)
	assert.Len(t, m.Outputs, 2)
}

func TestSaveJSON(t *testing.T) {
	m := NewRunMetadata("Concurrent", "task")
	m.Add(AgentOutput{AgentName: "A", Output: "ok"})
	path := t.TempDir() + "/metadata.json"
	require.NoError(t, m.SaveJSON(path))
	_, err := os.Stat(path)
	require.NoError(t, err)
}
