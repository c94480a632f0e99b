// Package automatch implements the optional "auto" swarm-type selector:
// given a catalog of topology descriptions and an embedding backend, pick
// the catalog entry whose description is closest to a task by cosine
// similarity. With no embedder configured it falls back to
// SequentialWorkflow, matching the teacher's non-behavioral default for an
// unresolved capability (component/manager.go's embedder wiring).
package automatch

import (
	"context"
	"fmt"
	"math"
	"time"
)

// FallbackSwarmType is returned by AutoSelect when no Embedder is wired.
const FallbackSwarmType = "SequentialWorkflow"

// Embedder turns text into a vector. llm.OllamaProvider's embedding
// endpoint and memory.QdrantMemory's embedder both satisfy this shape.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Entry is one selectable swarm type in the catalog.
type Entry struct {
	TypeName    string
	Description string
}

// MatchError is the standard error type for matcher construction and selection failures.
type MatchError struct {
	Component string
	Operation string
	Message   string
	Err       error
	Timestamp time.Time
}

func (e *MatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Operation, e.Message)
}

func (e *MatchError) Unwrap() error { return e.Err }

func newMatchError(operation, message string, err error) *MatchError {
	return &MatchError{Component: "Matcher", Operation: operation, Message: message, Err: err, Timestamp: time.Now()}
}

// DefaultCatalog lists the swarm types a Matcher chooses among absent any
// caller-supplied catalog, one entry per router swarm-type tag.
var DefaultCatalog = []Entry{
	{TypeName: "SequentialWorkflow", Description: "run agents one after another, each consuming the previous agent's output"},
	{TypeName: "ConcurrentWorkflow", Description: "run every agent in parallel on the same independent task"},
	{TypeName: "AgentRearrange", Description: "run agents in a custom flow of sequential and parallel stages, with optional human-in-the-loop stages"},
	{TypeName: "RoundRobinSwarm", Description: "cycle through agents repeatedly, each consuming the prior agent's output, for a fixed number of passes"},
	{TypeName: "TaskQueueSwarm", Description: "distribute a queue of independent tasks across a worker pool of agents"},
	{TypeName: "SpreadSheetSwarm", Description: "run every agent against every row of a tabular dataset and collect a results grid"},
	{TypeName: "GraphWorkflow", Description: "run agents and tasks as nodes in a dependency graph, executed in topological order"},
	{TypeName: "HierarchicalAgentSwarm", Description: "have a director agent plan and dispatch subtasks to specialist worker agents"},
	{TypeName: "GroupChat", Description: "hold a multi-turn dialogue among agents who take turns speaking"},
}

// Matcher selects a swarm type for a task against a catalog of candidates.
type Matcher struct {
	Catalog []Entry
	Embed   Embedder
}

// New constructs a Matcher. An empty catalog defaults to DefaultCatalog; a
// nil Embedder makes AutoSelect always return FallbackSwarmType.
func New(catalog []Entry, embed Embedder) (*Matcher, error) {
	if len(catalog) == 0 {
		catalog = DefaultCatalog
	}
	for _, entry := range catalog {
		if entry.TypeName == "" {
			return nil, newMatchError("New", "catalog entry is missing a type name", nil)
		}
	}
	return &Matcher{Catalog: catalog, Embed: embed}, nil
}

// AutoSelect embeds task and the catalog's descriptions and returns the
// TypeName of the closest match by cosine similarity. With no Embedder
// configured, or when the task itself cannot be embedded, it returns
// FallbackSwarmType rather than failing the caller's dispatch; a catalog
// entry whose description cannot be embedded is skipped.
func (m *Matcher) AutoSelect(ctx context.Context, task string) (string, error) {
	if m.Embed == nil || len(m.Catalog) == 0 {
		return FallbackSwarmType, nil
	}

	taskVec, err := m.Embed.Embed(ctx, task)
	if err != nil {
		return FallbackSwarmType, nil
	}

	best := FallbackSwarmType
	bestScore := math.Inf(-1)
	for _, entry := range m.Catalog {
		vec, err := m.Embed.Embed(ctx, entry.Description)
		if err != nil {
			continue
		}
		score := cosineSimilarity(taskVec, vec)
		if score > bestScore {
			bestScore = score
			best = entry.TypeName
		}
	}
	return best, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return math.Inf(-1)
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
