package topology

import (
	"context"
	"time"

	"github.com/swarmkit/swarmkit/agent"
	"github.com/swarmkit/swarmkit/swarm"
)

// NodeType distinguishes an agent node from an arbitrary-callable task node.
type NodeType int

const (
	NodeAgent NodeType = iota
	NodeTask
)

// TaskFn is the callable a NodeTask node invokes, receiving the accumulated
// results of its predecessors and returning its own output.
type TaskFn func(ctx context.Context, inputs map[string]string) (string, error)

// Node is one vertex in the DAG: either an Agent or an arbitrary callable.
type Node struct {
	ID    string
	Type  NodeType
	Agent *agent.Agent
	Task  TaskFn
}

// Graph is a DAG of agent and task nodes with declared entry/end points,
// per spec.md §4.8. Cycle detection runs at construction and on every
// edge-add.
type Graph struct {
	Name        string
	Description string
	Nodes       map[string]Node
	Edges       map[string][]string // src -> []dst
	EntryPoints []string
	EndPoints   []string
}

// NewGraph constructs an empty Graph.
func NewGraph(name, description string) *Graph {
	return &Graph{
		Name:        name,
		Description: description,
		Nodes:       make(map[string]Node),
		Edges:       make(map[string][]string),
	}
}

// AddNode registers a node, rejecting duplicate ids.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return NewError("Graph", "AddNode", "node id is required", nil)
	}
	if _, exists := g.Nodes[n.ID]; exists {
		return NewError("Graph", "AddNode", "duplicate node id "+n.ID, nil)
	}
	g.Nodes[n.ID] = n
	return nil
}

// AddEdge adds a directed edge src->dst over two already-registered node
// ids, rejecting an edge that would close a cycle.
func (g *Graph) AddEdge(src, dst string) error {
	if _, ok := g.Nodes[src]; !ok {
		return NewError("Graph", "AddEdge", "unknown source node "+src, nil)
	}
	if _, ok := g.Nodes[dst]; !ok {
		return NewError("Graph", "AddEdge", "unknown destination node "+dst, nil)
	}
	g.Edges[src] = append(g.Edges[src], dst)
	if _, err := g.topoOrder(); err != nil {
		// Roll back: an edge that closes a cycle is never added.
		g.Edges[src] = g.Edges[src][:len(g.Edges[src])-1]
		return err
	}
	return nil
}

// SetEntryPoints declares the subset of node ids execution may start from.
func (g *Graph) SetEntryPoints(ids ...string) error {
	if len(ids) == 0 {
		return NewError("Graph", "SetEntryPoints", "entry points must be non-empty", nil)
	}
	for _, id := range ids {
		if _, ok := g.Nodes[id]; !ok {
			return NewError("Graph", "SetEntryPoints", "unknown node "+id, nil)
		}
	}
	g.EntryPoints = ids
	return nil
}

// SetEndPoints declares the subset of node ids that terminate execution.
func (g *Graph) SetEndPoints(ids ...string) error {
	if len(ids) == 0 {
		return NewError("Graph", "SetEndPoints", "end points must be non-empty", nil)
	}
	for _, id := range ids {
		if _, ok := g.Nodes[id]; !ok {
			return NewError("Graph", "SetEndPoints", "unknown node "+id, nil)
		}
	}
	g.EndPoints = ids
	return nil
}

// topoOrder returns any valid topological order over the graph's nodes, or
// an error if a cycle is present (Kahn's algorithm).
func (g *Graph) topoOrder() ([]string, error) {
	indegree := make(map[string]int, len(g.Nodes))
	for id := range g.Nodes {
		indegree[id] = 0
	}
	for _, dsts := range g.Edges {
		for _, dst := range dsts {
			indegree[dst]++
		}
	}

	queue := make([]string, 0)
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(g.Nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, dst := range g.Edges[id] {
			indegree[dst]--
			if indegree[dst] == 0 {
				queue = append(queue, dst)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		return nil, NewError("Graph", "topoOrder", "cycle detected in graph", nil)
	}
	return order, nil
}

// Run executes nodes in topological order: an agent node calls
// Agent.Run(task) with its predecessors' joined outputs as the task, a task
// node invokes its callable with a map of predecessor id -> output.
// Results are collected into a map keyed by node id.
func (g *Graph) Run(ctx context.Context, task string) (map[string]string, *swarm.RunMetadata, error) {
	order, err := g.topoOrder()
	if err != nil {
		return nil, nil, err
	}

	predecessors := make(map[string][]string)
	for src, dsts := range g.Edges {
		for _, dst := range dsts {
			predecessors[dst] = append(predecessors[dst], src)
		}
	}

	metadata := swarm.NewRunMetadata("GraphWorkflow", task)
	results := make(map[string]string, len(order))
	entrySet := make(map[string]bool, len(g.EntryPoints))
	for _, id := range g.EntryPoints {
		entrySet[id] = true
	}

	for _, id := range order {
		node := g.Nodes[id]
		inputs := make(map[string]string, len(predecessors[id]))
		for _, p := range predecessors[id] {
			inputs[p] = results[p]
		}

		nodeTask := task
		if !entrySet[id] && len(inputs) > 0 {
			nodeTask = joinInputs(inputs)
		}

		start := time.Now()
		var out string
		var runErr error
		switch node.Type {
		case NodeAgent:
			var raw interface{}
			raw, runErr = node.Agent.Run(ctx, nodeTask)
			if runErr == nil {
				out = asString(raw)
			}
		case NodeTask:
			out, runErr = node.Task(ctx, inputs)
		}

		ao := swarm.AgentOutput{AgentName: id, Task: nodeTask, StartTime: start, EndTime: time.Now()}
		if runErr != nil {
			ao.Error = runErr.Error()
			ao.DurationS = ao.EndTime.Sub(ao.StartTime).Seconds()
			metadata.Add(ao)
			metadata.Finish()
			return results, metadata, NewError("Graph", "Run", "node "+id+" failed", runErr)
		}
		ao.Output = out
		ao.DurationS = ao.EndTime.Sub(ao.StartTime).Seconds()
		metadata.Add(ao)
		results[id] = out
	}

	metadata.Finish()
	return results, metadata, nil
}

func joinInputs(inputs map[string]string) string {
	out := ""
	first := true
	for _, v := range inputs {
		if !first {
			out += "\n"
		}
		out += v
		first = false
	}
	return out
}
