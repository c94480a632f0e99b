package topology

import (
	"context"

	"github.com/swarmkit/swarmkit/flow"
	"github.com/swarmkit/swarmkit/swarm"
)

// Sequential runs agents in strict declaration order, each stage's output
// feeding the next stage's task, per spec.md §4.3. It is implemented as an
// AgentRearrange over the derived flow "A -> B -> C -> ..." in
// agent-declaration order.
type Sequential struct {
	*Rearrange
}

// NewSequential builds the single-participant-per-stage flow from base.Agents
// in declaration order and wraps it in a Rearrange.
func NewSequential(base swarm.Base) (*Sequential, error) {
	if err := base.ReliabilityCheck(); err != nil {
		return nil, err
	}
	rawFlow := flow.Sequential(base.AgentNames())
	r, err := NewRearrange(base, rawFlow, nil, nil)
	if err != nil {
		return nil, err
	}
	r.OutputType = swarm.OutputFinal
	return &Sequential{Rearrange: r}, nil
}

// RunBatched runs tasks serially over the same agent chain.
func (s *Sequential) RunBatched(ctx context.Context, tasks []string) ([]interface{}, error) {
	return s.Rearrange.RunBatched(ctx, tasks)
}

// RunConcurrent runs tasks in parallel; each task still runs its agents
// sequentially.
func (s *Sequential) RunConcurrent(ctx context.Context, tasks []string) []interface{} {
	return s.Rearrange.RunConcurrent(ctx, tasks)
}
