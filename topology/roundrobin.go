package topology

import (
	"context"
	"encoding/json"
	"time"

	"github.com/swarmkit/swarmkit/swarm"
)

// RoundRobinCallback is invoked once per loop with the loop index (0-based)
// and the result produced so far.
type RoundRobinCallback func(loopIndex int, currentResult string)

// RoundRobin feeds the current result through every agent in declaration
// order, once per pass, per spec.md §4.5. Every Run starts at the first
// agent.
type RoundRobin struct {
	swarm.Base
	Callback RoundRobinCallback
}

// NewRoundRobin validates base and returns a RoundRobin executor.
func NewRoundRobin(base swarm.Base) (*RoundRobin, error) {
	if err := base.ReliabilityCheck(); err != nil {
		return nil, err
	}
	return &RoundRobin{Base: base}, nil
}

// Run executes MaxLoops passes, each pass feeding the current result
// through every agent in declaration order.
func (r *RoundRobin) Run(ctx context.Context, task string) (interface{}, *swarm.RunMetadata, error) {
	metadata := swarm.NewRunMetadata("RoundRobinSwarm", task)
	current := task

	for loop := 0; loop < r.Base.MaxLoops; loop++ {
		for _, a := range r.Base.Agents {
			select {
			case <-ctx.Done():
				metadata.Finish()
				return nil, metadata, ctx.Err()
			default:
			}
			start := time.Now()
			out, err := a.Run(ctx, current)
			ao := swarm.AgentOutput{AgentName: a.Name, Task: current, StartTime: start, EndTime: time.Now()}
			if err != nil {
				ao.Error = err.Error()
				ao.DurationS = ao.EndTime.Sub(ao.StartTime).Seconds()
				metadata.Add(ao)
				metadata.Finish()
				return nil, metadata, NewError("RoundRobin", "Run", "agent "+a.Name+" failed", err)
			}
			ao.Output = asString(out)
			ao.DurationS = ao.EndTime.Sub(ao.StartTime).Seconds()
			metadata.Add(ao)
			current = ao.Output
		}
		if r.Callback != nil {
			r.Callback(loop, current)
		}
	}
	metadata.Finish()

	if r.Base.OutputType == swarm.OutputJSON || r.Base.OutputType == swarm.OutputDict {
		data, _ := json.Marshal(metadata)
		return string(data), metadata, nil
	}
	return current, metadata, nil
}
