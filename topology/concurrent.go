package topology

import (
	"context"
	"sync"
	"time"

	"github.com/swarmkit/swarmkit/swarm"
)

// Concurrent fans the same task out to every agent in parallel and joins at
// the end, per spec.md §4.4. Failure of one agent is recorded in its
// metadata slot and does not cancel peers.
type Concurrent struct {
	swarm.Base
	MetadataPath string // optional: persist RunMetadata as JSON after every run
}

// NewConcurrent validates base and returns a Concurrent executor.
func NewConcurrent(base swarm.Base) (*Concurrent, error) {
	if err := base.ReliabilityCheck(); err != nil {
		return nil, err
	}
	return &Concurrent{Base: base}, nil
}

// Run executes every agent against task in parallel, joining at a barrier
// before returning. The result is shaped per OutputType: "all"/"string"
// joins every output, "list" returns the ordered outputs, "dict" maps
// agent name to output, "json"/"yaml" wrap the dict form.
func (c *Concurrent) Run(ctx context.Context, task string) (interface{}, *swarm.RunMetadata, error) {
	metadata := swarm.NewRunMetadata("ConcurrentWorkflow", task)

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, a := range c.Base.Agents {
		wg.Add(1)
		go func(name string, run func(context.Context, string) (interface{}, error)) {
			defer wg.Done()
			start := time.Now()
			out, err := run(ctx, task)
			ao := swarm.AgentOutput{AgentName: name, Task: task, StartTime: start, EndTime: time.Now()}
			if err != nil {
				ao.Error = err.Error()
			} else {
				ao.Output = asString(out)
			}
			ao.DurationS = ao.EndTime.Sub(ao.StartTime).Seconds()
			mu.Lock()
			metadata.Add(ao)
			mu.Unlock()
		}(a.Name, a.Run)
	}
	wg.Wait()
	metadata.Finish()

	if c.MetadataPath != "" {
		_ = metadata.SaveJSON(c.MetadataPath)
	}

	outputType := c.Base.OutputType
	if outputType == "" {
		outputType = swarm.OutputAll
	}
	return swarm.FormatOutputType(outputType, metadata.Outputs), metadata, nil
}

// RunBatched runs each task's full fan-out serially.
func (c *Concurrent) RunBatched(ctx context.Context, tasks []string) ([]interface{}, error) {
	out := make([]interface{}, len(tasks))
	for i, t := range tasks {
		res, _, err := c.Run(ctx, t)
		if err != nil {
			return out, err
		}
		out[i] = res
	}
	return out, nil
}
