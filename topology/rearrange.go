package topology

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/swarmkit/swarmkit/flow"
	"github.com/swarmkit/swarmkit/swarm"
)

// HumanCallback solicits human input for an "H" stage. It receives the
// current task (the prior stage's output) and returns the human's reply.
type HumanCallback func(ctx context.Context, currentTask string) (string, error)

// DefaultHumanPrompt is used when no HumanCallback is supplied: the current
// task passes through unchanged, which keeps AgentRearrange runnable in
// fully automated contexts that declare an H stage but never exercise it.
func DefaultHumanPrompt(ctx context.Context, currentTask string) (string, error) {
	return currentTask, nil
}

// Rearrange is the general flow executor spec.md §4.9 describes.
// SequentialWorkflow layers on top of it; Hierarchical is a separate
// executor that does not use it.
type Rearrange struct {
	swarm.Base
	Flow          *flow.Flow
	MaxLoops      int
	OutputType    string
	HumanCallback HumanCallback
	CustomTasks   map[string]string
}

// NewRearrange parses rawFlow against the given agents and builds a Rearrange.
func NewRearrange(base swarm.Base, rawFlow string, humanCallback HumanCallback, customTasks map[string]string) (*Rearrange, error) {
	if err := base.ReliabilityCheck(); err != nil {
		return nil, err
	}
	registered := make(map[string]bool, len(base.Agents))
	for _, a := range base.Agents {
		registered[a.Name] = true
	}
	f, err := flow.Parse(rawFlow, registered)
	if err != nil {
		return nil, err
	}

	if humanCallback == nil {
		humanCallback = DefaultHumanPrompt
	}

	maxLoops := base.MaxLoops
	if maxLoops < 1 {
		maxLoops = 1
	}
	outputType := base.OutputType
	if outputType == "" {
		outputType = swarm.OutputFinal
	}

	return &Rearrange{
		Base:          base,
		Flow:          f,
		MaxLoops:      maxLoops,
		OutputType:    outputType,
		HumanCallback: humanCallback,
		CustomTasks:   customTasks,
	}, nil
}

// Run walks the flow's stages MaxLoops times, threading each stage's output
// into the next stage's task, per spec.md §4.9.
func (r *Rearrange) Run(ctx context.Context, task string) (interface{}, *swarm.RunMetadata, error) {
	metadata := swarm.NewRunMetadata("AgentRearrange", task)
	current := task

	for loop := 0; loop < r.MaxLoops; loop++ {
		for _, stage := range r.Flow.Stages {
			select {
			case <-ctx.Done():
				metadata.Finish()
				return nil, metadata, ctx.Err()
			default:
			}

			switch {
			case stage.IsHuman():
				reply, err := r.HumanCallback(ctx, current)
				if err != nil {
					metadata.Finish()
					return nil, metadata, NewError("Rearrange", "Run", "human callback failed", err)
				}
				current = reply
			case stage.IsParallel():
				outputs := make([]string, len(stage.Participants))
				var wg sync.WaitGroup
				var mu sync.Mutex
				for i, name := range stage.Participants {
					wg.Add(1)
					go func(i int, name string) {
						defer wg.Done()
						start := time.Now()
						a := r.Base.AgentByName(name)
						out, err := a.Run(ctx, current)
						mu.Lock()
						defer mu.Unlock()
						ao := swarm.AgentOutput{AgentName: name, Task: current, StartTime: start, EndTime: time.Now()}
						if err != nil {
							ao.Error = err.Error()
						} else {
							ao.Output = asString(out)
							outputs[i] = ao.Output
						}
						ao.DurationS = ao.EndTime.Sub(ao.StartTime).Seconds()
						metadata.Add(ao)
					}(i, name)
				}
				wg.Wait()
				current = strings.Join(outputs, "; ")
			default:
				name := stage.Participants[0]
				a := r.Base.AgentByName(name)
				if a == nil {
					metadata.Finish()
					return nil, metadata, NewError("Rearrange", "Run", "unknown participant "+name, nil)
				}
				stageTask := current
				if override, ok := r.CustomTasks[name]; ok {
					stageTask = override
				}
				start := time.Now()
				out, err := a.Run(ctx, stageTask)
				ao := swarm.AgentOutput{AgentName: name, Task: stageTask, StartTime: start, EndTime: time.Now()}
				if err != nil {
					ao.Error = err.Error()
					ao.DurationS = ao.EndTime.Sub(ao.StartTime).Seconds()
					metadata.Add(ao)
					metadata.Finish()
					return nil, metadata, NewError("Rearrange", "Run", "agent "+name+" failed", err)
				}
				ao.Output = asString(out)
				ao.DurationS = ao.EndTime.Sub(ao.StartTime).Seconds()
				metadata.Add(ao)
				current = ao.Output
			}
		}
	}

	metadata.Finish()
	return shapeRearrangeOutput(r.OutputType, current, metadata), metadata, nil
}

// RunBatched runs tasks serially, once per task.
func (r *Rearrange) RunBatched(ctx context.Context, tasks []string) ([]interface{}, error) {
	out := make([]interface{}, len(tasks))
	for i, t := range tasks {
		res, _, err := r.Run(ctx, t)
		if err != nil {
			return out, err
		}
		out[i] = res
	}
	return out, nil
}

// RunConcurrent runs every task's own full flow in parallel; within each
// task the stages still run strictly in order.
func (r *Rearrange) RunConcurrent(ctx context.Context, tasks []string) []interface{} {
	out := make([]interface{}, len(tasks))
	var wg sync.WaitGroup
	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t string) {
			defer wg.Done()
			res, _, err := r.Run(ctx, t)
			if err != nil {
				out[i] = err.Error()
				return
			}
			out[i] = res
		}(i, t)
	}
	wg.Wait()
	return out
}

func shapeRearrangeOutput(outputType, final string, metadata *swarm.RunMetadata) interface{} {
	switch outputType {
	case swarm.OutputList:
		list := make([]string, len(metadata.Outputs))
		for i, o := range metadata.Outputs {
			list[i] = o.Output
		}
		return list
	case swarm.OutputDict:
		m := make(map[string]string, len(metadata.Outputs))
		for _, o := range metadata.Outputs {
			m[o.AgentName] = o.Output
		}
		return m
	case swarm.OutputAll:
		return swarm.FormatOutputType(swarm.OutputAll, metadata.Outputs)
	default: // "final"
		return final
	}
}
