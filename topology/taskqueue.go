package topology

import (
	"context"
	"sync"
	"time"

	"github.com/swarmkit/swarmkit/swarm"
)

// TaskQueue runs all agents as long-lived workers draining a shared FIFO
// queue of tasks, per spec.md §4.6. Workers stop when the queue is drained;
// pops are atomic via a channel.
type TaskQueue struct {
	swarm.Base
	WorkspaceDir string // metadata autosave root
}

// NewTaskQueue validates base (non-empty agents, MaxLoops >= 1) and returns
// a TaskQueue executor.
func NewTaskQueue(base swarm.Base) (*TaskQueue, error) {
	if err := base.ReliabilityCheck(); err != nil {
		return nil, err
	}
	return &TaskQueue{Base: base}, nil
}

// Enqueue feeds tasks into a channel-backed queue and runs every agent as a
// worker against it until the queue is drained and all workers are idle.
func (tq *TaskQueue) Enqueue(ctx context.Context, tasks []string) (*swarm.RunMetadata, error) {
	metadata := swarm.NewRunMetadata("TaskQueueSwarm", "")

	queue := make(chan string, len(tasks))
	for _, t := range tasks {
		queue <- t
	}
	close(queue)

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, a := range tq.Base.Agents {
		wg.Add(1)
		go func(name string, run func(context.Context, string) (interface{}, error)) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task, ok := <-queue:
					if !ok {
						return
					}
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
				}
			}
		}(a.Name, a.Run)
	}
	wg.Wait()
	metadata.Finish()

	if tq.WorkspaceDir != "" {
		_ = metadata.SaveJSON(tq.WorkspaceDir + "/taskqueue_" + metadata.RunID + ".json")
	}

	if ctx.Err() != nil {
		return metadata, ctx.Err()
	}
	return metadata, nil
}
