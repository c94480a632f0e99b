package topology

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/swarmkit/swarmkit/agent"
	"github.com/swarmkit/swarmkit/swarm"
)

// Order is one dispatch instruction a director agent emits.
type Order struct {
	AgentName string `json:"agentName"`
	Task      string `json:"task"`
}

// directorPayload is the pre-populated-worker response shape: {orders: [...]}.
type directorPayload struct {
	Orders []Order `json:"orders"`
}

// NewWorkerSpec is one dynamic-worker instantiation request a director
// emits when no worker pool is pre-populated.
type NewWorkerSpec struct {
	AgentName    string `json:"agentName"`
	SystemPrompt string `json:"systemPrompt"`
	Description  string `json:"description"`
	Task         string `json:"task"`
}

type dynamicPayload struct {
	MultipleAgents []NewWorkerSpec `json:"multipleAgents"`
}

// WorkerFactory builds a new worker Agent from the shared worker-LLM
// template for the dynamic-workers mode.
type WorkerFactory func(spec NewWorkerSpec) (*agent.Agent, error)

// Hierarchical is the director-plus-worker-pool topology of spec.md §4.10.
type Hierarchical struct {
	Director      *agent.Agent
	Workers       map[string]*agent.Agent // pre-populated mode; nil/empty for dynamic mode
	WorkerFactory WorkerFactory           // dynamic mode
}

// NewHierarchical builds a pre-populated-workers Hierarchical executor.
func NewHierarchical(director *agent.Agent, workers []*agent.Agent) (*Hierarchical, error) {
	if director == nil {
		return nil, NewError("Hierarchical", "NewHierarchical", "director is required", nil)
	}
	if len(workers) == 0 {
		return nil, NewError("Hierarchical", "NewHierarchical", "at least one worker is required", nil)
	}
	pool := make(map[string]*agent.Agent, len(workers))
	for _, w := range workers {
		pool[w.Name] = w
	}
	return &Hierarchical{Director: director, Workers: pool}, nil
}

// NewDynamicHierarchical builds a Hierarchical executor whose worker pool is
// populated per-run from the director's own instantiation payload.
func NewDynamicHierarchical(director *agent.Agent, factory WorkerFactory) (*Hierarchical, error) {
	if director == nil {
		return nil, NewError("Hierarchical", "NewDynamicHierarchical", "director is required", nil)
	}
	if factory == nil {
		return nil, NewError("Hierarchical", "NewDynamicHierarchical", "worker factory is required", nil)
	}
	return &Hierarchical{Director: director, WorkerFactory: factory}, nil
}

// Run asks the director for orders and dispatches them to workers in
// parallel. Failure of one worker is recorded and does not halt the rest.
func (h *Hierarchical) Run(ctx context.Context, task string) (interface{}, *swarm.RunMetadata, error) {
	if len(h.Workers) == 0 && h.WorkerFactory != nil {
		if err := h.instantiateDynamicWorkers(ctx, task); err != nil {
			return nil, nil, err
		}
	}

	directorOut, err := h.Director.Run(ctx, directorPrompt(task, h.workerNames()))
	if err != nil {
		return nil, nil, NewError("Hierarchical", "Run", "director failed", err)
	}

	var payload directorPayload
	if jsonErr := json.Unmarshal([]byte(asString(directorOut)), &payload); jsonErr != nil || len(payload.Orders) == 0 {
		return nil, nil, NewError("Hierarchical", "Run", "director produced no valid orders", jsonErr)
	}

	metadata := swarm.NewRunMetadata("HierarchicalAgentSwarm", task)
	outputs := make([]string, len(payload.Orders))
	succeeded := make([]bool, len(payload.Orders))

	var wg sync.WaitGroup
	var mu sync.Mutex
	for i, order := range payload.Orders {
		wg.Add(1)
		go func(i int, order Order) {
			defer wg.Done()
			worker, ok := h.Workers[order.AgentName]
			start := time.Now()
			var out interface{}
			var runErr error
			if !ok {
				runErr = NewError("Hierarchical", "Run", "unknown worker "+order.AgentName, nil)
			} else {
				out, runErr = worker.Run(ctx, order.Task)
			}
			ao := swarm.AgentOutput{AgentName: order.AgentName, Task: order.Task, StartTime: start, EndTime: time.Now()}
			if runErr != nil {
				ao.Error = runErr.Error()
			} else {
				ao.Output = asString(out)
				outputs[i] = ao.Output
				succeeded[i] = true
			}
			ao.DurationS = ao.EndTime.Sub(ao.StartTime).Seconds()
			mu.Lock()
			metadata.Add(ao)
			mu.Unlock()
		}(i, order)
	}
	wg.Wait()
	metadata.Finish()

	responses := make([]string, 0, len(outputs))
	for i, o := range outputs {
		if succeeded[i] {
			responses = append(responses, o)
		}
	}
	return strings.Join(responses, "\n"), metadata, nil
}

// instantiateDynamicWorkers runs a first director call to obtain worker
// specs, builds each via WorkerFactory, and populates h.Workers.
func (h *Hierarchical) instantiateDynamicWorkers(ctx context.Context, task string) error {
	specOut, err := h.Director.Run(ctx, "Propose the worker agents needed for this task as JSON {multipleAgents: [...]}\nTask: "+task)
	if err != nil {
		return NewError("Hierarchical", "instantiateDynamicWorkers", "director failed to propose workers", err)
	}
	var payload dynamicPayload
	if jsonErr := json.Unmarshal([]byte(asString(specOut)), &payload); jsonErr != nil || len(payload.MultipleAgents) == 0 {
		return NewError("Hierarchical", "instantiateDynamicWorkers", "director produced no worker specs", jsonErr)
	}

	h.Workers = make(map[string]*agent.Agent, len(payload.MultipleAgents))
	for _, spec := range payload.MultipleAgents {
		w, err := h.WorkerFactory(spec)
		if err != nil {
			return NewError("Hierarchical", "instantiateDynamicWorkers", "failed to build worker "+spec.AgentName, err)
		}
		h.Workers[spec.AgentName] = w
	}
	return nil
}

func (h *Hierarchical) workerNames() []string {
	names := make([]string, 0, len(h.Workers))
	for name := range h.Workers {
		names = append(names, name)
	}
	return names
}

func directorPrompt(task string, workers []string) string {
	return "Available workers: " + strings.Join(workers, ", ") +
		"\nEmit JSON {orders: [{agentName, task}, ...]} dispatching this task: " + task
}
