// Package router implements SwarmRouter: the single Run(task) entry point
// that selects a topology executor by type tag and propagates
// cross-cutting policy (shared memory, rules, auto-prompt) across every
// agent before dispatch, per spec.md §4.12. Grounded on
// team/services.go's service-wrapper pattern and team/team.go's
// initializeWorkflowExecutors policy application.
package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swarmkit/swarmkit/agent"
	"github.com/swarmkit/swarmkit/memory"
	"github.com/swarmkit/swarmkit/swarm"
	"github.com/swarmkit/swarmkit/topology"
)

// Swarm type tags, per spec.md §4.12.
const (
	TypeAgentRearrange     = "AgentRearrange"
	TypeSpreadSheetSwarm   = "SpreadSheetSwarm"
	TypeSequentialWorkflow = "SequentialWorkflow"
	TypeConcurrentWorkflow = "ConcurrentWorkflow"
	TypeRoundRobin         = "RoundRobinSwarm"
	TypeTaskQueue          = "TaskQueueSwarm"
	TypeGraphWorkflow      = "GraphWorkflow"
	TypeHierarchical       = "HierarchicalAgentSwarm"
	TypeGroupChat          = "GroupChat"
	TypeAuto               = "auto"
)

// Error is the standard error type for router construction and dispatch failures.
type Error struct {
	Component string
	Operation string
	Message   string
	Err       error
	Timestamp time.Time
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Operation, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newRouterError(operation, message string, err error) *Error {
	return &Error{Component: "SwarmRouter", Operation: operation, Message: message, Err: err, Timestamp: time.Now()}
}

// Matcher selects a swarm type for TypeAuto, per spec.md §4.13.
type Matcher interface {
	AutoSelect(ctx context.Context, task string) (string, error)
}

// LogEntry is one router invocation record, per spec.md §4.12 "Logging".
type LogEntry struct {
	ID        string
	Timestamp time.Time
	Level     string
	Message   string
	SwarmType string
	Task      string
	Metadata  map[string]interface{}
}

// Policy is the cross-cutting configuration the router applies to every
// agent before dispatch, regardless of topology.
type Policy struct {
	SharedMemorySystem  memory.LongTermMemory
	Rules               string
	AutoGeneratePrompts bool
	FlowDSL             string // for AgentRearrange
	HumanCallback       topology.HumanCallback
	CustomTasks         map[string]string
	RoundRobinCallback  topology.RoundRobinCallback
	GroupChatSpeaker    topology.SpeakerFn
	Graph               *topology.Graph // for GraphWorkflow
	Director            *agent.Agent    // for HierarchicalAgentSwarm
	Workers             []*agent.Agent  // for HierarchicalAgentSwarm
	TaskQueueTasks      []string        // for TaskQueueSwarm
	SpreadSheetTask     string          // for SpreadSheetSwarm
	SpreadSheetCSVPath  string
	Matcher             Matcher
}

// RulesMarker prefixes the swarm-rules text appended to every agent's
// system prompt when Policy.Rules is set.
const RulesMarker = "\n### Swarm Rules ###\n"

// Router is the top-level SwarmRouter: one entry point that selects a
// topology by type and applies Policy before dispatch.
type Router struct {
	SwarmType string
	Base      swarm.Base
	Policy    Policy

	mu   sync.Mutex
	logs []LogEntry
}

// New constructs a Router for the given swarm type and agent base.
func New(swarmType string, base swarm.Base, policy Policy) (*Router, error) {
	if err := base.ReliabilityCheck(); err != nil {
		return nil, err
	}
	if swarmType == "" {
		swarmType = TypeSequentialWorkflow
	}
	return &Router{SwarmType: swarmType, Base: base, Policy: policy}, nil
}

// applyPolicy propagates SharedMemorySystem, Rules, and AutoGeneratePrompts
// across every agent before a run, per spec.md §4.12 "Policy propagation".
func (r *Router) applyPolicy() {
	for _, a := range r.Base.Agents {
		if r.Policy.SharedMemorySystem != nil {
			a.LongTermMemory = r.Policy.SharedMemorySystem
		}
		if r.Policy.Rules != "" {
			a.SystemPrompt += RulesMarker + r.Policy.Rules
		}
		if r.Policy.AutoGeneratePrompts {
			a.AutoGeneratePrompt = true
		}
	}
}

// Run selects a topology executor by SwarmType (resolving TypeAuto via
// Policy.Matcher) and dispatches task to it.
func (r *Router) Run(ctx context.Context, task string) (interface{}, error) {
	r.applyPolicy()

	swarmType := r.SwarmType
	if swarmType == TypeAuto {
		resolved, err := r.resolveAuto(ctx, task)
		if err != nil {
			return nil, err
		}
		swarmType = resolved
	}

	out, err := r.dispatch(ctx, swarmType, task)
	if err != nil {
		r.log("error", err.Error(), swarmType, task, nil)
	} else {
		r.log("info", fmt.Sprintf("dispatched %q", swarmType), swarmType, task, nil)
	}
	return out, err
}

func (r *Router) resolveAuto(ctx context.Context, task string) (string, error) {
	if r.Policy.Matcher == nil {
		return TypeSequentialWorkflow, nil
	}
	selected, err := r.Policy.Matcher.AutoSelect(ctx, task)
	if err != nil || selected == "" {
		return TypeSequentialWorkflow, nil
	}
	return selected, nil
}

func (r *Router) dispatch(ctx context.Context, swarmType, task string) (interface{}, error) {
	switch swarmType {
	case TypeSequentialWorkflow:
		exec, err := topology.NewSequential(r.Base)
		if err != nil {
			return nil, err
		}
		out, _, err := exec.Run(ctx, task)
		return out, err

	case TypeConcurrentWorkflow:
		exec, err := topology.NewConcurrent(r.Base)
		if err != nil {
			return nil, err
		}
		out, _, err := exec.Run(ctx, task)
		return out, err

	case TypeAgentRearrange:
		exec, err := topology.NewRearrange(r.Base, r.Policy.FlowDSL, r.Policy.HumanCallback, r.Policy.CustomTasks)
		if err != nil {
			return nil, err
		}
		out, _, err := exec.Run(ctx, task)
		return out, err

	case TypeRoundRobin:
		exec, err := topology.NewRoundRobin(r.Base)
		if err != nil {
			return nil, err
		}
		exec.Callback = r.Policy.RoundRobinCallback
		out, _, err := exec.Run(ctx, task)
		return out, err

	case TypeTaskQueue:
		exec, err := topology.NewTaskQueue(r.Base)
		if err != nil {
			return nil, err
		}
		tasks := r.Policy.TaskQueueTasks
		if len(tasks) == 0 {
			tasks = []string{task}
		}
		return exec.Enqueue(ctx, tasks)

	case TypeSpreadSheetSwarm:
		defaultTask := r.Policy.SpreadSheetTask
		if defaultTask == "" {
			defaultTask = task
		}
		exec, err := topology.NewSpreadSheet(r.Base, defaultTask)
		if err != nil {
			return nil, err
		}
		exec.CSVPath = r.Policy.SpreadSheetCSVPath
		return exec.Run(ctx)

	case TypeGraphWorkflow:
		if r.Policy.Graph == nil {
			return nil, newRouterError("dispatch", "graph workflow requires a configured Graph", nil)
		}
		results, _, err := r.Policy.Graph.Run(ctx, task)
		return results, err

	case TypeHierarchical:
		if r.Policy.Director == nil {
			return nil, newRouterError("dispatch", "hierarchical swarm requires a director agent", nil)
		}
		exec, err := topology.NewHierarchical(r.Policy.Director, r.Policy.Workers)
		if err != nil {
			return nil, err
		}
		out, _, err := exec.Run(ctx, task)
		return out, err

	case TypeGroupChat:
		exec, err := topology.NewGroupChat(r.Base, r.Policy.GroupChatSpeaker)
		if err != nil {
			return nil, err
		}
		turns, _, err := exec.Run(ctx, task)
		return turns, err

	default:
		return nil, newRouterError("dispatch", "unknown swarm type "+swarmType, nil)
	}
}

func (r *Router) log(level, message, swarmType, task string, metadata map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, LogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		SwarmType: swarmType,
		Task:      task,
		Metadata:  metadata,
	})
}

// GetLogs returns every invocation record accumulated so far.
func (r *Router) GetLogs() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogEntry, len(r.logs))
	copy(out, r.logs)
	return out
}
