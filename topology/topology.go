// Package topology implements the one executor per control-flow pattern
// that spec.md §4 describes: Sequential/Rearrange, Concurrent, RoundRobin,
// TaskQueue, SpreadSheet, Graph, Hierarchical, and GroupChat. Every
// executor consumes []*agent.Agent and a swarm.Base, and returns a shaped
// result plus a swarm.RunMetadata record. Grounded on
// workflow/executor.go's ExecutionContext/BaseExecutor shape and
// workflow/executors.go's per-topology dispatch.
package topology

import (
	"context"
	"fmt"
	"time"

	"github.com/swarmkit/swarmkit/agent"
)

// Error is the standard error type for topology construction and execution failures.
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

// NewError constructs a topology Error.
func NewError(component, operation, message string, err error) *Error {
	return &Error{Component: component, Operation: operation, Message: message, Err: err, Timestamp: time.Now()}
}

// runAgentWithTimeout runs agent a on task with a bound on wall-clock time,
// per spec.md §5 "Cancellation and timeouts". A timeoutSec <= 0 means no
// timeout beyond ctx's own deadline. On expiry the worker is abandoned and
// an error is returned for that slot; peers are unaffected.
func runAgentWithTimeout(ctx context.Context, a *agent.Agent, task string, timeoutSec float64) (interface{}, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if timeoutSec > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSec*float64(time.Second)))
		defer cancel()
	}

	type result struct {
		out interface{}
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := a.Run(runCtx, task)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-runCtx.Done():
		return nil, runCtx.Err()
	}
}

// asString coerces an Agent.Run output (string, []string, or map) to a
// plain string for chaining into the next stage's task.
func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		out := ""
		for i, s := range t {
			if i > 0 {
				out += "\n"
			}
			out += s
		}
		return out
	case map[string]interface{}:
		if outputs, ok := t["agent_output"].([]string); ok {
			return asString(outputs)
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
