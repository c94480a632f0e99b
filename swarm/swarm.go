// Package swarm defines the shared Swarm contract every topology executor
// builds on: a named, described collection of agents with a reliability
// check, a bounded Run(task) entry point, and the run-metadata log that
// persists per-run results. Grounded on team/team.go's TeamError /
// SharedState conventions and workflow/types.go's AgentResult /
// WorkflowResult shapes.
package swarm

import (
	"fmt"
	"time"

	"github.com/swarmkit/swarmkit/agent"
)

// Output type tags a Swarm's Run result may be shaped into.
const (
	OutputString = "string"
	OutputStr    = "str"
	OutputList   = "list"
	OutputDict   = "dict"
	OutputJSON   = "json"
	OutputYAML   = "yaml"
	OutputAll    = "all"
	OutputFinal  = "final"
)

// Error is the standard error type for swarm construction and reliability failures.
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

// NewError constructs a swarm Error.
func NewError(component, operation, message string, err error) *Error {
	return &Error{Component: component, Operation: operation, Message: message, Err: err, Timestamp: time.Now()}
}

// Base carries the fields and reliability check shared by every topology:
// a non-empty agent list, a positive loop bound, and a non-empty
// name/description, per spec.md §3 "Swarm" invariants.
type Base struct {
	Name         string
	Description  string
	Agents       []*agent.Agent
	MaxLoops     int
	OutputType   string
	AutoSave     bool
	SaveFilePath string
}

// ReliabilityCheck validates the invariants every Swarm must satisfy before
// Run is callable: len(Agents) >= 1, MaxLoops >= 1, Name and Description
// non-empty.
func (b *Base) ReliabilityCheck() error {
	if b.Name == "" {
		return NewError("Swarm", "ReliabilityCheck", "name must not be empty", nil)
	}
	if b.Description == "" {
		return NewError("Swarm", "ReliabilityCheck", "description must not be empty", nil)
	}
	if len(b.Agents) == 0 {
		return NewError("Swarm", "ReliabilityCheck", "at least one agent is required", nil)
	}
	if b.MaxLoops < 1 {
		return NewError("Swarm", "ReliabilityCheck", "max loops must be >= 1", nil)
	}
	if b.AutoSave && b.SaveFilePath == "" {
		return NewError("Swarm", "ReliabilityCheck", "save file path is required when autosave is enabled", nil)
	}
	return nil
}

// AgentByName returns the agent registered under name, or nil.
func (b *Base) AgentByName(name string) *agent.Agent {
	for _, a := range b.Agents {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// AgentNames returns the names of every agent in declaration order.
func (b *Base) AgentNames() []string {
	names := make([]string, len(b.Agents))
	for i, a := range b.Agents {
		names[i] = a.Name
	}
	return names
}
