// Package flow parses and validates the Flow DSL shared by AgentRearrange
// and SequentialWorkflow: a string of the form
// "A -> B, C -> H -> D" where "->" separates ordered stages and "," splits a
// stage into parallel participants. "H" is the reserved human-in-the-loop
// token. Grounded on workflow/types.go's stage/edge modeling conventions —
// the teacher has no direct DSL-string parser, so this package follows
// spec.md §3 directly.
package flow

import (
	"fmt"
	"strings"
	"time"
)

// Human is the reserved participant name for a human-in-the-loop stage.
const Human = "H"

// FlowError is the standard error type for DSL parsing and validation failures.
type FlowError struct {
	Operation string
	Message   string
	Err       error
	Timestamp time.Time
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[Flow:%s] %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[Flow:%s] %s", e.Operation, e.Message)
}

func (e *FlowError) Unwrap() error { return e.Err }

func newFlowError(operation, message string, err error) *FlowError {
	return &FlowError{Operation: operation, Message: message, Err: err, Timestamp: time.Now()}
}

// Stage is one `->`-separated segment of the flow: one or more participants
// that run in parallel within the stage.
type Stage struct {
	Participants []string
}

// IsHuman reports whether this stage is the single reserved human token.
func (s Stage) IsHuman() bool {
	return len(s.Participants) == 1 && s.Participants[0] == Human
}

// IsParallel reports whether this stage has more than one participant.
func (s Stage) IsParallel() bool {
	return len(s.Participants) > 1
}

// Flow is a parsed, validated Flow DSL string.
type Flow struct {
	Raw    string
	Stages []Stage
}

// Parse parses and validates raw against a set of registered participant
// names. It enforces spec.md §3's invariants: every named participant is
// either registered or the reserved H token; no duplicate names anywhere in
// the flow; the flow contains at least one "->".
func Parse(raw string, registered map[string]bool) (*Flow, error) {
	if !strings.Contains(raw, "->") {
		return nil, newFlowError("Parse", "flow must contain at least one '->' stage separator", nil)
	}

	rawStages := strings.Split(raw, "->")
	stages := make([]Stage, 0, len(rawStages))
	seen := make(map[string]bool)

	for _, rawStage := range rawStages {
		names := strings.Split(rawStage, ",")
		participants := make([]string, 0, len(names))
		for _, n := range names {
			name := strings.TrimSpace(n)
			if name == "" {
				return nil, newFlowError("Parse", "empty participant name in flow", nil)
			}
			if name != Human {
				if !registered[name] {
					return nil, newFlowError("Parse", fmt.Sprintf("participant %q is not a registered agent", name), nil)
				}
			}
			if seen[name] {
				return nil, newFlowError("Parse", fmt.Sprintf("duplicate participant %q in flow", name), nil)
			}
			seen[name] = true
			participants = append(participants, name)
		}
		stages = append(stages, Stage{Participants: participants})
	}

	return &Flow{Raw: raw, Stages: stages}, nil
}

// Sequential builds a single-participant-per-stage flow "A -> B -> C" from
// an ordered list of names, as SequentialWorkflow derives from
// agent-declaration order per spec.md §4.3.
func Sequential(names []string) string {
	return strings.Join(names, " -> ")
}

// InsertBefore splices a new single-participant stage immediately before the
// first stage containing name. AgentRearrange's customTasks override does not
// use it; the executor substitutes the task at dispatch time instead.
// Returns a new Flow; the receiver is unmodified.
func (f *Flow) InsertBefore(name string, stage Stage) *Flow {
	out := make([]Stage, 0, len(f.Stages)+1)
	inserted := false
	for _, s := range f.Stages {
		if !inserted {
			for _, p := range s.Participants {
				if p == name {
					out = append(out, stage)
					inserted = true
					break
				}
			}
		}
		out = append(out, s)
	}
	if !inserted {
		out = append(out, stage)
	}
	return &Flow{Raw: f.Raw, Stages: out}
}
