package tool

import (
	"encoding/json"
	"sort"

	"github.com/swarmkit/swarmkit/registry"
)

// Registry maps tool name to a validated Tool, and derives the function
// map + aggregate schema an Agent injects as a system message at tool-init
// time.
type Registry struct {
	*registry.BaseRegistry[Tool]
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Tool]()}
}

// RegisterTool validates and adds a tool, rejecting duplicate names or
// incomplete tool definitions.
func (r *Registry) RegisterTool(t Tool) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := r.Register(t.Name, t); err != nil {
		return newToolError("RegisterTool", "failed to register tool "+t.Name, err)
	}
	return nil
}

// FunctionMap returns name -> Fn for every registered tool.
func (r *Registry) FunctionMap() map[string]Fn {
	fns := make(map[string]Fn)
	for name, t := range r.snapshot() {
		fns[name] = t.Fn
	}
	return fns
}

// snapshot returns name -> Tool for every registered entry.
func (r *Registry) snapshot() map[string]Tool {
	out := make(map[string]Tool)
	for _, t := range r.List() {
		out[t.Name] = t
	}
	return out
}

// Names returns the registered tool names, sorted for deterministic output.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.Count())
	for _, t := range r.List() {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// SchemaMessage renders a single system-message-ready description of every
// registered tool's name, description, and parameter schema, for an Agent to
// prepend to ShortMemory at initialization.
func (r *Registry) SchemaMessage() string {
	var out string
	out += "Available tools:\n"
	for _, t := range r.List() {
		out += "- " + t.Name + ": " + t.Description + "\n"
		if t.Parameters != nil {
			if schema, err := json.Marshal(t.Parameters); err == nil {
				out += "  parameters: " + string(schema) + "\n"
			}
		}
	}
	return out
}
