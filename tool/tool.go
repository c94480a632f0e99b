// Package tool implements the Agent's tool system: the (name, description,
// parameter schema, fn) contract, a registry built on the shared generic
// registry.BaseRegistry, and the dispatcher that parses a model's tool-call
// JSON and executes the named functions.
package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// Fn is the signature every registered tool function must satisfy.
type Fn func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// Tool is the immutable definition of one callable tool: a name, a
// description, a JSON-schema parameter spec, and the function it invokes.
// Both description and parameter schema must be present or the tool is
// rejected at registration.
type Tool struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Fn          Fn
}

// ToolError represents errors raised by tool construction, registration, or dispatch.
type ToolError struct {
	Component string
	Operation string
	Message   string
	Err       error
	Timestamp time.Time
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Operation, e.Message)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

func newToolError(operation, message string, err error) *ToolError {
	return &ToolError{Component: "Tool", Operation: operation, Message: message, Err: err, Timestamp: time.Now()}
}

// Validate rejects a tool missing a name, description, parameter schema, or function.
func (t Tool) Validate() error {
	if t.Name == "" {
		return newToolError("Validate", "tool name is required", nil)
	}
	if t.Description == "" {
		return newToolError("Validate", fmt.Sprintf("tool %q is missing a description", t.Name), nil)
	}
	if t.Parameters == nil {
		return newToolError("Validate", fmt.Sprintf("tool %q is missing a parameter schema", t.Name), nil)
	}
	if t.Fn == nil {
		return newToolError("Validate", fmt.Sprintf("tool %q has no function bound", t.Name), nil)
	}
	return nil
}

// SchemaFor derives a JSON-schema parameter spec for the type T using
// reflection (invopop/jsonschema), for callers that declare typed tool
// parameter structs instead of hand-writing a schema.
func SchemaFor[T any]() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}
	var zero T
	return reflector.Reflect(zero)
}

// DecodeParams decodes a Call's loosely-typed Parameters map into T, the
// same struct SchemaFor[T] described to the model. Pairs with SchemaFor so a
// Fn body can work with a typed struct instead of indexing the raw map by
// hand.
func DecodeParams[T any](params map[string]interface{}) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, newToolError("DecodeParams", "failed to build decoder", err)
	}
	if err := dec.Decode(params); err != nil {
		return out, newToolError("DecodeParams", "failed to decode parameters", err)
	}
	return out, nil
}
