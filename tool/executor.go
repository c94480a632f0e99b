package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Call represents one parsed tool invocation request from an LLM response.
type Call struct {
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseCalls strips a fenced Markdown code block if present, then parses the
// remaining JSON, accepting any of the three shapes the spec allows:
// {"functions": [...]}, {"function": {...}}, or a bare {"name", "parameters"}
// object. Returns an empty slice (not an error) when the text is not tool-call
// JSON at all, so callers can tell "no calls" from "malformed calls".
func ParseCalls(raw string) ([]Call, error) {
	text := strings.TrimSpace(raw)
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	if text == "" || text[0] != '{' {
		return nil, nil
	}

	var envelope struct {
		Functions []Call `json:"functions"`
		Function  *Call  `json:"function"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return nil, newToolError("ParseCalls", "invalid tool-call JSON", err)
	}
	if len(envelope.Functions) > 0 {
		return envelope.Functions, nil
	}
	if envelope.Function != nil {
		return []Call{*envelope.Function}, nil
	}

	var single Call
	if err := json.Unmarshal([]byte(text), &single); err != nil {
		return nil, newToolError("ParseCalls", "invalid tool-call JSON", err)
	}
	if single.Name == "" {
		return nil, nil
	}
	return []Call{single}, nil
}

// Dispatch executes every parsed call against the registry's function map.
// A missing function name is recorded as "null" rather than failing the
// batch; a function error is captured as an "Error: ..." string and fed back
// so the LLM may observe and correct. A single call yields {"result": ...};
// multiple calls yield {"results": {name: output}, "summary": "..."}.
func Dispatch(ctx context.Context, reg *Registry, calls []Call) map[string]interface{} {
	fns := reg.FunctionMap()
	results := make(map[string]string, len(calls))
	order := make([]string, 0, len(calls))

	for _, call := range calls {
		order = append(order, call.Name)
		fn, ok := fns[call.Name]
		if !ok {
			results[call.Name] = "null"
			continue
		}
		out, err := fn(ctx, call.Parameters)
		if err != nil {
			results[call.Name] = fmt.Sprintf("Error: %v", err)
			continue
		}
		results[call.Name] = stringify(out)
	}

	if len(calls) == 1 {
		return map[string]interface{}{"result": results[calls[0].Name]}
	}

	var summary strings.Builder
	for i, name := range order {
		if i > 0 {
			summary.WriteString("; ")
		}
		summary.WriteString(name)
		summary.WriteString(": ")
		summary.WriteString(results[name])
	}
	return map[string]interface{}{"results": results, "summary": summary.String()}
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return "null"
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return fmt.Sprintf("%v", s)
		}
		return string(b)
	}
}
