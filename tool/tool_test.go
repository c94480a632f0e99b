package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoSchema() *jsonschema.Schema {
	return SchemaFor[struct {
		Text string `json:"text"`
	}]()
}

func TestRegisterToolRejectsIncomplete(t *testing.T) {
	reg := NewRegistry()
	err := reg.RegisterTool(Tool{Name: "noop"})
	require.Error(t, err)
}

func TestRegisterAndDispatchSingleCall(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterTool(Tool{
		Name:        "echo",
		Description: "echoes text back",
		Parameters:  echoSchema(),
		Fn: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return params["text"], nil
		},
	}))

	calls, err := ParseCalls(`{"name": "echo", "parameters": {"text": "hi"}}`)
	require.NoError(t, err)
	require.Len(t, calls, 1)

	out := Dispatch(context.Background(), reg, calls)
	assert.Equal(t, "hi", out["result"])
}

func TestDispatchAggregatesMultipleCalls(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterTool(Tool{
		Name: "a", Description: "a", Parameters: echoSchema(),
		Fn: func(ctx context.Context, params map[string]interface{}) (interface{}, error) { return "A", nil },
	}))
	require.NoError(t, reg.RegisterTool(Tool{
		Name: "b", Description: "b", Parameters: echoSchema(),
		Fn: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return nil, errors.New("boom")
		},
	}))

	calls, err := ParseCalls(`{"functions": [{"name": "a"}, {"name": "b"}, {"name": "missing"}]}`)
	require.NoError(t, err)
	require.Len(t, calls, 3)

	out := Dispatch(context.Background(), reg, calls)
	results := out["results"].(map[string]string)
	assert.Equal(t, "A", results["a"])
	assert.Equal(t, "Error: boom", results["b"])
	assert.Equal(t, "null", results["missing"])
}

func TestParseCallsStripsFencedBlock(t *testing.T) {
	raw := "```json\n{\"name\": \"echo\", \"parameters\": {}}\n```"
	calls, err := ParseCalls(raw)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "echo", calls[0].Name)
}

func TestParseCallsReturnsEmptyForPlainText(t *testing.T) {
	calls, err := ParseCalls("just a normal response, no tools here")
	require.NoError(t, err)
	assert.Empty(t, calls)
}

type weatherParams struct {
	City  string `mapstructure:"city"`
	Units string `mapstructure:"units"`
}

func TestDecodeParamsFillsTypedStruct(t *testing.T) {
	p, err := DecodeParams[weatherParams](map[string]interface{}{"city": "Lagos", "units": "metric"})
	require.NoError(t, err)
	assert.Equal(t, "Lagos", p.City)
	assert.Equal(t, "metric", p.Units)
}

func TestDecodeParamsWeaklyTypesNumbers(t *testing.T) {
	type limitParams struct {
		Limit int `mapstructure:"limit"`
	}
	p, err := DecodeParams[limitParams](map[string]interface{}{"limit": "5"})
	require.NoError(t, err)
	assert.Equal(t, 5, p.Limit)
}
