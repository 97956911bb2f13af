package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() *Context {
	return NewContext(context.Background(), "tenant-1", "auto-1", nil)
}

func TestFunctionTool_Call(t *testing.T) {
	sum := NewFunctionTool(
		"calculate_sum",
		"Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(_ *Context, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)

	assert.Equal(t, "calculate_sum", sum.Name())

	result, err := sum.Call(testContext(), map[string]any{"a": float64(2), "b": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, float64(5), result)
}

func TestFunctionTool_CallValidationError(t *testing.T) {
	echo := NewFunctionTool(
		"echo",
		"Echo the input",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(_ *Context, args map[string]any) (any, error) {
			return args["text"], nil
		},
	)

	_, err := echo.Call(testContext(), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
	assert.Equal(t, "echo", toolErr.Tool)
}

func TestFunctionTool_CallExecutionError(t *testing.T) {
	failing := NewFunctionTool(
		"failing",
		"Always fails",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(*Context, map[string]any) (any, error) {
			return nil, errors.New("backend unavailable")
		},
	)

	_, err := failing.Call(testContext(), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
	assert.Contains(t, toolErr.Message, "backend unavailable")
}

func TestFunctionTool_CallPreservesToolError(t *testing.T) {
	custom := NewFunctionTool(
		"custom",
		"Returns a custom tool error",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(*Context, map[string]any) (any, error) {
			return nil, NewToolError("custom", "rate limited", "RATE_LIMITED")
		},
	)

	_, err := custom.Call(testContext(), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "RATE_LIMITED", toolErr.Code)
}

func TestNewFunctionToolFromStruct(t *testing.T) {
	type args struct {
		Query string `json:"query" description:"Search query"`
		Limit *int   `json:"limit,omitempty"`
	}

	search := NewFunctionToolFromStruct(
		"search",
		"Search records",
		args{},
		func(_ *Context, a map[string]any) (any, error) {
			return a["query"], nil
		},
	)

	schema := search.Parameters()
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "limit")
	assert.Equal(t, []string{"query"}, schema["required"])

	result, err := search.Call(testContext(), map[string]any{"query": "deals"})
	require.NoError(t, err)
	assert.Equal(t, "deals", result)
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	c := NewContext(ctx, "tenant-1", "auto-1", nil)

	assert.Equal(t, ctx, c.Context())
	assert.Equal(t, "tenant-1", c.TenantID())
	assert.Equal(t, "auto-1", c.AutomationID())
	assert.NotNil(t, c.Logger())
}
