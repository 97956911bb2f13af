package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/automesh/knowledge"
	"github.com/hupe1980/automesh/model"
	"github.com/hupe1980/automesh/registry"
	"github.com/hupe1980/automesh/tool"
)

type fakeModel struct {
	lastReq model.Request
	resp    *model.Response
	err     error
}

func (f *fakeModel) Name() string { return "fake-model" }

func (f *fakeModel) Generate(_ context.Context, req model.Request) (*model.Response, error) {
	f.lastReq = req
	return f.resp, f.err
}

func TestBaseAgent_Lifecycle(t *testing.T) {
	b := NewBaseAgent("greeter")
	ctx := context.Background()

	assert.Equal(t, "greeter", b.Name())
	assert.False(t, b.Initialized())

	require.NoError(t, b.Init(ctx))
	assert.True(t, b.Initialized())
	assert.Error(t, b.Init(ctx), "double init is rejected")

	require.NoError(t, b.Close(ctx))
	assert.False(t, b.Initialized())
	assert.Error(t, b.Close(ctx), "close without init is rejected")
}

func TestFunctionAgent_Invoke(t *testing.T) {
	a := NewFunctionAgent("echo", "Echoes the input", func(_ context.Context, input map[string]any) (map[string]any, error) {
		return map[string]any{"echo": input["text"]}, nil
	})

	assert.Equal(t, "Echoes the input", a.Description())
	assert.Empty(t, a.RequiredTools())

	out, err := a.Invoke(context.Background(), map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out["echo"])
}

func TestModelAgent_Invoke(t *testing.T) {
	fm := &fakeModel{resp: &model.Response{
		Text:         "Hello Jo!",
		FinishReason: "stop",
		Usage:        model.TokenUsage{InputTokens: 10, OutputTokens: 5},
	}}

	a := NewModelAgent("greeter", fm, func(o *ModelAgentOptions) {
		o.Instructions = "Greet {{.name}} warmly."
	})

	out, err := a.Invoke(context.Background(), map[string]any{
		"name":  "Jo",
		"input": "say hello",
	})
	require.NoError(t, err)

	assert.Equal(t, "Greet Jo warmly.", fm.lastReq.Instructions)
	assert.Equal(t, "say hello", fm.lastReq.Input)
	assert.Equal(t, "Hello Jo!", out["text"])
	assert.Equal(t, "stop", out["finish_reason"])
	assert.Equal(t, int64(5), out["output_tokens"])
}

func TestModelAgent_InvokeModelError(t *testing.T) {
	fm := &fakeModel{err: errors.New("rate limited")}
	a := NewModelAgent("greeter", fm)

	_, err := a.Invoke(context.Background(), map[string]any{"input": "hi"})
	assert.ErrorContains(t, err, "rate limited")
}

func TestModelAgent_KnowledgeInjection(t *testing.T) {
	ctx := context.Background()

	source := knowledge.NewInMemorySource("kb")
	_, err := source.Store(ctx, "tenant-1", "Refunds are processed within 5 business days", nil)
	require.NoError(t, err)

	fm := &fakeModel{resp: &model.Response{Text: "ok"}}
	a := NewModelAgent("support", fm, func(o *ModelAgentOptions) {
		o.Instructions = "Answer support questions."
	})
	a.SetKnowledgeSource(source)

	_, err = a.Invoke(ctx, map[string]any{
		"input":     "when do refunds arrive",
		"query":     "refunds",
		"tenant_id": "tenant-1",
	})
	require.NoError(t, err)

	assert.Contains(t, fm.lastReq.Instructions, "Relevant context:")
	assert.Contains(t, fm.lastReq.Instructions, "5 business days")
}

func TestModelAgent_RequiredTools(t *testing.T) {
	a := NewModelAgent("planner", &fakeModel{}, func(o *ModelAgentOptions) {
		o.RequiredTools = []string{"search", "calendar"}
	})

	tools := a.RequiredTools()
	assert.Equal(t, []string{"search", "calendar"}, tools)

	tools[0] = "mutated"
	assert.Equal(t, []string{"search", "calendar"}, a.RequiredTools(), "returned slice is a copy")
}

func TestModelAgent_ExecuteTool(t *testing.T) {
	tools := registry.New[tool.Tool]()
	require.NoError(t, tools.Register(tool.NewFunctionTool(
		"double",
		"Doubles a number",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"n": map[string]any{"type": "number"},
			},
			"required": []string{"n"},
		},
		func(_ *tool.Context, args map[string]any) (any, error) {
			return args["n"].(float64) * 2, nil
		},
	)))

	a := NewModelAgent("math", &fakeModel{})
	a.SetToolRegistry(tools)

	toolCtx := tool.NewContext(context.Background(), "tenant-1", "", nil)
	result, err := a.ExecuteTool(toolCtx, "double", map[string]any{"n": float64(21)})
	require.NoError(t, err)
	assert.Equal(t, float64(42), result)

	_, err = a.ExecuteTool(toolCtx, "missing", nil)
	assert.Error(t, err)

	unwired := NewModelAgent("lonely", &fakeModel{})
	_, err = unwired.ExecuteTool(toolCtx, "double", nil)
	assert.ErrorContains(t, err, "no tool registry")
}
