package agent

import (
	"context"
)

// FunctionAgent adapts a plain Go function to the Agent interface. It has no
// internal mutable state beyond the embedded lifecycle and is safe for
// concurrent use.
type FunctionAgent struct {
	BaseAgent

	fn func(ctx context.Context, input map[string]any) (map[string]any, error)
}

// NewFunctionAgent wraps fn as an agent registered under name.
func NewFunctionAgent(name, description string, fn func(ctx context.Context, input map[string]any) (map[string]any, error)) *FunctionAgent {
	a := &FunctionAgent{
		BaseAgent: NewBaseAgent(name),
		fn:        fn,
	}
	if description != "" {
		a.SetDescription(description)
	}
	return a
}

// Invoke runs the wrapped function.
func (a *FunctionAgent) Invoke(ctx context.Context, input map[string]any) (map[string]any, error) {
	return a.fn(ctx, input)
}

var _ Agent = (*FunctionAgent)(nil)
