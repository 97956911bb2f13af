package executor

import (
	"context"

	"github.com/hupe1980/automesh/core"
)

// Func adapts a plain function to the core.Executor interface.
type Func struct {
	name        string
	description string
	fn          func(ctx context.Context, config map[string]any, prior map[string]map[string]any) (map[string]any, error)
}

// NewFunc wraps fn as an executor registered under name.
func NewFunc(name, description string, fn func(ctx context.Context, config map[string]any, prior map[string]map[string]any) (map[string]any, error)) *Func {
	return &Func{name: name, description: description, fn: fn}
}

// Name implements core.Component.
func (f *Func) Name() string { return f.name }

// Description implements core.Component.
func (f *Func) Description() string { return f.description }

// Execute implements core.Executor.
func (f *Func) Execute(ctx context.Context, config map[string]any, prior map[string]map[string]any) (map[string]any, error) {
	return f.fn(ctx, config, prior)
}

var _ core.Executor = (*Func)(nil)

// configString reads a string value from an action config, with fallback.
func configString(config map[string]any, key, fallback string) string {
	if config == nil {
		return fallback
	}
	if s, ok := config[key].(string); ok && s != "" {
		return s
	}
	return fallback
}
