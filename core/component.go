package core

import "context"

// Component is the minimal contract every pluggable unit (tool, agent,
// executor, integration provider, knowledge source) satisfies so it can live
// in a registry under a stable identifier.
type Component interface {
	// Name returns the unique identifier for this component within its
	// registry (snake_case recommended).
	Name() string

	// Description returns a human-readable summary of what the component does.
	Description() string
}

// Initializable components are given a chance to acquire resources during
// boot, after construction and before registration completes.
type Initializable interface {
	Init(ctx context.Context) error
}

// Closable components are given a chance to release resources during
// teardown. Close errors are collected and logged, never fatal to teardown.
type Closable interface {
	Close(ctx context.Context) error
}

// Invokable is the uniform execution entry point a registry dispatches to.
// Input and output are opaque maps so heterogeneous components share one
// dispatch surface.
type Invokable interface {
	Invoke(ctx context.Context, input map[string]any) (map[string]any, error)
}
