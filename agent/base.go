package agent

import (
	"context"
	"fmt"
	"sync"
)

// BaseAgent bundles shared identity and lifecycle state. Embed it in
// concrete agent implementations and supply an Invoke method to satisfy the
// Agent interface. All exported methods are goroutine-safe.
type BaseAgent struct {
	name        string
	description string

	mu          sync.Mutex
	initialized bool
}

// NewBaseAgent constructs a BaseAgent with a generated description
// (customizable via SetDescription).
func NewBaseAgent(name string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }

// Init marks the agent initialized. It is safe for concurrent calls but only
// the first invocation changes state; calling Init on an initialized agent
// returns an error.
func (b *BaseAgent) Init(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return fmt.Errorf("agent %s already initialized", b.name)
	}
	b.initialized = true

	return nil
}

// Close marks the agent closed. Closing an agent that was never initialized
// returns an error.
func (b *BaseAgent) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return fmt.Errorf("agent %s not initialized", b.name)
	}
	b.initialized = false

	return nil
}

// Initialized reports whether Init has been called without a matching Close.
func (b *BaseAgent) Initialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// RequiredTools returns no tool references; override in agents that use tools.
func (b *BaseAgent) RequiredTools() []string { return nil }
