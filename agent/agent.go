// Package agent defines the agent abstraction invoked by the RUN_AGENT
// action and by direct callers. Agents are components with a lifecycle
// (Init/Close) and a uniform Invoke operation; concrete implementations
// range from plain Go functions to model-backed agents with tool access.
package agent

import (
	"context"

	"github.com/hupe1980/automesh/core"
	"github.com/hupe1980/automesh/integration"
	"github.com/hupe1980/automesh/knowledge"
	"github.com/hupe1980/automesh/registry"
	"github.com/hupe1980/automesh/tool"
)

// Agent is an invokable component with an explicit lifecycle.
type Agent interface {
	core.Component

	// Init prepares the agent for execution. Called once during boot.
	Init(ctx context.Context) error

	// Close releases the agent's resources. Called once during shutdown.
	Close(ctx context.Context) error

	// Invoke runs the agent against an input payload. The signature matches
	// core.Invokable so agents dispatch uniformly through the component
	// registry.
	Invoke(ctx context.Context, input map[string]any) (map[string]any, error)

	// RequiredTools names the tools this agent needs registered. The loader
	// validates these references at boot.
	RequiredTools() []string
}

// ToolRegistryAware is implemented by agents that want the shared tool
// registry injected at wiring time.
type ToolRegistryAware interface {
	SetToolRegistry(tools *registry.Registry[tool.Tool])
}

// KnowledgeAware is implemented by agents that want a knowledge source
// injected at wiring time.
type KnowledgeAware interface {
	SetKnowledgeSource(source knowledge.Source)
}

// IntegrationAware is implemented by agents that want the integration
// registry injected at wiring time.
type IntegrationAware interface {
	SetIntegrationRegistry(integrations *registry.Registry[integration.Provider])
}
