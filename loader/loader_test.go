package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/automesh/agent"
	"github.com/hupe1980/automesh/config"
	"github.com/hupe1980/automesh/core"
	"github.com/hupe1980/automesh/knowledge"
	"github.com/hupe1980/automesh/registry"
	"github.com/hupe1980/automesh/tool"
)

func testConfig() *config.Config {
	return &config.Config{
		ServiceName: "automesh-test",
		Store:       config.StoreConfig{Driver: "memory"},
		Engine:      config.EngineConfig{HistoryLimit: 100},
	}
}

func echoToolFactory(*config.Config) (tool.Tool, error) {
	return tool.NewFunctionTool(
		"echo",
		"Echo the input",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ *tool.Context, args map[string]any) (any, error) { return args, nil },
	), nil
}

func greeterFactory(requiredTools ...string) AgentFactory {
	return func(*config.Config) (agent.Agent, error) {
		a := agent.NewFunctionAgent("greeter", "", func(_ context.Context, input map[string]any) (map[string]any, error) {
			return map[string]any{"greeting": "hello"}, nil
		})
		if len(requiredTools) == 0 {
			return a, nil
		}
		return &toolNeedingAgent{FunctionAgent: a, tools: requiredTools}, nil
	}
}

type toolNeedingAgent struct {
	*agent.FunctionAgent
	tools []string
}

func (a *toolNeedingAgent) RequiredTools() []string { return a.tools }

type registryAwareAgent struct {
	agent.BaseAgent
	registry *registry.Registry[tool.Tool]
}

func newRegistryAwareAgent() *registryAwareAgent {
	return &registryAwareAgent{BaseAgent: agent.NewBaseAgent("aware")}
}

func (a *registryAwareAgent) SetToolRegistry(tools *registry.Registry[tool.Tool]) {
	a.registry = tools
}

func (a *registryAwareAgent) Invoke(context.Context, map[string]any) (map[string]any, error) {
	return nil, nil
}

func TestBoot(t *testing.T) {
	catalog := NewCatalog()
	catalog.Tools["echo"] = echoToolFactory
	catalog.Agents["greeter"] = greeterFactory("echo")
	catalog.Knowledge["kb"] = func(*config.Config) (knowledge.Source, error) {
		return knowledge.NewInMemorySource("kb"), nil
	}

	sys, err := Boot(context.Background(), testConfig(), catalog)
	require.NoError(t, err)
	defer func() { require.NoError(t, sys.Shutdown(context.Background())) }()

	assert.True(t, sys.Tools.Has("echo"))
	assert.True(t, sys.Agents.Has("greeter"))
	assert.True(t, sys.Knowledge.Has("kb"))
	assert.NotNil(t, sys.Engine)
	assert.NotNil(t, sys.Tenants)

	// Built-in executors plus the RUN_AGENT bridge are registered.
	assert.True(t, sys.Executors.Has(string(core.ActionSendEmail)))
	assert.True(t, sys.Executors.Has(string(core.ActionRunAgent)))

	// RUN_AGENT dispatches to the booted agent registry.
	out, err := sys.Agents.Invoke(context.Background(), "greeter", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", out["greeting"])
}

func TestBoot_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Driver = "bogus"

	_, err := Boot(context.Background(), cfg, NewCatalog())
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestBoot_MissingToolReferenceIsFatal(t *testing.T) {
	catalog := NewCatalog()
	catalog.Agents["greeter"] = greeterFactory("crm_lookup", "calendar")

	_, err := Boot(context.Background(), testConfig(), catalog)

	var depErr *core.DependencyError
	require.ErrorAs(t, err, &depErr)
	require.Len(t, depErr.Missing, 2, "every unresolved reference is listed")
	assert.Contains(t, depErr.Missing[0], "crm_lookup")
	assert.Contains(t, depErr.Missing[1], "calendar")
}

func TestBoot_FailingFactoryIsSkipped(t *testing.T) {
	catalog := NewCatalog()
	catalog.Tools["echo"] = echoToolFactory
	catalog.Tools["broken"] = func(*config.Config) (tool.Tool, error) {
		return nil, errors.New("bad wiring")
	}

	sys, err := Boot(context.Background(), testConfig(), catalog)
	require.NoError(t, err, "one bad factory does not abort boot")
	defer func() { _ = sys.Shutdown(context.Background()) }()

	assert.True(t, sys.Tools.Has("echo"))
	assert.False(t, sys.Tools.Has("broken"))
}

func TestBoot_EnableListSelectsComponents(t *testing.T) {
	catalog := NewCatalog()
	catalog.Tools["echo"] = echoToolFactory
	catalog.Tools["other"] = func(*config.Config) (tool.Tool, error) {
		return tool.NewFunctionTool("other", "", nil, func(*tool.Context, map[string]any) (any, error) {
			return nil, nil
		}), nil
	}

	cfg := testConfig()
	cfg.Components.Tools = []string{"echo", "not-in-catalog"}

	sys, err := Boot(context.Background(), cfg, catalog)
	require.NoError(t, err)
	defer func() { _ = sys.Shutdown(context.Background()) }()

	assert.True(t, sys.Tools.Has("echo"))
	assert.False(t, sys.Tools.Has("other"))
}

func TestBoot_ResolvesTenantSlug(t *testing.T) {
	catalog := NewCatalog()

	// Unknown slug fails boot.
	_, err := Boot(context.Background(), testConfig(), catalog, func(o *Options) {
		o.TenantSlug = "acme"
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestBoot_WiresToolRegistryIntoAgents(t *testing.T) {
	catalog := NewCatalog()
	catalog.Tools["echo"] = echoToolFactory

	wired := newRegistryAwareAgent()
	catalog.Agents["aware"] = func(*config.Config) (agent.Agent, error) { return wired, nil }

	sys, err := Boot(context.Background(), testConfig(), catalog)
	require.NoError(t, err)
	defer func() { _ = sys.Shutdown(context.Background()) }()

	require.NotNil(t, wired.registry)
	assert.True(t, wired.registry.Has("echo"))
}

type closableTool struct {
	tool.Tool
	closed bool
}

func (c *closableTool) Close(context.Context) error {
	c.closed = true
	return nil
}

func TestSystem_ShutdownClosesClosableComponents(t *testing.T) {
	inner, err := echoToolFactory(nil)
	require.NoError(t, err)
	wrapped := &closableTool{Tool: inner}

	catalog := NewCatalog()
	catalog.Tools["echo"] = func(*config.Config) (tool.Tool, error) { return wrapped, nil }

	sys, err := Boot(context.Background(), testConfig(), catalog)
	require.NoError(t, err)

	require.NoError(t, sys.Shutdown(context.Background()))
	assert.True(t, wrapped.closed, "closable tools are closed before registries clear")
}

func TestSystem_Shutdown(t *testing.T) {
	catalog := NewCatalog()
	catalog.Tools["echo"] = echoToolFactory
	catalog.Agents["greeter"] = greeterFactory()

	sys, err := Boot(context.Background(), testConfig(), catalog)
	require.NoError(t, err)

	require.NoError(t, sys.Shutdown(context.Background()))

	assert.Zero(t, sys.Agents.Len())
	assert.Zero(t, sys.Tools.Len())
	assert.Zero(t, sys.Executors.Len())
}
