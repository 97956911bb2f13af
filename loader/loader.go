// Package loader assembles a complete system from configuration and
// compiled-in component catalogs. Boot runs a strictly ordered sequence that
// populates the registries, validates every cross-reference, and wires
// setter hooks; Shutdown mirrors boot and always completes, collecting
// per-component failures instead of stopping on the first.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hupe1980/automesh/agent"
	"github.com/hupe1980/automesh/automation"
	"github.com/hupe1980/automesh/config"
	"github.com/hupe1980/automesh/core"
	"github.com/hupe1980/automesh/executor"
	"github.com/hupe1980/automesh/integration"
	"github.com/hupe1980/automesh/knowledge"
	"github.com/hupe1980/automesh/logging"
	"github.com/hupe1980/automesh/metrics"
	"github.com/hupe1980/automesh/registry"
	"github.com/hupe1980/automesh/store"
	"github.com/hupe1980/automesh/store/postgres"
	"github.com/hupe1980/automesh/tenant"
	"github.com/hupe1980/automesh/tool"
)

// Factory types turn configuration into live component instances. Factories
// are registered in a Catalog under the component identifier; the enable
// lists in config select which catalog entries boot instantiates.
type (
	ToolFactory        func(cfg *config.Config) (tool.Tool, error)
	AgentFactory       func(cfg *config.Config) (agent.Agent, error)
	ExecutorFactory    func(cfg *config.Config) (core.Executor, error)
	IntegrationFactory func(cfg *config.Config) (integration.Provider, error)
	KnowledgeFactory   func(cfg *config.Config) (knowledge.Source, error)
)

// Catalog holds the compiled-in component factories available to Boot.
type Catalog struct {
	Tools        map[string]ToolFactory
	Agents       map[string]AgentFactory
	Executors    map[string]ExecutorFactory
	Integrations map[string]IntegrationFactory
	Knowledge    map[string]KnowledgeFactory
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		Tools:        make(map[string]ToolFactory),
		Agents:       make(map[string]AgentFactory),
		Executors:    make(map[string]ExecutorFactory),
		Integrations: make(map[string]IntegrationFactory),
		Knowledge:    make(map[string]KnowledgeFactory),
	}
}

// Options configures Boot.
type Options struct {
	// Logger defaults to logging.NoOpLogger.
	Logger logging.Logger
	// Metrics, when set, is threaded into the tenant registry and engine.
	Metrics *metrics.Metrics
	// TenantSlug, when set, is resolved after the tenant registry is built
	// and cached on the system. A missing slug fails boot.
	TenantSlug string
	// Builtins controls whether the built-in executors are registered
	// before the catalog's executor factories run. Defaults to true.
	Builtins bool
}

// System is a fully booted automesh instance.
type System struct {
	Config  *config.Config
	Tenants *tenant.Registry
	Engine  *automation.Engine

	Tools        *registry.Registry[tool.Tool]
	Agents       *registry.Registry[agent.Agent]
	Executors    *registry.Registry[core.Executor]
	Integrations *registry.Registry[integration.Provider]
	Knowledge    *registry.Registry[knowledge.Source]

	// Tenant is the resolved tenant when Options.TenantSlug was given.
	Tenant *core.Tenant

	logger logging.Logger
}

// Boot assembles a System from configuration and a component catalog.
//
// The sequence is strictly ordered: (1) validate configuration; (2) open
// stores and construct the tenant registry, resolving the requested tenant
// slug if any; (3) instantiate and register tools and executors; (4)
// integrations, best-effort (a provider failing to connect is logged and
// skipped); (5) knowledge sources; (6) agents, initialized; (7) validate
// every cross-reference, aborting with a *core.DependencyError that lists
// all unresolved references; (8) wire registries into components exposing
// setter hooks.
//
// Individual factory failures in steps 3 to 6 are logged and skipped so one
// bad component does not abort the others; unresolved references at step 7
// are fatal, since a half-wired system should not start silently degraded.
func Boot(ctx context.Context, cfg *config.Config, catalog *Catalog, optFns ...func(o *Options)) (*System, error) {
	opts := Options{
		Logger:   logging.NoOpLogger{},
		Builtins: true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if catalog == nil {
		catalog = NewCatalog()
	}
	logger := opts.Logger

	// Step 1: configuration.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Step 2: stores and tenant registry.
	tenantStore, automationStore, executionStore, err := openStores(cfg)
	if err != nil {
		return nil, err
	}

	tenants := tenant.NewRegistry(func(o *tenant.Options) {
		o.Store = tenantStore
		o.Logger = logger
		o.Metrics = opts.Metrics
	})

	sys := &System{
		Config:       cfg,
		Tenants:      tenants,
		Tools:        registry.New[tool.Tool](),
		Agents:       registry.New[agent.Agent](),
		Executors:    registry.New[core.Executor](),
		Integrations: registry.New[integration.Provider](),
		Knowledge:    registry.New[knowledge.Source](),
		logger:       logger,
	}

	if opts.TenantSlug != "" {
		t, err := tenants.GetTenantBySlug(ctx, opts.TenantSlug)
		if err != nil {
			return nil, fmt.Errorf("resolve tenant %q: %w", opts.TenantSlug, err)
		}
		sys.Tenant = t
	}

	// Step 3: tools and executors.
	for _, name := range enabled(cfg.Components.Tools, catalog.Tools) {
		t, err := catalog.Tools[name](cfg)
		if err != nil {
			logger.Error("tool factory failed, skipping", "tool", name, "error", err)
			continue
		}
		if err := sys.Tools.Register(t); err != nil {
			logger.Error("tool registration failed, skipping", "tool", name, "error", err)
		}
	}

	if opts.Builtins {
		for _, ex := range executor.Builtins(logger) {
			if err := sys.Executors.Register(ex); err != nil {
				logger.Error("builtin executor registration failed", "executor", ex.Name(), "error", err)
			}
		}
	}
	for _, name := range enabled(cfg.Components.Executors, catalog.Executors) {
		ex, err := catalog.Executors[name](cfg)
		if err != nil {
			logger.Error("executor factory failed, skipping", "executor", name, "error", err)
			continue
		}
		// Catalog executors replace built-ins registered under the same type.
		_ = sys.Executors.Unregister(ex.Name())
		if err := sys.Executors.Register(ex); err != nil {
			logger.Error("executor registration failed, skipping", "executor", name, "error", err)
		}
	}

	// Step 4: integrations, best-effort.
	for _, name := range enabled(cfg.Components.Integrations, catalog.Integrations) {
		p, err := catalog.Integrations[name](cfg)
		if err != nil {
			logger.Error("integration factory failed, skipping", "integration", name, "error", err)
			continue
		}
		if err := p.Connect(ctx); err != nil {
			logger.Warn("integration failed to connect, skipping", "integration", name, "error", err)
			continue
		}
		if err := sys.Integrations.Register(p); err != nil {
			logger.Error("integration registration failed, skipping", "integration", name, "error", err)
		}
	}

	// Step 5: knowledge sources.
	for _, name := range enabled(cfg.Components.Knowledge, catalog.Knowledge) {
		src, err := catalog.Knowledge[name](cfg)
		if err != nil {
			logger.Error("knowledge factory failed, skipping", "source", name, "error", err)
			continue
		}
		if err := sys.Knowledge.Register(src); err != nil {
			logger.Error("knowledge registration failed, skipping", "source", name, "error", err)
		}
	}

	// Step 6: agents.
	for _, name := range enabled(cfg.Components.Agents, catalog.Agents) {
		a, err := catalog.Agents[name](cfg)
		if err != nil {
			logger.Error("agent factory failed, skipping", "agent", name, "error", err)
			continue
		}
		if err := a.Init(ctx); err != nil {
			logger.Error("agent init failed, skipping", "agent", name, "error", err)
			continue
		}
		if err := sys.Agents.Register(a); err != nil {
			logger.Error("agent registration failed, skipping", "agent", name, "error", err)
		}
	}

	sys.Engine = automation.NewEngine(func(o *automation.Options) {
		o.Store = automationStore
		o.Executions = executionStore
		o.Executors = sys.Executors
		o.Tenants = tenants
		o.Logger = logger
		o.Metrics = opts.Metrics
		o.HistoryLimit = cfg.Engine.HistoryLimit
	})

	// RUN_AGENT dispatches through the agent registry assembled above.
	_ = sys.Executors.Unregister(string(core.ActionRunAgent))
	if err := sys.Executors.Register(executor.NewRunAgent(sys.Agents)); err != nil {
		logger.Error("run-agent executor registration failed", "error", err)
	}

	// Step 7: cross-reference validation.
	if err := sys.validateReferences(ctx, automationStore); err != nil {
		sys.close(ctx)
		return nil, err
	}

	// Step 8: setter-hook wiring.
	sys.wire()

	if opts.Metrics != nil {
		opts.Metrics.SetComponents("tools", sys.Tools.Len())
		opts.Metrics.SetComponents("agents", sys.Agents.Len())
		opts.Metrics.SetComponents("executors", sys.Executors.Len())
		opts.Metrics.SetComponents("integrations", sys.Integrations.Len())
		opts.Metrics.SetComponents("knowledge", sys.Knowledge.Len())
	}

	logger.Info("system booted",
		"tools", sys.Tools.Len(),
		"agents", sys.Agents.Len(),
		"executors", sys.Executors.Len(),
		"integrations", sys.Integrations.Len(),
		"knowledge", sys.Knowledge.Len(),
	)

	return sys, nil
}

// openStores builds the configured persistence backend. All three store
// interfaces come from the same backend instance.
func openStores(cfg *config.Config) (core.TenantStore, core.AutomationStore, core.ExecutionStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		pg, err := postgres.Open(cfg.Store.DSN, func(o *postgres.Options) {
			o.MaxIdleConns = cfg.Store.MaxIdleConns
			o.MaxOpenConns = cfg.Store.MaxOpenConns
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return pg, pg, pg, nil
	default:
		mem := store.NewInMemoryStore()
		return mem, mem, mem, nil
	}
}

// enabled resolves the component names to instantiate: the configured list
// when non-empty, otherwise every catalog entry. Names absent from the
// catalog are dropped.
func enabled[T any](selected []string, catalog map[string]T) []string {
	if len(selected) == 0 {
		names := make([]string, 0, len(catalog))
		for name := range catalog {
			names = append(names, name)
		}
		sort.Strings(names)
		return names
	}
	names := make([]string, 0, len(selected))
	for _, name := range selected {
		if _, ok := catalog[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// validateReferences checks every cross-reference: tools each agent
// declares, and the executor behind every action type stored automations
// use. All unresolved references are collected into one DependencyError.
func (s *System) validateReferences(ctx context.Context, automations core.AutomationStore) error {
	var missing []string
	seen := make(map[string]bool)
	add := func(ref string) {
		if !seen[ref] {
			seen[ref] = true
			missing = append(missing, ref)
		}
	}

	for _, a := range s.Agents.List() {
		for _, toolName := range a.RequiredTools() {
			if !s.Tools.Has(toolName) {
				add(fmt.Sprintf("agent %s requires tool %s", a.Name(), toolName))
			}
		}
	}

	tenants, err := s.Tenants.ListTenants(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}
	for _, t := range tenants {
		stored, err := automations.ListAutomations(t.ID)
		if err != nil {
			return fmt.Errorf("list automations for %s: %w", t.ID, err)
		}
		for _, a := range stored {
			for _, action := range a.Actions {
				if !s.Executors.Has(string(action.Type)) {
					add(fmt.Sprintf("automation %s action type %s", a.ID, action.Type))
				}
			}
		}
	}

	if len(missing) > 0 {
		return &core.DependencyError{Missing: missing}
	}

	return nil
}

// wire injects shared registries into components exposing setter hooks.
func (s *System) wire() {
	var defaultKnowledge knowledge.Source
	if sources := s.Knowledge.List(); len(sources) > 0 {
		defaultKnowledge = sources[0]
	}

	for _, a := range s.Agents.List() {
		if aware, ok := a.(agent.ToolRegistryAware); ok {
			aware.SetToolRegistry(s.Tools)
		}
		if aware, ok := a.(agent.KnowledgeAware); ok && defaultKnowledge != nil {
			aware.SetKnowledgeSource(defaultKnowledge)
		}
		if aware, ok := a.(agent.IntegrationAware); ok {
			aware.SetIntegrationRegistry(s.Integrations)
		}
	}
}

// Shutdown tears the system down in reverse boot order: the engine's timers
// stop first, then agents, knowledge sources, integrations and tools that
// implement core.Closable release their resources, and finally every
// registry is cleared. Individual failures are collected and returned
// joined, never aborting the teardown.
func (s *System) Shutdown(ctx context.Context) error {
	errs := s.close(ctx)

	s.Agents.Clear()
	s.Knowledge.Clear()
	s.Integrations.Clear()
	s.Executors.Clear()
	s.Tools.Clear()

	s.logger.Info("system shut down", "errors", len(errs))

	return errors.Join(errs...)
}

func (s *System) close(ctx context.Context) []error {
	var errs []error
	record := func(kind, name string, err error) {
		if err != nil {
			s.logger.Error("teardown failure", "kind", kind, "component", name, "error", err)
			errs = append(errs, fmt.Errorf("%s %s: %w", kind, name, err))
		}
	}

	if s.Engine != nil {
		record("engine", "engine", s.Engine.Close(ctx))
	}
	for _, a := range s.Agents.List() {
		record("agent", a.Name(), a.Close(ctx))
	}
	for _, src := range s.Knowledge.List() {
		if c, ok := src.(core.Closable); ok {
			record("knowledge", src.Name(), c.Close(ctx))
		}
	}
	for _, p := range s.Integrations.List() {
		record("integration", p.Name(), p.Close(ctx))
	}
	for _, tl := range s.Tools.List() {
		if c, ok := tl.(core.Closable); ok {
			record("tool", tl.Name(), c.Close(ctx))
		}
	}

	return errs
}
