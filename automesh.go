// Package automesh provides a high-level façade over the tenant registry and
// automation engine enabling rapid construction of multi-tenant automation
// systems. Most applications interact with this package by:
//  1. Creating an AutoMesh via New() (optionally overriding default in-memory stores)
//  2. Creating tenants, users and automations
//  3. Triggering automations manually (RunAutomation) or letting schedule
//     timers fire
//
// The façade delegates orchestration to automation.Engine and tenant.Registry
// while keeping setup ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply the
// Postgres-backed store and a structured logger.
package automesh

import (
	"context"

	"github.com/hupe1980/automesh/agent"
	"github.com/hupe1980/automesh/automation"
	"github.com/hupe1980/automesh/core"
	"github.com/hupe1980/automesh/executor"
	"github.com/hupe1980/automesh/logging"
	"github.com/hupe1980/automesh/metrics"
	"github.com/hupe1980/automesh/registry"
	"github.com/hupe1980/automesh/store"
	"github.com/hupe1980/automesh/tenant"
)

// Options configures the AutoMesh instance.
type Options struct {
	// TenantStore persists tenants, users and usage counters. Defaults to
	// the shared in-memory store.
	TenantStore core.TenantStore
	// AutomationStore persists automation definitions.
	AutomationStore core.AutomationStore
	// ExecutionStore persists execution records.
	ExecutionStore core.ExecutionStore

	// Builtins controls whether the built-in executors are registered at
	// construction. Defaults to true.
	Builtins bool

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
	// Metrics, when set, records execution and quota observations.
	Metrics *metrics.Metrics
	// HistoryLimit caps execution history queries.
	HistoryLimit int
}

// AutoMesh is the high-level façade aggregating the tenant registry, the
// automation engine and the component registries.
type AutoMesh struct {
	tenants   *tenant.Registry
	engine    *automation.Engine
	agents    *registry.Registry[agent.Agent]
	executors *registry.Registry[core.Executor]
}

// New creates a new AutoMesh instance with optional overrides. Any unset
// store is initialized with a shared in-memory implementation.
func New(optFns ...func(o *Options)) *AutoMesh {
	opts := Options{
		Builtins: true,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.TenantStore == nil || opts.AutomationStore == nil || opts.ExecutionStore == nil {
		mem := store.NewInMemoryStore()
		if opts.TenantStore == nil {
			opts.TenantStore = mem
		}
		if opts.AutomationStore == nil {
			opts.AutomationStore = mem
		}
		if opts.ExecutionStore == nil {
			opts.ExecutionStore = mem
		}
	}

	tenants := tenant.NewRegistry(func(o *tenant.Options) {
		o.Store = opts.TenantStore
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})

	agents := registry.New[agent.Agent]()
	executors := registry.New[core.Executor]()

	if opts.Builtins {
		for _, ex := range executor.Builtins(opts.Logger) {
			_ = executors.Register(ex)
		}
		_ = executors.Register(executor.NewRunAgent(agents))
	}

	engine := automation.NewEngine(func(o *automation.Options) {
		o.Store = opts.AutomationStore
		o.Executions = opts.ExecutionStore
		o.Executors = executors
		o.Tenants = tenants
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
		o.HistoryLimit = opts.HistoryLimit
	})

	return &AutoMesh{
		tenants:   tenants,
		engine:    engine,
		agents:    agents,
		executors: executors,
	}
}

// Tenants returns the tenant registry.
func (m *AutoMesh) Tenants() *tenant.Registry { return m.tenants }

// Engine returns the automation engine.
func (m *AutoMesh) Engine() *automation.Engine { return m.engine }

// Agents returns the agent registry backing the RUN_AGENT action.
func (m *AutoMesh) Agents() *registry.Registry[agent.Agent] { return m.agents }

// Executors returns the executor registry.
func (m *AutoMesh) Executors() *registry.Registry[core.Executor] { return m.executors }

// RegisterAgent adds an agent for RUN_AGENT dispatch.
func (m *AutoMesh) RegisterAgent(a agent.Agent) error { return m.agents.Register(a) }

// RegisterExecutor adds or replaces the executor for an action type.
func (m *AutoMesh) RegisterExecutor(ex core.Executor) error {
	_ = m.executors.Unregister(ex.Name())
	return m.executors.Register(ex)
}

// CreateTenant creates a tenant through the underlying registry.
func (m *AutoMesh) CreateTenant(ctx context.Context, name string, optFns ...func(o *tenant.TenantOptions)) (*core.Tenant, error) {
	return m.tenants.CreateTenant(ctx, name, optFns...)
}

// CreateAutomation creates an automation through the underlying engine.
func (m *AutoMesh) CreateAutomation(ctx context.Context, tenantID string, def automation.Definition) (*core.Automation, error) {
	return m.engine.CreateAutomation(ctx, tenantID, def)
}

// RunAutomation triggers one automation run and returns its execution record.
func (m *AutoMesh) RunAutomation(ctx context.Context, id string, input map[string]any, userID string) (*core.ExecutionRecord, error) {
	return m.engine.Run(ctx, id, input, userID)
}

// Close stops schedule timers. The instance must not be used afterwards.
func (m *AutoMesh) Close(ctx context.Context) error {
	return m.engine.Close(ctx)
}
