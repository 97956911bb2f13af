package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/automesh/core"
	"github.com/hupe1980/automesh/logging"
	"github.com/hupe1980/automesh/metrics"
	"github.com/hupe1980/automesh/registry"
	"github.com/hupe1980/automesh/store"
	"github.com/hupe1980/automesh/tenant"
)

// DefaultHistoryLimit caps ExecutionHistory results when no limit is given.
const DefaultHistoryLimit = 100

// Options configures the automation engine.
type Options struct {
	// Store persists automation definitions. Defaults to an in-memory store.
	Store core.AutomationStore
	// Executions persists execution records. Defaults to the same in-memory
	// store as Store when both are unset.
	Executions core.ExecutionStore
	// Executors resolves registered executors by action type. Defaults to an
	// empty registry.
	Executors *registry.Registry[core.Executor]
	// Tenants, when set, receives advisory execution usage tracking.
	Tenants *tenant.Registry
	// Logger defaults to logging.NoOpLogger.
	Logger logging.Logger
	// Metrics, when set, records execution counters and latencies.
	Metrics *metrics.Metrics
	// Clock supplies the current time; overridable in tests.
	Clock func() time.Time
	// HistoryLimit caps ExecutionHistory results. Defaults to
	// DefaultHistoryLimit.
	HistoryLimit int
}

// Engine owns automation lifecycle, condition evaluation, action dispatch,
// execution history, and schedule timers.
type Engine struct {
	*core.LoggerAdapter

	store        core.AutomationStore
	executions   core.ExecutionStore
	executors    *registry.Registry[core.Executor]
	tenants      *tenant.Registry
	metrics      *metrics.Metrics
	clock        func() time.Time
	scheduler    *scheduler
	historyLimit int
}

// NewEngine constructs an Engine.
func NewEngine(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Logger:       logging.NoOpLogger{},
		Clock:        time.Now,
		HistoryLimit: DefaultHistoryLimit,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		mem := store.NewInMemoryStore()
		opts.Store = mem
		if opts.Executions == nil {
			opts.Executions = mem
		}
	}
	if opts.Executions == nil {
		opts.Executions = store.NewInMemoryStore()
	}
	if opts.Executors == nil {
		opts.Executors = registry.New[core.Executor]()
	}

	e := &Engine{
		LoggerAdapter: core.NewLoggerAdapter(opts.Logger),
		store:         opts.Store,
		executions:    opts.Executions,
		executors:     opts.Executors,
		tenants:       opts.Tenants,
		metrics:       opts.Metrics,
		clock:         opts.Clock,
		historyLimit:  opts.HistoryLimit,
	}
	if e.historyLimit <= 0 {
		e.historyLimit = DefaultHistoryLimit
	}
	e.scheduler = newScheduler(func(ctx context.Context, automationID string, input map[string]any) {
		if _, err := e.Run(ctx, automationID, input, ""); err != nil {
			e.LogWarn("scheduled run", "automation_id", automationID, "error", err)
		}
	}, opts.Logger)

	return e
}

// ActionDefinition describes one action of an automation at creation time.
// Identifiers and order positions are assigned by the engine.
type ActionDefinition struct {
	Type   core.ActionType
	Config map[string]any
}

// Definition describes an automation to create or replace.
type Definition struct {
	Name        string
	Description string
	Trigger     core.Trigger
	Conditions  []core.Condition
	Actions     []ActionDefinition
	Enabled     bool
}

func (e *Engine) materialize(tenantID string, def Definition) (*core.Automation, error) {
	if def.Name == "" {
		return nil, &core.ValidationError{Field: "name", Message: "must not be empty"}
	}
	if !core.ValidTriggerKind(def.Trigger.Kind) {
		return nil, &core.ValidationError{Field: "trigger.kind", Value: string(def.Trigger.Kind), Message: "unknown trigger kind"}
	}
	if def.Trigger.Kind == core.TriggerSchedule {
		if _, err := ParseScheduleExpression(def.Trigger.ScheduleExpression()); err != nil {
			return nil, err
		}
	}

	now := e.clock().UTC()
	a := &core.Automation{
		ID:          core.NewID(),
		TenantID:    tenantID,
		Name:        def.Name,
		Description: def.Description,
		Trigger:     def.Trigger,
		Conditions:  append([]core.Condition(nil), def.Conditions...),
		Actions:     make([]core.Action, len(def.Actions)),
		Enabled:     def.Enabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, ad := range def.Actions {
		a.Actions[i] = core.Action{
			ID:     core.NewID(),
			Type:   ad.Type,
			Config: ad.Config,
			Order:  i,
		}
	}

	return a, nil
}

// CreateAutomation validates and stores a new automation for a tenant.
// Actions receive fresh identifiers and dense order positions. A SCHEDULE
// trigger has its expression validated up front, and an enabled schedule
// automation gets its timer armed immediately.
func (e *Engine) CreateAutomation(ctx context.Context, tenantID string, def Definition) (*core.Automation, error) {
	a, err := e.materialize(tenantID, def)
	if err != nil {
		return nil, err
	}

	if err := e.store.PutAutomation(a); err != nil {
		return nil, err
	}

	e.syncSchedule(a)
	e.LogInfo("automation created", "automation_id", a.ID, "tenant_id", tenantID, "trigger", string(a.Trigger.Kind), "actions", len(a.Actions))

	return a.Clone(), nil
}

// UpdateAutomation replaces an automation's definition wholesale while
// preserving its identity and execution counters. The schedule timer is
// re-armed or disarmed to match the new definition.
func (e *Engine) UpdateAutomation(ctx context.Context, id string, def Definition) (*core.Automation, error) {
	existing, err := e.store.GetAutomation(id)
	if err != nil {
		return nil, err
	}

	replacement, err := e.materialize(existing.TenantID, def)
	if err != nil {
		return nil, err
	}

	replacement.ID = existing.ID
	replacement.ExecutionCount = existing.ExecutionCount
	replacement.LastExecutedAt = existing.LastExecutedAt
	replacement.CreatedAt = existing.CreatedAt
	replacement.UpdatedAt = e.clock().UTC()

	if err := e.store.PutAutomation(replacement); err != nil {
		return nil, err
	}

	e.syncSchedule(replacement)
	e.LogInfo("automation updated", "automation_id", id)

	return replacement.Clone(), nil
}

// ToggleAutomation enables or disables an automation, arming or disarming
// its schedule timer accordingly.
func (e *Engine) ToggleAutomation(ctx context.Context, id string, enabled bool) error {
	a, err := e.store.GetAutomation(id)
	if err != nil {
		return err
	}

	a.Enabled = enabled
	a.UpdatedAt = e.clock().UTC()
	if err := e.store.PutAutomation(a); err != nil {
		return err
	}

	e.syncSchedule(a)
	e.LogInfo("automation toggled", "automation_id", id, "enabled", enabled)

	return nil
}

// DeleteAutomation removes an automation and disarms its timer. Execution
// history survives deletion.
func (e *Engine) DeleteAutomation(ctx context.Context, id string) error {
	if err := e.store.DeleteAutomation(id); err != nil {
		return err
	}
	e.scheduler.Disarm(id)
	e.LogInfo("automation deleted", "automation_id", id)
	return nil
}

// GetAutomation returns an automation by identifier.
func (e *Engine) GetAutomation(ctx context.Context, id string) (*core.Automation, error) {
	return e.store.GetAutomation(id)
}

// ListAutomations returns all automations of a tenant.
func (e *Engine) ListAutomations(ctx context.Context, tenantID string) ([]*core.Automation, error) {
	return e.store.ListAutomations(tenantID)
}

// FindByTrigger returns a tenant's enabled automations with the given
// trigger kind.
func (e *Engine) FindByTrigger(ctx context.Context, tenantID string, kind core.TriggerKind) ([]*core.Automation, error) {
	all, err := e.store.ListByTrigger(tenantID, kind)
	if err != nil {
		return nil, err
	}
	enabled := all[:0]
	for _, a := range all {
		if a.Enabled {
			enabled = append(enabled, a)
		}
	}
	return enabled, nil
}

// RegisterExecutor makes an executor available for action dispatch. The
// executor's Name must equal the action type it handles.
func (e *Engine) RegisterExecutor(ex core.Executor) error {
	return e.executors.Register(ex)
}

// syncSchedule arms the timer for enabled schedule automations and disarms
// it otherwise. The expression was validated at creation, so Arm failures
// only happen on scheduler shutdown.
func (e *Engine) syncSchedule(a *core.Automation) {
	if a.Enabled && a.Trigger.Kind == core.TriggerSchedule {
		if err := e.scheduler.Arm(a.ID, a.Trigger.ScheduleExpression()); err != nil {
			e.LogWarn("arm schedule", "automation_id", a.ID, "error", err)
		}
		return
	}
	e.scheduler.Disarm(a.ID)
}

// Run executes an automation against an input payload and returns the
// execution record. Executor failures are data on the record, not errors
// from Run: an error return means the run could not start at all (unknown
// identifier, disabled automation, or storage failure).
//
// The protocol: a RUNNING record is appended first; a condition miss
// finishes it CANCELLED; actions then run in order, each action without a
// registered executor is skipped with a log line, and the first executor
// error finishes the record FAILED and stops the sequence. Outputs
// accumulate keyed by action identifier and are visible to later actions.
func (e *Engine) Run(ctx context.Context, id string, input map[string]any, userID string) (*core.ExecutionRecord, error) {
	a, err := e.store.GetAutomation(id)
	if err != nil {
		return nil, err
	}
	if !a.Enabled {
		return nil, fmt.Errorf("automation %s: %w", id, core.ErrDisabled)
	}

	record := core.NewExecutionRecord(a.ID, userID, input)
	// Duration is measured from CreatedAt, so both ends must come from the
	// engine clock.
	record.CreatedAt = e.clock().UTC()
	if err := e.executions.AppendExecution(record); err != nil {
		return nil, err
	}

	status := e.execute(ctx, a, record, input)
	record.Finish(status, e.clock().UTC())

	if err := e.executions.UpdateExecution(record); err != nil {
		e.LogError("persist execution record", "execution_id", record.ID, "error", err)
	}
	if status != core.ExecutionCancelled {
		if err := e.store.MarkExecuted(a.ID, e.clock().UTC()); err != nil && !errors.Is(err, core.ErrNotFound) {
			e.LogError("mark executed", "automation_id", a.ID, "error", err)
		}
		e.trackUsage(ctx, a.TenantID)
	}
	e.metrics.ObserveExecution(a.TenantID, string(record.Status), record.Duration)
	e.LogInfo("automation run finished",
		"automation_id", a.ID,
		"execution_id", record.ID,
		"status", string(record.Status),
		"duration", record.Duration.String(),
	)

	return record.Clone(), nil
}

func (e *Engine) execute(ctx context.Context, a *core.Automation, record *core.ExecutionRecord, input map[string]any) core.ExecutionStatus {
	if !EvaluateConditions(a.Conditions, input) {
		e.LogDebug("conditions not met", "automation_id", a.ID, "execution_id", record.ID)
		return core.ExecutionCancelled
	}

	for _, action := range a.Actions {
		ex, err := e.executors.Get(string(action.Type))
		if err != nil {
			e.LogWarn("no executor registered, skipping action",
				"automation_id", a.ID,
				"action_id", action.ID,
				"action_type", string(action.Type),
			)
			continue
		}

		output, err := e.executeAction(ctx, ex, action, record.Output)
		if err != nil {
			execErr := &core.ExecutionError{ActionID: action.ID, ActionType: action.Type, Err: err}
			record.Error = execErr.Error()
			e.LogError("action failed",
				"automation_id", a.ID,
				"action_id", action.ID,
				"action_type", string(action.Type),
				"error", err,
			)
			return core.ExecutionFailed
		}
		record.Output[action.ID] = output
	}

	return core.ExecutionSuccess
}

// executeAction dispatches one action, converting an executor panic into an
// error so a misbehaving executor fails only its own run.
func (e *Engine) executeAction(ctx context.Context, ex core.Executor, action core.Action, prior map[string]map[string]any) (output map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor panic: %v", r)
		}
	}()
	return ex.Execute(ctx, action.Config, prior)
}

func (e *Engine) trackUsage(ctx context.Context, tenantID string) {
	if e.tenants == nil {
		return
	}
	if err := e.tenants.TrackExecution(ctx, tenantID); err != nil {
		e.LogWarn("track execution usage", "tenant_id", tenantID, "error", err)
	}
}

// ExecutionHistory returns the most recent execution records for an
// automation, newest first. A non-positive limit falls back to the
// configured history limit, which is also the hard cap.
func (e *Engine) ExecutionHistory(ctx context.Context, automationID string, limit int) ([]*core.ExecutionRecord, error) {
	if limit <= 0 || limit > e.historyLimit {
		limit = e.historyLimit
	}
	return e.executions.ListExecutions(automationID, limit)
}

// Close stops all schedule timers. The engine must not be used afterwards.
func (e *Engine) Close(ctx context.Context) error {
	e.scheduler.Close()
	return nil
}
