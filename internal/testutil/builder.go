// Package testutil provides fluent builders for domain fixtures used across
// test suites.
package testutil

import (
	"time"

	"github.com/hupe1980/automesh/core"
)

// TenantBuilder helps construct tenants with fluent chaining for tests.
// Example:
//
//	tn := NewTenantBuilder("Acme").Plan(core.PlanStarter).Active().Build()
type TenantBuilder struct {
	name   string
	slug   string
	plan   core.PlanTier
	status core.TenantStatus
	limits *core.ResourceLimits
}

// NewTenantBuilder creates a builder for a tenant with the given name.
// Use chainable methods then call Build.
func NewTenantBuilder(name string) *TenantBuilder {
	return &TenantBuilder{
		name:   name,
		slug:   core.NewID()[:8],
		plan:   core.PlanFree,
		status: core.TenantTrial,
	}
}

// Slug overrides the generated slug (chainable).
func (b *TenantBuilder) Slug(slug string) *TenantBuilder {
	b.slug = slug
	return b
}

// Plan sets the plan tier (chainable).
func (b *TenantBuilder) Plan(plan core.PlanTier) *TenantBuilder {
	b.plan = plan
	return b
}

// Active marks the tenant active instead of the default trial (chainable).
func (b *TenantBuilder) Active() *TenantBuilder {
	b.status = core.TenantActive
	return b
}

// Limits overrides the plan-derived resource limits (chainable).
func (b *TenantBuilder) Limits(limits core.ResourceLimits) *TenantBuilder {
	b.limits = &limits
	return b
}

// Build returns a populated *core.Tenant.
func (b *TenantBuilder) Build() *core.Tenant {
	limits := core.LimitsForPlan(b.plan)
	if b.limits != nil {
		limits = *b.limits
	}
	now := time.Now().UTC()
	return &core.Tenant{
		ID:        core.NewID(),
		Name:      b.name,
		Slug:      b.slug,
		Status:    b.status,
		Plan:      b.plan,
		Limits:    limits,
		Features:  core.FeaturesForPlan(b.plan),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AutomationBuilder helps construct automations for tests.
// Example:
//
//	a := NewAutomationBuilder(tenantID).
//		Trigger(core.TriggerEvent, map[string]any{"event": "deal:won"}).
//		Action(core.ActionSendEmail, nil).
//		Build()
type AutomationBuilder struct {
	tenantID   string
	name       string
	trigger    core.Trigger
	conditions []core.Condition
	actions    []core.Action
	enabled    bool
}

// NewAutomationBuilder creates a builder for an enabled, manually triggered
// automation owned by tenantID.
func NewAutomationBuilder(tenantID string) *AutomationBuilder {
	return &AutomationBuilder{
		tenantID: tenantID,
		name:     "test automation",
		trigger:  core.Trigger{Kind: core.TriggerManual},
		enabled:  true,
	}
}

// Name sets the automation name (chainable).
func (b *AutomationBuilder) Name(name string) *AutomationBuilder {
	b.name = name
	return b
}

// Trigger sets the trigger kind and config (chainable).
func (b *AutomationBuilder) Trigger(kind core.TriggerKind, config map[string]any) *AutomationBuilder {
	b.trigger = core.Trigger{Kind: kind, Config: config}
	return b
}

// Condition appends a condition (chainable).
func (b *AutomationBuilder) Condition(c core.Condition) *AutomationBuilder {
	b.conditions = append(b.conditions, c)
	return b
}

// Action appends an action with the next order index (chainable).
func (b *AutomationBuilder) Action(actionType core.ActionType, config map[string]any) *AutomationBuilder {
	b.actions = append(b.actions, core.Action{
		ID:     core.NewID(),
		Type:   actionType,
		Config: config,
		Order:  len(b.actions),
	})
	return b
}

// Disabled marks the automation disabled (chainable).
func (b *AutomationBuilder) Disabled() *AutomationBuilder {
	b.enabled = false
	return b
}

// Build returns a populated *core.Automation.
func (b *AutomationBuilder) Build() *core.Automation {
	now := time.Now().UTC()
	return &core.Automation{
		ID:         core.NewID(),
		TenantID:   b.tenantID,
		Name:       b.name,
		Trigger:    b.trigger,
		Conditions: b.conditions,
		Actions:    b.actions,
		Enabled:    b.enabled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
