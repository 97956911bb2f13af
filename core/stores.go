package core

import "time"

// TenantStore persists tenants, users and usage counters. Implementations
// must keep primary records and secondary indexes (slug, tenant+email)
// consistent under concurrent access: PutTenant fails with
// *DuplicateSlugError when the slug belongs to another tenant, PutUser fails
// with *DuplicateEmailError when the normalized email belongs to another
// user of the same tenant.
type TenantStore interface {
	PutTenant(t *Tenant) error
	GetTenant(id string) (*Tenant, error)
	GetTenantBySlug(slug string) (*Tenant, error)
	ListTenants() ([]*Tenant, error)

	PutUser(u *User) error
	GetUser(id string) (*User, error)
	ListUsers(tenantID string) ([]*User, error)
	ListAllUsers() ([]*User, error)

	// GetUsage returns the counter for the tenant's period starting at
	// period, or a zero counter when none exists yet.
	GetUsage(tenantID string, period time.Time) (*UsageCounter, error)
	// AddUsage applies delta atomically (one read-modify-write per call;
	// concurrent increments must not lose updates) and returns the counter
	// after the increment. A period rollover starts a fresh counter.
	AddUsage(tenantID string, period time.Time, delta UsageDelta) (*UsageCounter, error)
}

// AutomationStore persists automation definitions with lookups by tenant and
// by (tenant, trigger kind). Create/update/delete must be atomic with
// respect to those indexes.
type AutomationStore interface {
	PutAutomation(a *Automation) error
	GetAutomation(id string) (*Automation, error)
	DeleteAutomation(id string) error
	ListAutomations(tenantID string) ([]*Automation, error)
	ListByTrigger(tenantID string, kind TriggerKind) ([]*Automation, error)
	// MarkExecuted atomically increments the execution counter and stamps
	// the last-executed time. Separate from PutAutomation so overlapping
	// runs cannot lose counter increments through read-modify-write races.
	MarkExecuted(id string, at time.Time) error
}

// ExecutionStore persists append-only execution records.
type ExecutionStore interface {
	AppendExecution(rec *ExecutionRecord) error
	// UpdateExecution replaces a record previously appended (used to move a
	// RUNNING record to its terminal status).
	UpdateExecution(rec *ExecutionRecord) error
	// ListExecutions returns up to limit records for the automation,
	// most recent first.
	ListExecutions(automationID string, limit int) ([]*ExecutionRecord, error)
}
