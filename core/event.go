package core

import "time"

// Domain event names emitted by the tenant registry. Observers subscribe via
// tenant.Registry.Subscribe; delivery is synchronous and in subscription
// order so billing/audit consumers see a deterministic stream.
const (
	EventTenantCreated   = "tenant:created"
	EventTenantSuspended = "tenant:suspended"
	EventTenantResumed   = "tenant:resumed"
	EventTenantDeleted   = "tenant:deleted"
	EventUserCreated     = "user:created"
	EventAPIKeyCreated   = "apikey:created"
	EventLimitExceeded   = "usage:limit-exceeded"
)

// DomainEvent is a named fact about a tenant-scoped state change.
type DomainEvent struct {
	Name      string         `json:"name"`
	TenantID  string         `json:"tenant_id"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// EventHandler observes domain events. Handlers must not block for long;
// they run inline on the emitting goroutine.
type EventHandler func(DomainEvent)

// NewDomainEvent stamps a new event with the current UTC time.
func NewDomainEvent(name, tenantID string, payload map[string]any) DomainEvent {
	return DomainEvent{
		Name:      name,
		TenantID:  tenantID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
