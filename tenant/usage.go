package tenant

import (
	"context"

	"github.com/hupe1980/automesh/core"
)

// TrackAPICall counts one API call against the tenant's current period.
// The increment always persists; when the incremented value exceeds the plan
// limit a usage:limit-exceeded event is emitted and a *core.QuotaError is
// returned. Tracking is advisory: the tracked operation is expected to have
// already happened.
func (r *Registry) TrackAPICall(ctx context.Context, tenantID string) error {
	t, err := r.store.GetTenant(tenantID)
	if err != nil {
		return err
	}

	counter, err := r.store.AddUsage(tenantID, core.PeriodStart(r.clock()), core.UsageDelta{APICalls: 1})
	if err != nil {
		return err
	}
	r.metrics.ObserveUsage(tenantID, "api_calls")

	if counter.APICalls > t.Limits.MaxAPICallsPerPeriod {
		return r.breach(tenantID, "api_calls", t.Limits.MaxAPICallsPerPeriod, counter.APICalls)
	}

	return nil
}

// TrackStorage counts bytes written against the tenant's current period.
// Semantics mirror TrackAPICall.
func (r *Registry) TrackStorage(ctx context.Context, tenantID string, bytes int64) error {
	t, err := r.store.GetTenant(tenantID)
	if err != nil {
		return err
	}

	counter, err := r.store.AddUsage(tenantID, core.PeriodStart(r.clock()), core.UsageDelta{StorageBytes: bytes})
	if err != nil {
		return err
	}
	r.metrics.ObserveUsage(tenantID, "storage")

	if counter.StorageBytes > t.Limits.MaxStorageBytes {
		return r.breach(tenantID, "storage", t.Limits.MaxStorageBytes, counter.StorageBytes)
	}

	return nil
}

// TrackExecution counts one automation execution for the usage summary.
// Executions have no per-period plan limit, so this never fails with a
// quota error.
func (r *Registry) TrackExecution(ctx context.Context, tenantID string) error {
	if _, err := r.store.GetTenant(tenantID); err != nil {
		return err
	}
	if _, err := r.store.AddUsage(tenantID, core.PeriodStart(r.clock()), core.UsageDelta{Executions: 1}); err != nil {
		return err
	}
	r.metrics.ObserveUsage(tenantID, "executions")
	return nil
}

func (r *Registry) breach(tenantID, resource string, limit, current int64) error {
	r.LogWarn("usage limit exceeded", "tenant_id", tenantID, "resource", resource, "limit", limit, "current", current)
	r.metrics.ObserveQuotaBreach(tenantID, resource)
	r.emit(core.EventLimitExceeded, tenantID, map[string]any{
		"resource": resource,
		"limit":    limit,
		"current":  current,
	})

	return &core.QuotaError{TenantID: tenantID, Resource: resource, Limit: limit, Current: current}
}

// ResourceUsage pairs used and limit values with a percentage for rendering.
type ResourceUsage struct {
	Used       int64   `json:"used"`
	Limit      int64   `json:"limit"`
	Percentage float64 `json:"percentage"`
}

// UsageSummary aggregates the tenant's current-period usage.
type UsageSummary struct {
	TenantID   string        `json:"tenant_id"`
	APICalls   ResourceUsage `json:"api_calls"`
	Storage    ResourceUsage `json:"storage"`
	Users      ResourceUsage `json:"users"`
	Executions int64         `json:"executions"`
}

// UsageSummary returns the current-period counters of a tenant alongside
// their plan limits.
func (r *Registry) UsageSummary(ctx context.Context, tenantID string) (*UsageSummary, error) {
	t, err := r.store.GetTenant(tenantID)
	if err != nil {
		return nil, err
	}

	counter, err := r.store.GetUsage(tenantID, core.PeriodStart(r.clock()))
	if err != nil {
		return nil, err
	}

	users, err := r.store.ListUsers(tenantID)
	if err != nil {
		return nil, err
	}
	seats := int64(0)
	for _, u := range users {
		if u.Counted() {
			seats++
		}
	}

	return &UsageSummary{
		TenantID:   tenantID,
		APICalls:   usage(counter.APICalls, t.Limits.MaxAPICallsPerPeriod),
		Storage:    usage(counter.StorageBytes, t.Limits.MaxStorageBytes),
		Users:      usage(seats, int64(t.Limits.MaxUsers)),
		Executions: counter.Executions,
	}, nil
}

func usage(used, limit int64) ResourceUsage {
	u := ResourceUsage{Used: used, Limit: limit}
	if limit > 0 {
		u.Percentage = float64(used) / float64(limit) * 100
	}
	return u
}
