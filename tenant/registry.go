package tenant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/automesh/core"
	"github.com/hupe1980/automesh/logging"
	"github.com/hupe1980/automesh/metrics"
	"github.com/hupe1980/automesh/store"
)

// Options configures a Registry instance.
type Options struct {
	// Store persists tenants, users and usage counters. Defaults to the
	// in-memory implementation.
	Store core.TenantStore

	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger

	// Metrics optionally records quota and usage observations.
	Metrics *metrics.Metrics

	// Clock supplies the current time; override in tests.
	Clock func() time.Time
}

// Registry is the single source of truth for tenant identity and quota
// state. All cross-references from other subsystems are by tenant/user
// identifier plus explicit lookups here; nothing else mutates this state.
type Registry struct {
	*core.LoggerAdapter

	store   core.TenantStore
	metrics *metrics.Metrics
	clock   func() time.Time

	// createMu serializes compound create operations (check limits, then
	// write) so a burst of concurrent creates cannot slip past a limit.
	createMu sync.Mutex

	handlersMu sync.RWMutex
	handlers   []core.EventHandler
}

// NewRegistry creates a tenant registry with optional overrides. Unset
// options fall back to in-memory storage and silent logging.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	opts := Options{
		Store: store.NewInMemoryStore(),
		Clock: func() time.Time { return time.Now().UTC() },
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Registry{
		LoggerAdapter: core.NewLoggerAdapter(opts.Logger),
		store:         opts.Store,
		metrics:       opts.Metrics,
		clock:         opts.Clock,
	}
}

// Subscribe appends a handler to the observer list. Handlers run inline and
// in subscription order on every emitted domain event.
func (r *Registry) Subscribe(h core.EventHandler) {
	r.handlersMu.Lock()
	defer r.handlersMu.Unlock()
	r.handlers = append(r.handlers, h)
}

func (r *Registry) emit(name, tenantID string, payload map[string]any) {
	ev := core.NewDomainEvent(name, tenantID, payload)

	r.handlersMu.RLock()
	handlers := make([]core.EventHandler, len(r.handlers))
	copy(handlers, r.handlers)
	r.handlersMu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// TenantOptions carry the optional provisioning parameters of CreateTenant.
type TenantOptions struct {
	// Slug is the explicit URL-safe identifier; empty means derive from the
	// name with a random suffix.
	Slug string
	// Plan defaults to the free tier.
	Plan core.PlanTier
	// Limits overrides individual plan defaults when non-zero.
	Limits *core.ResourceLimits
}

// Slugify turns a display name into a URL-safe slug fragment.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true // suppress leading dash
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// CreateTenant provisions a new tenant with plan-derived limits and feature
// flags. An explicit slug collision fails with *core.DuplicateSlugError; a
// name-derived slug appends a short random suffix so no uniqueness lookup
// round trip is needed.
func (r *Registry) CreateTenant(ctx context.Context, name string, optFns ...func(o *TenantOptions)) (*core.Tenant, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &core.ValidationError{Field: "name", Message: "tenant name must not be empty"}
	}

	opts := TenantOptions{Plan: core.PlanFree}
	for _, fn := range optFns {
		fn(&opts)
	}

	slug := opts.Slug
	if slug == "" {
		slug = fmt.Sprintf("%s-%s", Slugify(name), uuid.NewString()[:8])
	}

	now := r.clock()
	limits := core.LimitsForPlan(opts.Plan)
	if opts.Limits != nil {
		limits = mergeLimits(limits, *opts.Limits)
	}

	t := &core.Tenant{
		ID:        core.NewID(),
		Name:      name,
		Slug:      slug,
		Status:    core.TenantTrial,
		Plan:      opts.Plan,
		Limits:    limits,
		Features:  core.FeaturesForPlan(opts.Plan),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := r.store.PutTenant(t); err != nil {
		return nil, err
	}

	r.LogInfo("tenant created", "tenant_id", t.ID, "slug", t.Slug, "plan", t.Plan)
	r.emit(core.EventTenantCreated, t.ID, map[string]any{"slug": t.Slug, "plan": string(t.Plan)})

	return t, nil
}

// mergeLimits overlays non-zero override fields onto the plan defaults.
func mergeLimits(base, override core.ResourceLimits) core.ResourceLimits {
	if override.MaxUsers > 0 {
		base.MaxUsers = override.MaxUsers
	}
	if override.MaxAPICallsPerPeriod > 0 {
		base.MaxAPICallsPerPeriod = override.MaxAPICallsPerPeriod
	}
	if override.MaxStorageBytes > 0 {
		base.MaxStorageBytes = override.MaxStorageBytes
	}
	if override.MaxAgents > 0 {
		base.MaxAgents = override.MaxAgents
	}
	if override.MaxTools > 0 {
		base.MaxTools = override.MaxTools
	}
	if override.MaxIntegrations > 0 {
		base.MaxIntegrations = override.MaxIntegrations
	}
	if override.MaxConcurrentExecutions > 0 {
		base.MaxConcurrentExecutions = override.MaxConcurrentExecutions
	}
	if override.DataRetentionDays > 0 {
		base.DataRetentionDays = override.DataRetentionDays
	}
	return base
}

// GetTenant resolves a tenant by id.
func (r *Registry) GetTenant(ctx context.Context, id string) (*core.Tenant, error) {
	return r.store.GetTenant(id)
}

// GetTenantBySlug resolves a tenant by its globally unique slug.
func (r *Registry) GetTenantBySlug(ctx context.Context, slug string) (*core.Tenant, error) {
	return r.store.GetTenantBySlug(slug)
}

// ListTenants returns all tenants.
func (r *Registry) ListTenants(ctx context.Context) ([]*core.Tenant, error) {
	return r.store.ListTenants()
}

// SuspendTenant blocks a tenant from further work. The optional reason is
// carried on the emitted event for audit observers.
func (r *Registry) SuspendTenant(ctx context.Context, id, reason string) error {
	return r.transition(id, core.TenantSuspended, core.EventTenantSuspended, map[string]any{"reason": reason})
}

// ResumeTenant reactivates a suspended tenant.
func (r *Registry) ResumeTenant(ctx context.Context, id string) error {
	return r.transition(id, core.TenantActive, core.EventTenantResumed, nil)
}

// DeleteTenant soft-deletes a tenant by setting status cancelled. No history
// is physically removed.
func (r *Registry) DeleteTenant(ctx context.Context, id string) error {
	return r.transition(id, core.TenantCancelled, core.EventTenantDeleted, nil)
}

func (r *Registry) transition(id string, status core.TenantStatus, event string, payload map[string]any) error {
	t, err := r.store.GetTenant(id)
	if err != nil {
		return err
	}

	t.Status = status
	t.UpdatedAt = r.clock()
	if err := r.store.PutTenant(t); err != nil {
		return err
	}

	r.LogInfo("tenant status changed", "tenant_id", id, "status", status)
	r.emit(event, id, payload)

	return nil
}

// CreateUser adds a user to a tenant. It fails with core.ErrNotFound when
// the tenant is unknown, *core.QuotaError when the seat limit is reached and
// *core.DuplicateEmailError when the email already exists in the tenant.
// A rejected create leaves no partial state in any index.
func (r *Registry) CreateUser(ctx context.Context, tenantID, email, name string, role core.UserRole) (*core.User, error) {
	email = core.NormalizeEmail(email)
	if email == "" {
		return nil, &core.ValidationError{Field: "email", Message: "email must not be empty"}
	}
	if role == "" {
		role = core.RoleViewer
	}

	r.createMu.Lock()
	defer r.createMu.Unlock()

	t, err := r.store.GetTenant(tenantID)
	if err != nil {
		return nil, err
	}

	users, err := r.store.ListUsers(tenantID)
	if err != nil {
		return nil, err
	}
	seats := 0
	for _, u := range users {
		if u.Counted() {
			seats++
		}
	}
	if seats >= t.Limits.MaxUsers {
		qerr := &core.QuotaError{TenantID: tenantID, Resource: "users", Limit: int64(t.Limits.MaxUsers), Current: int64(seats)}
		r.metrics.ObserveQuotaBreach(tenantID, "users")
		r.emit(core.EventLimitExceeded, tenantID, map[string]any{"resource": "users", "limit": qerr.Limit, "current": qerr.Current})
		return nil, qerr
	}

	now := r.clock()
	u := &core.User{
		ID:        core.NewID(),
		TenantID:  tenantID,
		Email:     email,
		Name:      name,
		Role:      role,
		Status:    core.UserActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := r.store.PutUser(u); err != nil {
		return nil, err
	}

	r.LogInfo("user created", "tenant_id", tenantID, "user_id", u.ID, "role", role)
	r.emit(core.EventUserCreated, tenantID, map[string]any{"user_id": u.ID, "email": email})

	return u, nil
}

// GetUser resolves a user by id.
func (r *Registry) GetUser(ctx context.Context, id string) (*core.User, error) {
	return r.store.GetUser(id)
}

// ListUsers returns the users of one tenant.
func (r *Registry) ListUsers(ctx context.Context, tenantID string) ([]*core.User, error) {
	return r.store.ListUsers(tenantID)
}
