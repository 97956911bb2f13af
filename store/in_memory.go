// Package store provides storage backends for the AutoMesh registries. The
// in-memory implementation here is the degraded/dev default; the postgres
// subpackage offers a persistent backend behind the same core interfaces.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/automesh/core"
)

// InMemoryStore is a volatile implementation of core.TenantStore,
// core.AutomationStore and core.ExecutionStore backed by process local maps.
// It is safe for concurrent access and best suited for tests or ephemeral
// demo setups. Each returned entity is cloned to prevent external mutation
// of internal state.
//
// The primary maps and the secondary indexes (slug, tenant+email, trigger)
// are mutated under one write lock, so they can never disagree.
type InMemoryStore struct {
	mu sync.RWMutex

	tenants     map[string]*core.Tenant
	slugIndex   map[string]string // slug -> tenant id
	users       map[string]*core.User
	emailIndex  map[string]string // tenant id + "\x00" + email -> user id
	usage       map[string]*core.UsageCounter
	automations map[string]*core.Automation
	executions  map[string][]*core.ExecutionRecord // automation id -> append order
}

// Compile-time interface assertions.
var (
	_ core.TenantStore     = (*InMemoryStore)(nil)
	_ core.AutomationStore = (*InMemoryStore)(nil)
	_ core.ExecutionStore  = (*InMemoryStore)(nil)
)

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tenants:     make(map[string]*core.Tenant),
		slugIndex:   make(map[string]string),
		users:       make(map[string]*core.User),
		emailIndex:  make(map[string]string),
		usage:       make(map[string]*core.UsageCounter),
		automations: make(map[string]*core.Automation),
		executions:  make(map[string][]*core.ExecutionRecord),
	}
}

func emailKey(tenantID, email string) string {
	return tenantID + "\x00" + core.NormalizeEmail(email)
}

// PutTenant inserts or replaces a tenant. The slug index is updated in the
// same critical section; a slug owned by another tenant fails with
// *core.DuplicateSlugError.
func (s *InMemoryStore) PutTenant(t *core.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, taken := s.slugIndex[t.Slug]; taken && owner != t.ID {
		return &core.DuplicateSlugError{Slug: t.Slug}
	}
	if prev, exists := s.tenants[t.ID]; exists && prev.Slug != t.Slug {
		delete(s.slugIndex, prev.Slug)
	}
	s.tenants[t.ID] = t.Clone()
	s.slugIndex[t.Slug] = t.ID

	return nil
}

// GetTenant returns a clone of the tenant with the given id.
func (s *InMemoryStore) GetTenant(id string) (*core.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.tenants[id]
	if !exists {
		return nil, fmt.Errorf("tenant %s: %w", id, core.ErrNotFound)
	}
	return t.Clone(), nil
}

// GetTenantBySlug resolves a tenant through the slug index.
func (s *InMemoryStore) GetTenantBySlug(slug string) (*core.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.slugIndex[slug]
	if !exists {
		return nil, fmt.Errorf("tenant slug %q: %w", slug, core.ErrNotFound)
	}
	return s.tenants[id].Clone(), nil
}

// ListTenants returns all tenants sorted by creation time.
func (s *InMemoryStore) ListTenants() ([]*core.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenants := make([]*core.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		tenants = append(tenants, t.Clone())
	}
	sort.Slice(tenants, func(i, j int) bool { return tenants[i].CreatedAt.Before(tenants[j].CreatedAt) })

	return tenants, nil
}

// PutUser inserts or replaces a user. The tenant-scoped email index is kept
// consistent in the same critical section; an email owned by another user of
// the same tenant fails with *core.DuplicateEmailError and leaves no partial
// state.
func (s *InMemoryStore) PutUser(u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(u.TenantID, u.Email)
	if owner, taken := s.emailIndex[key]; taken && owner != u.ID {
		return &core.DuplicateEmailError{TenantID: u.TenantID, Email: core.NormalizeEmail(u.Email)}
	}
	if prev, exists := s.users[u.ID]; exists {
		prevKey := emailKey(prev.TenantID, prev.Email)
		if prevKey != key {
			delete(s.emailIndex, prevKey)
		}
	}
	s.users[u.ID] = u.Clone()
	s.emailIndex[key] = u.ID

	return nil
}

// GetUser returns a clone of the user with the given id.
func (s *InMemoryStore) GetUser(id string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.users[id]
	if !exists {
		return nil, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	return u.Clone(), nil
}

// ListUsers returns the users of one tenant sorted by creation time.
func (s *InMemoryStore) ListUsers(tenantID string) ([]*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*core.User, 0)
	for _, u := range s.users {
		if u.TenantID == tenantID {
			users = append(users, u.Clone())
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })

	return users, nil
}

// ListAllUsers returns every user across all tenants (API key validation
// scans these by prefix).
func (s *InMemoryStore) ListAllUsers() ([]*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*core.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })

	return users, nil
}

// GetUsage returns the tenant's counter for the given period, or a zero
// counter when none exists yet.
func (s *InMemoryStore) GetUsage(tenantID string, period time.Time) (*core.UsageCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.usage[tenantID]
	if !exists || !c.PeriodStart.Equal(period) {
		return &core.UsageCounter{TenantID: tenantID, PeriodStart: period}, nil
	}
	return c.Clone(), nil
}

// AddUsage applies the delta under the write lock (a single read-modify-write
// per call) and returns the counter after the increment. A period change
// resets the counter before applying the delta.
func (s *InMemoryStore) AddUsage(tenantID string, period time.Time, delta core.UsageDelta) (*core.UsageCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.usage[tenantID]
	if !exists || !c.PeriodStart.Equal(period) {
		c = &core.UsageCounter{TenantID: tenantID, PeriodStart: period}
		s.usage[tenantID] = c
	}
	c.APICalls += delta.APICalls
	c.StorageBytes += delta.StorageBytes
	c.Executions += delta.Executions

	return c.Clone(), nil
}

// PutAutomation inserts or replaces an automation.
func (s *InMemoryStore) PutAutomation(a *core.Automation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.automations[a.ID] = a.Clone()
	return nil
}

// GetAutomation returns a clone of the automation with the given id.
func (s *InMemoryStore) GetAutomation(id string) (*core.Automation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.automations[id]
	if !exists {
		return nil, fmt.Errorf("automation %s: %w", id, core.ErrNotFound)
	}
	return a.Clone(), nil
}

// DeleteAutomation removes an automation definition. Execution history is
// retained.
func (s *InMemoryStore) DeleteAutomation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.automations[id]; !exists {
		return fmt.Errorf("automation %s: %w", id, core.ErrNotFound)
	}
	delete(s.automations, id)

	return nil
}

// ListAutomations returns the automations of one tenant sorted by creation time.
func (s *InMemoryStore) ListAutomations(tenantID string) ([]*core.Automation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	automations := make([]*core.Automation, 0)
	for _, a := range s.automations {
		if a.TenantID == tenantID {
			automations = append(automations, a.Clone())
		}
	}
	sort.Slice(automations, func(i, j int) bool { return automations[i].CreatedAt.Before(automations[j].CreatedAt) })

	return automations, nil
}

// ListByTrigger returns the automations of one tenant with the given trigger
// kind, for event dispatch fan-out.
func (s *InMemoryStore) ListByTrigger(tenantID string, kind core.TriggerKind) ([]*core.Automation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	automations := make([]*core.Automation, 0)
	for _, a := range s.automations {
		if a.TenantID == tenantID && a.Trigger.Kind == kind {
			automations = append(automations, a.Clone())
		}
	}
	sort.Slice(automations, func(i, j int) bool { return automations[i].CreatedAt.Before(automations[j].CreatedAt) })

	return automations, nil
}

// MarkExecuted increments the execution counter and stamps the last-executed
// time in one critical section, so overlapping runs cannot lose increments.
func (s *InMemoryStore) MarkExecuted(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.automations[id]
	if !exists {
		return fmt.Errorf("automation %s: %w", id, core.ErrNotFound)
	}
	a.ExecutionCount++
	last := at
	a.LastExecutedAt = &last
	a.UpdatedAt = at

	return nil
}

// AppendExecution appends a record to the automation's history.
func (s *InMemoryStore) AppendExecution(rec *core.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.executions[rec.AutomationID] = append(s.executions[rec.AutomationID], rec.Clone())
	return nil
}

// UpdateExecution replaces a previously appended record by id.
func (s *InMemoryStore) UpdateExecution(rec *core.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.executions[rec.AutomationID]
	for i, existing := range records {
		if existing.ID == rec.ID {
			records[i] = rec.Clone()
			return nil
		}
	}

	return fmt.Errorf("execution %s: %w", rec.ID, core.ErrNotFound)
}

// ListExecutions returns up to limit records, most recent first.
func (s *InMemoryStore) ListExecutions(automationID string, limit int) ([]*core.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.executions[automationID]
	result := make([]*core.ExecutionRecord, 0, limit)
	for i := len(records) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, records[i].Clone())
	}

	return result, nil
}
