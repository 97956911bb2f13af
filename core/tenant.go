package core

import (
	"strings"
	"time"
)

// TenantStatus is the lifecycle state of a tenant account.
type TenantStatus string

const (
	// TenantTrial marks a freshly provisioned tenant still in evaluation.
	TenantTrial TenantStatus = "trial"
	// TenantActive marks a paying, fully enabled tenant.
	TenantActive TenantStatus = "active"
	// TenantSuspended marks a tenant blocked from doing work (e.g. billing hold).
	TenantSuspended TenantStatus = "suspended"
	// TenantCancelled marks a soft-deleted tenant. History is retained.
	TenantCancelled TenantStatus = "cancelled"
)

// PlanTier identifies the subscription plan a tenant is on. Each tier maps to
// a default ResourceLimits and feature set via LimitsForPlan / FeaturesForPlan.
type PlanTier string

const (
	PlanFree         PlanTier = "free"
	PlanStarter      PlanTier = "starter"
	PlanProfessional PlanTier = "professional"
	PlanEnterprise   PlanTier = "enterprise"
)

// ResourceLimits is the per-tenant quota budget. Defaults derive from the
// plan tier but may be overridden per tenant at provisioning time.
type ResourceLimits struct {
	MaxUsers                int   `json:"max_users"`
	MaxAPICallsPerPeriod    int64 `json:"max_api_calls_per_period"`
	MaxStorageBytes         int64 `json:"max_storage_bytes"`
	MaxAgents               int   `json:"max_agents"`
	MaxTools                int   `json:"max_tools"`
	MaxIntegrations         int   `json:"max_integrations"`
	MaxConcurrentExecutions int   `json:"max_concurrent_executions"`
	DataRetentionDays       int   `json:"data_retention_days"`
}

// LimitsForPlan returns the default resource limits for a plan tier.
// Unknown tiers fall back to the free plan.
func LimitsForPlan(plan PlanTier) ResourceLimits {
	switch plan {
	case PlanStarter:
		return ResourceLimits{
			MaxUsers:                10,
			MaxAPICallsPerPeriod:    10_000,
			MaxStorageBytes:         1 << 30, // 1 GiB
			MaxAgents:               5,
			MaxTools:                20,
			MaxIntegrations:         3,
			MaxConcurrentExecutions: 3,
			DataRetentionDays:       30,
		}
	case PlanProfessional:
		return ResourceLimits{
			MaxUsers:                50,
			MaxAPICallsPerPeriod:    100_000,
			MaxStorageBytes:         10 << 30,
			MaxAgents:               20,
			MaxTools:                100,
			MaxIntegrations:         10,
			MaxConcurrentExecutions: 10,
			DataRetentionDays:       90,
		}
	case PlanEnterprise:
		return ResourceLimits{
			MaxUsers:                500,
			MaxAPICallsPerPeriod:    1_000_000,
			MaxStorageBytes:         100 << 30,
			MaxAgents:               100,
			MaxTools:                500,
			MaxIntegrations:         50,
			MaxConcurrentExecutions: 50,
			DataRetentionDays:       365,
		}
	default:
		return ResourceLimits{
			MaxUsers:                3,
			MaxAPICallsPerPeriod:    1_000,
			MaxStorageBytes:         100 << 20, // 100 MiB
			MaxAgents:               2,
			MaxTools:                5,
			MaxIntegrations:         1,
			MaxConcurrentExecutions: 1,
			DataRetentionDays:       7,
		}
	}
}

// FeaturesForPlan returns the default feature flags for a plan tier.
func FeaturesForPlan(plan PlanTier) map[string]bool {
	features := map[string]bool{
		"automations":     true,
		"agents":          plan != PlanFree,
		"integrations":    plan != PlanFree,
		"knowledge_bases": plan == PlanProfessional || plan == PlanEnterprise,
		"audit_log":       plan == PlanProfessional || plan == PlanEnterprise,
		"sso":             plan == PlanEnterprise,
		"custom_branding": plan == PlanEnterprise,
	}
	return features
}

// Tenant is an isolated customer account. It owns users, automations and a
// quota budget. Slug is globally unique and URL-safe.
type Tenant struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Status    TenantStatus    `json:"status"`
	Plan      PlanTier        `json:"plan"`
	Limits    ResourceLimits  `json:"limits"`
	Features  map[string]bool `json:"features"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Clone returns a deep copy so stored tenants cannot be mutated externally.
func (t *Tenant) Clone() *Tenant {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Features = make(map[string]bool, len(t.Features))
	for k, v := range t.Features {
		clone.Features[k] = v
	}
	return &clone
}

// UserRole is a coarse permission level within a tenant.
type UserRole string

const (
	RoleOwner     UserRole = "owner"
	RoleAdmin     UserRole = "admin"
	RoleManager   UserRole = "manager"
	RoleDeveloper UserRole = "developer"
	RoleViewer    UserRole = "viewer"
)

// UserStatus is the lifecycle state of a user within a tenant.
type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserInactive  UserStatus = "inactive"
	UserPending   UserStatus = "pending"
	UserSuspended UserStatus = "suspended"
)

// APIKey is the retained representation of an issued key. The plaintext is
// handed out exactly once at creation; only the prefix (for identification)
// and a secret hash survive.
type APIKey struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Prefix      string     `json:"prefix"`
	SecretHash  string     `json:"-"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Expired reports whether the key has an expiry in the past relative to now.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// User belongs to exactly one tenant. Email is stored lowercased and is
// unique within that tenant.
type User struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      UserRole   `json:"role"`
	Status    UserStatus `json:"status"`
	APIKeys   []APIKey   `json:"api_keys,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Clone returns a deep copy so stored users cannot be mutated externally.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.APIKeys = make([]APIKey, len(u.APIKeys))
	copy(clone.APIKeys, u.APIKeys)
	for i, k := range u.APIKeys {
		if k.ExpiresAt != nil {
			exp := *k.ExpiresAt
			clone.APIKeys[i].ExpiresAt = &exp
		}
		clone.APIKeys[i].Permissions = append([]string(nil), k.Permissions...)
	}
	return &clone
}

// Counted reports whether the user occupies a seat against the tenant's user
// limit. Suspended and inactive users free their seats.
func (u *User) Counted() bool {
	return u.Status == UserActive || u.Status == UserPending
}

// NormalizeEmail lowercases and trims an email address for case-insensitive
// uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UsageCounter holds the running totals for one tenant within one billing
// period. Counters only increase within a period; a new period starts fresh.
type UsageCounter struct {
	TenantID     string    `json:"tenant_id"`
	PeriodStart  time.Time `json:"period_start"`
	APICalls     int64     `json:"api_calls"`
	StorageBytes int64     `json:"storage_bytes"`
	Executions   int64     `json:"executions"`
}

// Clone returns a copy of the counter.
func (c *UsageCounter) Clone() *UsageCounter {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// UsageDelta is an atomic increment applied to a tenant's usage counter.
type UsageDelta struct {
	APICalls     int64
	StorageBytes int64
	Executions   int64
}

// PeriodStart truncates t to the first instant of its month in UTC, the
// boundary at which usage counters reset.
func PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
