package tenant

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/automesh/core"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Acme", "acme"},
		{"spaces", "Acme Corp Ltd", "acme-corp-ltd"},
		{"punctuation", "Acme & Söhne!", "acme-s-hne"},
		{"leading trailing", "  Acme  ", "acme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestRegistry_CreateTenant(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	tn, err := r.CreateTenant(ctx, "Acme Corp", func(o *TenantOptions) {
		o.Plan = core.PlanStarter
	})
	require.NoError(t, err)

	assert.Equal(t, core.TenantTrial, tn.Status)
	assert.Equal(t, core.PlanStarter, tn.Plan)
	assert.Equal(t, core.LimitsForPlan(core.PlanStarter), tn.Limits)
	assert.True(t, strings.HasPrefix(tn.Slug, "acme-corp-"), "derived slug carries random suffix, got %q", tn.Slug)

	got, err := r.GetTenantBySlug(ctx, tn.Slug)
	require.NoError(t, err)
	assert.Equal(t, tn.ID, got.ID)
}

func TestRegistry_CreateTenantDuplicateSlug(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	_, err := r.CreateTenant(ctx, "Acme", func(o *TenantOptions) { o.Slug = "acme" })
	require.NoError(t, err)

	_, err = r.CreateTenant(ctx, "Other", func(o *TenantOptions) { o.Slug = "acme" })
	var dup *core.DuplicateSlugError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "acme", dup.Slug)
}

func TestRegistry_CreateTenantLimitOverride(t *testing.T) {
	r := NewRegistry()

	tn, err := r.CreateTenant(context.Background(), "Acme", func(o *TenantOptions) {
		o.Limits = &core.ResourceLimits{MaxUsers: 99}
	})
	require.NoError(t, err)

	assert.Equal(t, 99, tn.Limits.MaxUsers)
	// Untouched fields keep their plan defaults.
	assert.Equal(t, core.LimitsForPlan(core.PlanFree).MaxAPICallsPerPeriod, tn.Limits.MaxAPICallsPerPeriod)
}

func TestRegistry_TenantLifecycle(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	var events []string
	r.Subscribe(func(ev core.DomainEvent) { events = append(events, ev.Name) })

	tn, err := r.CreateTenant(ctx, "Acme")
	require.NoError(t, err)

	require.NoError(t, r.SuspendTenant(ctx, tn.ID, "billing hold"))
	got, _ := r.GetTenant(ctx, tn.ID)
	assert.Equal(t, core.TenantSuspended, got.Status)

	require.NoError(t, r.ResumeTenant(ctx, tn.ID))
	got, _ = r.GetTenant(ctx, tn.ID)
	assert.Equal(t, core.TenantActive, got.Status)

	require.NoError(t, r.DeleteTenant(ctx, tn.ID))
	got, err = r.GetTenant(ctx, tn.ID)
	require.NoError(t, err, "soft delete keeps the record")
	assert.Equal(t, core.TenantCancelled, got.Status)

	assert.Equal(t, []string{
		core.EventTenantCreated,
		core.EventTenantSuspended,
		core.EventTenantResumed,
		core.EventTenantDeleted,
	}, events)
}

func TestRegistry_CreateUser(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	tn, err := r.CreateTenant(ctx, "Acme")
	require.NoError(t, err)

	u, err := r.CreateUser(ctx, tn.ID, "Jo@Example.com", "Jo", "")
	require.NoError(t, err)
	assert.Equal(t, "jo@example.com", u.Email, "email is normalized")
	assert.Equal(t, core.RoleViewer, u.Role, "role defaults to viewer")
	assert.Equal(t, core.UserActive, u.Status)
}

func TestRegistry_CreateUserUnknownTenant(t *testing.T) {
	r := NewRegistry()

	_, err := r.CreateUser(context.Background(), "nope", "jo@example.com", "Jo", core.RoleAdmin)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRegistry_CreateUserDuplicateEmail(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	tn, err := r.CreateTenant(ctx, "Acme")
	require.NoError(t, err)
	other, err := r.CreateTenant(ctx, "Other")
	require.NoError(t, err)

	_, err = r.CreateUser(ctx, tn.ID, "jo@example.com", "Jo", core.RoleOwner)
	require.NoError(t, err)

	_, err = r.CreateUser(ctx, tn.ID, "JO@example.com", "Jo 2", core.RoleViewer)
	var dup *core.DuplicateEmailError
	require.ErrorAs(t, err, &dup)

	// Email uniqueness is scoped per tenant.
	_, err = r.CreateUser(ctx, other.ID, "jo@example.com", "Jo elsewhere", core.RoleOwner)
	assert.NoError(t, err)
}

func TestRegistry_CreateUserSeatLimit(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	// Free plan allows 3 users.
	tn, err := r.CreateTenant(ctx, "Acme")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := r.CreateUser(ctx, tn.ID, string(rune('a'+i))+"@example.com", "U", core.RoleViewer)
		require.NoError(t, err)
	}

	_, err = r.CreateUser(ctx, tn.ID, "overflow@example.com", "U", core.RoleViewer)
	var qerr *core.QuotaError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "users", qerr.Resource)
	assert.Equal(t, int64(3), qerr.Limit)
	assert.Equal(t, int64(3), qerr.Current)

	users, err := r.ListUsers(ctx, tn.ID)
	require.NoError(t, err)
	assert.Len(t, users, 3, "rejected create leaves no partial user")
}
