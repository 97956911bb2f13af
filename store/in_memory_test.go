package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/automesh/core"
	"github.com/hupe1980/automesh/internal/testutil"
)

func newTenant(id, slug string) *core.Tenant {
	now := time.Now().UTC()
	return &core.Tenant{
		ID:        id,
		Name:      slug,
		Slug:      slug,
		Status:    core.TenantActive,
		Plan:      core.PlanFree,
		Limits:    core.LimitsForPlan(core.PlanFree),
		Features:  core.FeaturesForPlan(core.PlanFree),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestInMemoryStore_TenantSlugIndex(t *testing.T) {
	s := NewInMemoryStore()

	require.NoError(t, s.PutTenant(newTenant("t1", "acme")))

	err := s.PutTenant(newTenant("t2", "acme"))
	var dup *core.DuplicateSlugError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "acme", dup.Slug)

	// Re-putting the owner under the same slug is fine.
	require.NoError(t, s.PutTenant(newTenant("t1", "acme")))

	got, err := s.GetTenantBySlug("acme")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)
}

func TestInMemoryStore_TenantSlugChangeUpdatesIndex(t *testing.T) {
	s := NewInMemoryStore()

	require.NoError(t, s.PutTenant(newTenant("t1", "acme")))
	require.NoError(t, s.PutTenant(newTenant("t1", "acme-corp")))

	_, err := s.GetTenantBySlug("acme")
	assert.ErrorIs(t, err, core.ErrNotFound)

	got, err := s.GetTenantBySlug("acme-corp")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)
}

func TestInMemoryStore_UserEmailScopedPerTenant(t *testing.T) {
	s := NewInMemoryStore()
	now := time.Now().UTC()

	require.NoError(t, s.PutUser(&core.User{ID: "u1", TenantID: "t1", Email: "jo@example.com", Status: core.UserActive, CreatedAt: now}))

	// Same email in another tenant is allowed.
	require.NoError(t, s.PutUser(&core.User{ID: "u2", TenantID: "t2", Email: "jo@example.com", Status: core.UserActive, CreatedAt: now}))

	// Same email in the same tenant is rejected, case-insensitively.
	err := s.PutUser(&core.User{ID: "u3", TenantID: "t1", Email: "JO@Example.com", Status: core.UserActive, CreatedAt: now})
	var dup *core.DuplicateEmailError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "t1", dup.TenantID)

	users, err := s.ListUsers("t1")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestInMemoryStore_AddUsageAtomic(t *testing.T) {
	s := NewInMemoryStore()
	period := core.PeriodStart(time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddUsage("t1", period, core.UsageDelta{APICalls: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := s.GetUsage("t1", period)
	require.NoError(t, err)
	assert.Equal(t, int64(50), c.APICalls)
}

func TestInMemoryStore_AddUsagePeriodRollover(t *testing.T) {
	s := NewInMemoryStore()

	jan := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.AddUsage("t1", jan, core.UsageDelta{APICalls: 7})
	require.NoError(t, err)

	c, err := s.AddUsage("t1", feb, core.UsageDelta{APICalls: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.APICalls, "new period starts fresh")
}

func TestInMemoryStore_MarkExecuted(t *testing.T) {
	s := NewInMemoryStore()
	now := time.Now().UTC()

	require.NoError(t, s.PutAutomation(&core.Automation{ID: "a1", TenantID: "t1", Name: "auto", CreatedAt: now}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.MarkExecuted("a1", time.Now().UTC()))
		}()
	}
	wg.Wait()

	a, err := s.GetAutomation("a1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), a.ExecutionCount)
	require.NotNil(t, a.LastExecutedAt)
}

func TestInMemoryStore_ListByTrigger(t *testing.T) {
	s := NewInMemoryStore()

	hook := testutil.NewAutomationBuilder("t1").
		Trigger(core.TriggerWebhook, map[string]any{"path": "/hooks/deals"}).
		Action(core.ActionSendNotification, nil).
		Build()
	require.NoError(t, s.PutAutomation(hook))
	require.NoError(t, s.PutAutomation(testutil.NewAutomationBuilder("t1").Build()))
	require.NoError(t, s.PutAutomation(testutil.NewAutomationBuilder("t2").
		Trigger(core.TriggerWebhook, nil).
		Build()))

	hooks, err := s.ListByTrigger("t1", core.TriggerWebhook)
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	assert.Equal(t, hook.ID, hooks[0].ID)
}

func TestInMemoryStore_ExecutionsMostRecentFirst(t *testing.T) {
	s := NewInMemoryStore()

	for i := 0; i < 5; i++ {
		rec := core.NewExecutionRecord("a1", "", nil)
		rec.Input = map[string]any{"n": i}
		require.NoError(t, s.AppendExecution(rec))
	}

	records, err := s.ListExecutions("a1", 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 4, records[0].Input["n"])
	assert.Equal(t, 2, records[2].Input["n"])
}

func TestInMemoryStore_UpdateExecution(t *testing.T) {
	s := NewInMemoryStore()

	rec := core.NewExecutionRecord("a1", "", nil)
	require.NoError(t, s.AppendExecution(rec))

	rec.Finish(core.ExecutionSuccess, time.Now().UTC())
	require.NoError(t, s.UpdateExecution(rec))

	records, err := s.ListExecutions("a1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, core.ExecutionSuccess, records[0].Status)

	missing := core.NewExecutionRecord("a1", "", nil)
	assert.ErrorIs(t, s.UpdateExecution(missing), core.ErrNotFound)
}

func TestInMemoryStore_CloneIsolation(t *testing.T) {
	s := NewInMemoryStore()

	tn := testutil.NewTenantBuilder("Acme").Slug("acme").Plan(core.PlanStarter).Active().Build()
	require.NoError(t, s.PutTenant(tn))

	got, err := s.GetTenant(tn.ID)
	require.NoError(t, err)
	got.Features["mutated"] = true

	again, err := s.GetTenant(tn.ID)
	require.NoError(t, err)
	assert.NotContains(t, again.Features, "mutated")
}
