package automesh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/automesh/agent"
	"github.com/hupe1980/automesh/automation"
	"github.com/hupe1980/automesh/core"
)

func TestAutoMesh_EndToEnd(t *testing.T) {
	m := New()
	ctx := context.Background()
	defer func() { _ = m.Close(ctx) }()

	tn, err := m.CreateTenant(ctx, "Acme")
	require.NoError(t, err)

	require.NoError(t, m.RegisterAgent(agent.NewFunctionAgent("scorer", "Scores leads", func(_ context.Context, input map[string]any) (map[string]any, error) {
		return map[string]any{"score": 80}, nil
	})))

	a, err := m.CreateAutomation(ctx, tn.ID, automation.Definition{
		Name:    "score new leads",
		Trigger: core.Trigger{Kind: core.TriggerEvent, Config: map[string]any{"event": "lead:created"}},
		Conditions: []core.Condition{
			{Field: "lead.source", Op: core.OpEquals, Value: "web"},
		},
		Actions: []automation.ActionDefinition{
			{Type: core.ActionRunAgent, Config: map[string]any{"agent": "scorer"}},
			{Type: core.ActionCreateTask, Config: map[string]any{"title": "follow up"}},
		},
		Enabled: true,
	})
	require.NoError(t, err)

	record, err := m.RunAutomation(ctx, a.ID, map[string]any{
		"lead": map[string]any{"source": "web"},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, core.ExecutionSuccess, record.Status)
	assert.Equal(t, 80, record.Output[a.Actions[0].ID]["score"])
	assert.Equal(t, "follow up", record.Output[a.Actions[1].ID]["title"])

	// A miss on the condition cancels instead of running actions.
	record, err = m.RunAutomation(ctx, a.ID, map[string]any{
		"lead": map[string]any{"source": "import"},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, core.ExecutionCancelled, record.Status)

	// Execution usage was tracked for the successful run only.
	sum, err := m.Tenants().UsageSummary(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.Executions)
}

func TestAutoMesh_ReplaceExecutor(t *testing.T) {
	m := New()
	ctx := context.Background()
	defer func() { _ = m.Close(ctx) }()

	called := false
	require.NoError(t, m.RegisterExecutor(executorFunc{name: string(core.ActionSendEmail), fn: func() {
		called = true
	}}))

	tn, err := m.CreateTenant(ctx, "Acme")
	require.NoError(t, err)

	a, err := m.CreateAutomation(ctx, tn.ID, automation.Definition{
		Name:    "notify",
		Trigger: core.Trigger{Kind: core.TriggerManual},
		Actions: []automation.ActionDefinition{{Type: core.ActionSendEmail}},
		Enabled: true,
	})
	require.NoError(t, err)

	record, err := m.RunAutomation(ctx, a.ID, nil, "")
	require.NoError(t, err)
	assert.Equal(t, core.ExecutionSuccess, record.Status)
	assert.True(t, called, "replacement executor handled the action")
}

type executorFunc struct {
	name string
	fn   func()
}

func (e executorFunc) Name() string        { return e.name }
func (e executorFunc) Description() string { return "test replacement" }

func (e executorFunc) Execute(context.Context, map[string]any, map[string]map[string]any) (map[string]any, error) {
	e.fn()
	return map[string]any{}, nil
}
